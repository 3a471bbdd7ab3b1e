package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// SubjectPrefix is prepended to every outgoing notification subject.
const SubjectPrefix = "Finance Alert - "

const (
	subjectHighAmount = SubjectPrefix + "High-Value Transaction"
	subjectBudget     = SubjectPrefix + "Budget Limit Reached"
	subjectTest       = SubjectPrefix + "Test Notification"
)

// layoutTmpl wraps every alert. {{.Title}}, {{.Intro}} and the rows are
// auto-escaped by html/template.
var layoutTmpl = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body style="margin:0;padding:24px;background-color:#f4f4f5;
     font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;">
  <table width="600" cellpadding="0" cellspacing="0" role="presentation"
         style="max-width:600px;width:100%;background-color:#ffffff;border-radius:8px;">
    <tr>
      <td style="padding:24px 32px;border-bottom:3px solid {{.Accent}};">
        <h2 style="margin:0;font-size:18px;color:#111827;">{{.Title}}</h2>
      </td>
    </tr>
    <tr>
      <td style="padding:24px 32px;font-size:14px;line-height:1.7;color:#374151;">
        <p style="margin-top:0;">{{.Intro}}</p>
        <ul>
          {{- range .Rows}}
          <li><strong>{{.Label}}:</strong> {{.Value}}</li>
          {{- end}}
        </ul>
        {{- if .Footer}}
        <p>{{.Footer}}</p>
        {{- end}}
      </td>
    </tr>
  </table>
</body>
</html>
`))

type row struct {
	Label string
	Value string
}

type alertView struct {
	Title  string
	Intro  string
	Accent string
	Rows   []row
	Footer string
}

// render produces the HTML and plain-text bodies for v.
func (v alertView) render() (html string, text string, err error) {
	var buf bytes.Buffer
	if err := layoutTmpl.Execute(&buf, v); err != nil {
		return "", "", fmt.Errorf("rendering %q template: %w", v.Title, err)
	}

	var sb strings.Builder
	sb.WriteString(v.Intro)
	sb.WriteString("\n\n")
	for _, r := range v.Rows {
		fmt.Fprintf(&sb, "%s: %s\n", r.Label, r.Value)
	}
	if v.Footer != "" {
		sb.WriteString("\n")
		sb.WriteString(v.Footer)
		sb.WriteString("\n")
	}
	return buf.String(), sb.String(), nil
}

func formatMoney(currency string, v float64) string {
	return fmt.Sprintf("%s %.2f", currency, v)
}

// formatDate renders RFC 3339 timestamps as day/month/year; anything else is
// shown as received.
func formatDate(raw string) string {
	if raw == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Format("02/01/2006 15:04")
}

func formatPercent(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".") + "%"
}
