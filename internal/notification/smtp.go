package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

const smtpTimeout = 15 * time.Second

// SMTPProvider delivers notifications via SMTP using the go-mail library.
type SMTPProvider struct {
	config SMTPConfig
}

// NewSMTPProvider creates a new SMTPProvider with the given configuration.
func NewSMTPProvider(config SMTPConfig) *SMTPProvider {
	return &SMTPProvider{config: config}
}

// Name returns the provider identifier.
func (p *SMTPProvider) Name() string { return "smtp" }

// Send delivers msg using the configured SMTP server.
func (p *SMTPProvider) Send(ctx context.Context, msg Message) (string, error) {
	m, err := p.buildMsg(msg)
	if err != nil {
		return "", err
	}

	c, err := mail.NewClient(p.config.Host,
		mail.WithPort(p.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(p.config.Username),
		mail.WithPassword(p.config.Password),
		mail.WithTLSPolicy(tlsPolicyFromEncryption(p.config.Encryption)),
		mail.WithTimeout(smtpTimeout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create mail client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("sending mail: %w", err)
	}
	return m.GetMessageID(), nil
}

func (p *SMTPProvider) buildMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(p.config.FromAddr); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}

	added := 0
	for _, r := range msg.To {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if err := m.AddTo(r); err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", r, err)
		}
		added++
	}
	if added == 0 {
		return nil, errors.New("no recipients")
	}

	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDate()

	// Plain-text fallback for clients that don't render HTML.
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

// tlsPolicyFromEncryption converts the encryption string to a go-mail TLSPolicy.
func tlsPolicyFromEncryption(enc string) mail.TLSPolicy {
	switch enc {
	case "ssl_tls":
		return mail.TLSMandatory
	case "starttls":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}
