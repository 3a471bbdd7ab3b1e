package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNotObject is returned when a body is valid JSON but not an object.
var ErrNotObject = errors.New("body is not a JSON object")

// DecodeError reports a body that cannot be turned into an Event.
type DecodeError struct {
	Key RoutingKey
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %q event: %v", e.Key, e.Err)
}

// Unwrap returns the underlying decoder error.
func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses body into the variant selected by routingKey. Only a body
// that is not a syntactically valid JSON object fails; fields of an
// unexpected type are read leniently (numbers as text, numeric text as
// numbers) or left at their zero value. Keys that are not bound to the
// notification queue decode into Unknown.
func Decode(routingKey string, body []byte) (Event, error) {
	key := RoutingKey(routingKey)

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return nil, &DecodeError{Key: key, Err: errors.New("invalid JSON")}
		}
		return nil, &DecodeError{Key: key, Err: ErrNotObject}
	}

	var f fields
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}

	common := Common{
		TransactionID: f.str("transaction_id"),
		UserID:        f.str("user_id"),
		Trace:         f.str("trace_id"),
	}

	switch key {
	case KeyTransactionCreated:
		return TransactionCreated{
			Common:      common,
			Amount:      f.num("amount"),
			Description: f.str("description"),
			Category:    f.str("category"),
			Type:        f.str("type"),
			Date:        f.str("date"),
			UserEmail:   f.str("user_email"),
		}, nil
	case KeyBudgetExceeded:
		return BudgetExceeded{
			Common:        common,
			Category:      f.str("category"),
			Percentage:    f.num("percentage"),
			CurrentAmount: f.num("current_amount"),
			BudgetLimit:   f.num("budget_limit"),
			UserEmail:     f.str("user_email"),
		}, nil
	case KeyGoalAchieved:
		return GoalAchieved{
			Common:    common,
			GoalName:  f.str("goal_name"),
			UserEmail: f.str("user_email"),
		}, nil
	default:
		return Unknown{Common: common, RawKey: routingKey}, nil
	}
}

// fields holds the top-level members of an event body.
type fields map[string]json.RawMessage

// str returns a string member, or a number member in its JSON text form.
func (f fields) str(name string) string {
	raw, ok := f[name]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

// num returns a finite number member, accepting numeric strings.
func (f fields) num(name string) float64 {
	raw, ok := f[name]
	if !ok {
		return 0
	}
	var v float64
	if json.Unmarshal(raw, &v) != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		v = parsed
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
