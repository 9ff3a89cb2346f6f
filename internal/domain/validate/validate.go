// Package validate checks mutation payloads for structural and semantic
// correctness. Every rule is evaluated independently and all violations
// are collected before returning; nothing short-circuits across fields.
package validate

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/okian/tally/internal/domain/model"
)

// MessagePrefix opens the aggregated wire message for a failed validation.
const MessagePrefix = "Some request field does not have the correct format:"

// Violation texts, one per rule.
const (
	msgUserRequired  = "User (email) is required."
	msgScoreRequired = "Result score is required."
	msgScoreInteger  = "Result score must be an integer."
	msgScoreRange    = "Result score must be >= 0."
	msgTimeFormat    = "Invalid time format. Use 'YYYY-MM-DD HH:MM:SS'."
)

// Check evaluates a proposed mutation. Payloads must have been decoded
// with json.Decoder.UseNumber so that integer-ness can be checked at the
// representation level. An empty slice means the payload is valid.
func Check(isUpdate bool, payload map[string]any) []string {
	var violations []string

	if isUpdate {
		if _, ok := payload[model.AttrUser]; !ok {
			violations = append(violations, msgUserRequired)
		}
	}

	if raw, ok := payload[model.AttrScore]; !ok {
		violations = append(violations, msgScoreRequired)
	} else if score, err := integer(raw); err != nil {
		// The type check suppresses the range check for this field only.
		violations = append(violations, msgScoreInteger)
	} else if score < 0 {
		violations = append(violations, msgScoreRange)
	}

	if raw, ok := payload[model.AttrTime]; ok {
		if _, err := Time(raw); err != nil {
			violations = append(violations, msgTimeFormat)
		}
	}

	return violations
}

// Message aggregates violations into the single wire message.
func Message(violations []string) string {
	return MessagePrefix + strings.Join(violations, " | ")
}

// Error carries every violation from one validation pass.
type Error struct {
	Violations []string
}

func (e *Error) Error() string {
	return Message(e.Violations)
}

// Score extracts the validated score value from a payload. It must only
// be called after Check passed.
func Score(payload map[string]any) int {
	n, _ := integer(payload[model.AttrScore])
	return int(n)
}

// Time parses a payload time value under the exact wire layout.
func Time(raw any) (time.Time, error) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, ErrNotTime
	}
	t, err := time.ParseInLocation(model.TimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, ErrNotTime
	}
	return t, nil
}

// integer accepts only JSON numbers with an integral representation.
// Numeric strings and fractional or exponent forms are rejected.
func integer(raw any) (int64, error) {
	n, ok := raw.(json.Number)
	if !ok {
		return 0, ErrNotInteger
	}
	v, err := n.Int64()
	if err != nil {
		return 0, ErrNotInteger
	}
	return v, nil
}
