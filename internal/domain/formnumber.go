package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FormNumber is a numeric form field that tolerates free text while the
// user is still typing. The console sends either a JSON number or the raw
// input string; intermediate states such as "-" or "." are kept as text
// and only coerced when the form is submitted.
type FormNumber struct {
	Raw string
}

// NewFormNumber wraps an already numeric value.
func NewFormNumber(v float64) FormNumber {
	return FormNumber{Raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

// ParseFormNumber parses free-text numeric input. ok is false while the
// input is not yet a number ("", "-", ".", "-.", "1e").
func ParseFormNumber(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// "12." is a number to the user.
		if strings.HasSuffix(s, ".") {
			return ParseFormNumber(strings.TrimSuffix(s, "."))
		}
		return 0, false
	}
	return v, true
}

// Parsed reports the value and whether the input is parseable yet.
func (n FormNumber) Parsed() (float64, bool) {
	return ParseFormNumber(n.Raw)
}

// Value coerces the field for submission. Unparseable input becomes 0.
func (n FormNumber) Value() float64 {
	v, _ := n.Parsed()
	return v
}

// MarshalJSON sends the coerced number upstream.
func (n FormNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value())
}

// UnmarshalJSON accepts a JSON number, a string, or null.
func (n *FormNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		n.Raw = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n.Raw = s
		return nil
	}
	var f json.Number
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	n.Raw = f.String()
	return nil
}
