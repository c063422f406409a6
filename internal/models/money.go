package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Money is a monetary amount kept exactly as the backend rendered it.
// The backend sends both "12.50" and 12.5; either way the text is preserved.
type Money string

const ZeroMoney Money = "0.00"

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*m = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Money(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("money: %w", err)
		}
		*m = Money(n.String())
		return nil
	}
}

func (m Money) String() string { return string(m) }

// OrZero substitutes "0.00" for an absent amount.
func (m Money) OrZero() Money {
	if m == "" {
		return ZeroMoney
	}
	return m
}

// Float parses the amount for comparisons. It is never used to produce an
// amount shown to the user.
func (m Money) Float() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(m)), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
