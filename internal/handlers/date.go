package handlers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date accepts "2006-01-02" as well as RFC 3339 timestamps in request bodies.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := parseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.DateOnly))
}

// Ptr returns nil for a nil receiver, the wrapped time otherwise.
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func parseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return Date{t}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return Date{t}, nil
	}
	return Date{}, fmt.Errorf("invalid date %q", raw)
}
