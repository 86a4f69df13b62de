package snapshot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNoTimestamp is returned by ParseTimestamp for blank input.
var ErrNoTimestamp = errors.New("timestamp is required")

// timestampLayouts are tried in order. The zone-less forms are read as UTC;
// fractional seconds are accepted by all of them.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// String returns a pointer to the trimmed value, or nil for blank input.
// Providers use it so an empty payload field stays unknown.
func String(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func Float(v float64) *float64 { return &v }

func Bool(v bool) *bool { return &v }

// Display renders an optional string for presentation.
func Display(p *string) string {
	if p == nil {
		return NotAvailable
	}
	return *p
}

// DisplayFloat renders an optional coordinate for presentation.
func DisplayFloat(p *float64) string {
	if p == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*p, 'f', 4, 64)
}

// DisplayBool renders a tri-state flag. Unknown is shown as such, never as "No".
func DisplayBool(p *bool) string {
	switch {
	case p == nil:
		return "Unknown"
	case *p:
		return "Yes"
	default:
		return "No"
	}
}

// Normalize prepares a Snapshot for serialization: local_ips is always an array.
func (s *Snapshot) Normalize() {
	if s.Local.LocalIPs == nil {
		s.Local.LocalIPs = []string{}
	}
}

// ParseTimestamp reads an ISO-8601 timestamp with or without a zone offset.
func ParseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, ErrNoTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}
