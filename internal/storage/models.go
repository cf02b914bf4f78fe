package storage

import "time"

// UnknownOrigin is stored when the caller's address cannot be determined.
const UnknownOrigin = "unknown"

// TimestampLayout is the sortable ISO-8601 form used for Record.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is one employee submission. Field names match the persisted JSON.
type Record struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Type       string `json:"type"`
	Timestamp  string `json:"timestamp"`
	IP         string `json:"ip"`
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Time parses the record's timestamp. ok is false when it is missing or malformed.
func (r Record) Time() (t time.Time, ok bool) {
	t, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
