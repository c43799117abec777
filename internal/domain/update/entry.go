package update

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// TimestampLayout is the second-precision wall-clock layout of journal entries.
	TimestampLayout = "2006-01-02 15:04:05"
	// DayLayout names one journal file per calendar day.
	DayLayout = "2006-01-02"
	// Separator divides the timestamp from the message on a journal line.
	Separator = " - "
	// FileExtension is appended to the day to form the journal filename.
	FileExtension = ".log"
)

// ErrMalformedEntry is returned when a journal line does not match the entry format.
var ErrMalformedEntry = errors.New("malformed journal entry")

// Entry is one timestamped line of the upgrade journal.
type Entry struct {
	// Timestamp is the local wall-clock time the entry was written.
	Timestamp time.Time
	// Message is the free-form text of the entry.
	Message string
}

// String renders the entry exactly as it is persisted, without a line ending.
func (e Entry) String() string {
	return e.Timestamp.Format(TimestampLayout) + Separator + e.Message
}

// ParseEntry parses a persisted journal line in the local time zone.
func ParseEntry(line string) (Entry, error) {
	line = strings.TrimRight(line, "\r\n")

	if len(line) < len(TimestampLayout)+len(Separator) {
		return Entry{}, fmt.Errorf("%q: %w", line, ErrMalformedEntry)
	}

	rawTimestamp, rest := line[:len(TimestampLayout)], line[len(TimestampLayout):]
	if !strings.HasPrefix(rest, Separator) {
		return Entry{}, fmt.Errorf("%q: %w", line, ErrMalformedEntry)
	}

	timestamp, err := time.ParseInLocation(TimestampLayout, rawTimestamp, time.Local)
	if err != nil {
		return Entry{}, fmt.Errorf("%q: %w: %w", line, ErrMalformedEntry, err)
	}

	return Entry{
		Timestamp: timestamp,
		Message:   strings.TrimPrefix(rest, Separator),
	}, nil
}

// DailyFilename returns the journal filename for the calendar day of t, e.g. "2024-05-01.log".
func DailyFilename(t time.Time) string {
	return t.Format(DayLayout) + FileExtension
}

// ParseDay parses a "YYYY-MM-DD" day in the local time zone.
func ParseDay(day string) (time.Time, error) {
	parsed, err := time.ParseInLocation(DayLayout, strings.TrimSpace(day), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", day, err)
	}

	return parsed, nil
}
