package catalog

import (
	"fmt"
	"strings"
	"time"
)

// TimeWindow is a closed capture-time interval used to filter catalog searches.
type TimeWindow struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	w := TimeWindow{Start: start, End: end}
	return w, w.Validate()
}

// ParseTimeWindow parses the STAC interval notation "start/end" with RFC 3339
// timestamps or plain YYYY-MM-DD dates. A plain end date covers the whole day.
func ParseTimeWindow(interval string) (TimeWindow, error) {
	parts := strings.Split(interval, "/")
	if len(parts) != 2 {
		return TimeWindow{}, fmt.Errorf("invalid time window %q, expected start/end", interval)
	}
	start, err := parseInstant(parts[0], false)
	if err != nil {
		return TimeWindow{}, err
	}
	end, err := parseInstant(parts[1], true)
	if err != nil {
		return TimeWindow{}, err
	}
	return NewTimeWindow(start, end)
}

func parseInstant(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s. Please use YYYY-MM-DD or RFC 3339", s)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func (w TimeWindow) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("time window %s has an unset bound", w)
	}
	if w.End.Before(w.Start) {
		return fmt.Errorf("time window %s ends before it starts", w)
	}
	return nil
}

func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// String renders the window as a STAC datetime interval.
func (w TimeWindow) String() string {
	return fmt.Sprintf("%s/%s", w.Start.UTC().Format(time.RFC3339Nano), w.End.UTC().Format(time.RFC3339Nano))
}
