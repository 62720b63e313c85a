package cli

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/roach88/timeindex"
	"github.com/roach88/timeindex/internal/canonical"
)

// EntryView is how entries are printed.
type EntryView struct {
	T     float64 `json:"t"`
	Time  string  `json:"time"`
	Value any     `json:"v"`
}

func viewOf(e timeindex.Entry[any]) EntryView {
	return EntryView{
		T:     e.Timestamp,
		Time:  e.Time().Format(time.RFC3339Nano),
		Value: e.Value,
	}
}

// String renders "<seconds>  <RFC 3339 time>  <canonical value>".
func (v EntryView) String() string {
	value, err := canonical.Marshal(v.Value)
	if err != nil {
		value = []byte(fmt.Sprint(v.Value))
	}
	return fmt.Sprintf("%s  %s  %s", strconv.FormatFloat(v.T, 'f', -1, 64), v.Time, value)
}

// parseTimestamp accepts seconds since the Unix epoch or an RFC 3339 time.
func parseTimestamp(s string) (float64, error) {
	if ts, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(ts) || math.IsInf(ts, 0) {
			return 0, fmt.Errorf("timestamp %q must be finite", s)
		}
		return ts, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: want seconds or RFC 3339", s)
	}
	return timeindex.Seconds(t), nil
}
