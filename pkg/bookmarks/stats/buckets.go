package stats

import "time"

const (
	monthLabel = "Jan 2006"
	weekLabel  = "2006-01-02"
	dayLabel   = "Jan 02"

	day  = 24 * time.Hour
	week = 7 * day
)

// Series is a zero-filled histogram, oldest bucket first.
type Series struct {
	Data  []int64  `json:"data"`
	Label []string `json:"label"`
}

func newSeries(n int) Series {
	return Series{Data: make([]int64, n), Label: make([]string, n)}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the Monday of t's ISO week.
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// Monthly counts visits in the last n calendar months, the current one included.
func Monthly(visits []time.Time, n int, now time.Time) Series {
	s := newSeries(n)
	current := startOfMonth(now)
	first := current.AddDate(0, -(n - 1), 0)
	for i := 0; i < n; i++ {
		s.Label[i] = first.AddDate(0, i, 0).Format(monthLabel)
	}
	for _, v := range visits {
		v = v.UTC()
		idx := (v.Year()-first.Year())*12 + int(v.Month()) - int(first.Month())
		if idx >= 0 && idx < n {
			s.Data[idx]++
		}
	}
	return s
}

// Weekly counts visits per ISO week from the week of the earliest visit to
// the week of the latest. It is empty when there are no visits.
func Weekly(visits []time.Time) Series {
	if len(visits) == 0 {
		return newSeries(0)
	}
	lo, hi := visits[0], visits[0]
	for _, v := range visits[1:] {
		if v.Before(lo) {
			lo = v
		}
		if v.After(hi) {
			hi = v
		}
	}

	first := startOfWeek(lo)
	n := int(startOfWeek(hi).Sub(first)/week) + 1
	s := newSeries(n)
	for i := 0; i < n; i++ {
		s.Label[i] = first.AddDate(0, 0, 7*i).Format(weekLabel)
	}
	for _, v := range visits {
		s.Data[int(startOfWeek(v).Sub(first)/week)]++
	}
	return s
}

// LastDays counts visits in the n calendar days ending today.
func LastDays(visits []time.Time, n int, now time.Time) Series {
	s := newSeries(n)
	first := startOfDay(now).AddDate(0, 0, -(n - 1))
	for i := 0; i < n; i++ {
		s.Label[i] = first.AddDate(0, 0, i).Format(dayLabel)
	}
	for _, v := range visits {
		idx := int(startOfDay(v).Sub(first) / day)
		if !v.Before(first) && idx < n {
			s.Data[idx]++
		}
	}
	return s
}
