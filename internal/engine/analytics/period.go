package analytics

import (
	"math"
	"time"

	"pushr/internal/pkg/errors"
)

const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	Period7d        = "7d"
	Period30d       = "30d"
	PeriodMonth     = "month"
	PeriodYear      = "year"
	PeriodAll       = "all"
)

// Window is a half-open [From, To) range of epoch milliseconds.
type Window struct {
	From int64
	To   int64
}

func (w Window) Contains(ts int64) bool {
	return ts >= w.From && ts < w.To
}

// Unbounded reports whether the window spans every representable time.
func (w Window) Unbounded() bool {
	return w.From == math.MinInt64 && w.To == math.MaxInt64
}

type Bucket struct {
	Key string
	Window
}

// Range is the resolved form of a report period.
type Range struct {
	Period   string
	Overview Window
	Timeline []Bucket
}

// Span covers both the overview window and every timeline bucket.
func (r Range) Span() Window {
	span := r.Overview
	if len(r.Timeline) > 0 {
		if first := r.Timeline[0].From; first < span.From {
			span.From = first
		}
		if last := r.Timeline[len(r.Timeline)-1].To; last > span.To {
			span.To = last
		}
	}
	return span
}

// BucketFor returns the index of the timeline bucket holding ts, or -1.
func (r Range) BucketFor(ts int64) int {
	lo, hi := 0, len(r.Timeline)
	for lo < hi {
		mid := (lo + hi) / 2
		b := r.Timeline[mid]
		switch {
		case ts < b.From:
			hi = mid
		case ts >= b.To:
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}

// ResolvePeriod maps a period name onto windows in loc. Day boundaries are
// local midnights. An empty period means 7d.
func ResolvePeriod(period string, now time.Time, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	if period == "" {
		period = Period7d
	}

	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)

	r := Range{Period: period}
	switch period {
	case PeriodToday:
		r.Overview = window(today, tomorrow)
		r.Timeline = days(today, 1)
	case PeriodYesterday:
		yesterday := today.AddDate(0, 0, -1)
		r.Overview = window(yesterday, today)
		r.Timeline = days(yesterday, 1)
	case Period7d:
		start := today.AddDate(0, 0, -6)
		r.Overview = window(start, tomorrow)
		r.Timeline = days(start, 7)
	case Period30d:
		start := today.AddDate(0, 0, -29)
		r.Overview = window(start, tomorrow)
		r.Timeline = days(start, 30)
	case PeriodMonth:
		thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		prevMonth := thisMonth.AddDate(0, -1, 0)
		r.Overview = window(prevMonth, thisMonth)
		r.Timeline = days(prevMonth, int(thisMonth.Sub(prevMonth).Hours()/24+0.5))
	case PeriodYear:
		jan1 := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		r.Overview = window(jan1, tomorrow)
		r.Timeline = months(jan1, 12)
	case PeriodAll:
		r.Overview = Window{From: math.MinInt64, To: math.MaxInt64}
		// the unbounded overview keeps a compact trailing week as its timeline
		r.Timeline = days(today.AddDate(0, 0, -6), 7)
	default:
		return Range{}, errors.Invalid("period", "must be one of today, yesterday, 7d, 30d, month, year, all")
	}
	return r, nil
}

func window(from, to time.Time) Window {
	return Window{From: from.UnixMilli(), To: to.UnixMilli()}
}

func days(start time.Time, n int) []Bucket {
	buckets := make([]Bucket, n)
	for i := 0; i < n; i++ {
		from := start.AddDate(0, 0, i)
		buckets[i] = Bucket{Key: from.Format("2006-01-02"), Window: window(from, from.AddDate(0, 0, 1))}
	}
	return buckets
}

func months(start time.Time, n int) []Bucket {
	buckets := make([]Bucket, n)
	for i := 0; i < n; i++ {
		from := start.AddDate(0, i, 0)
		buckets[i] = Bucket{Key: from.Format("2006-01"), Window: window(from, from.AddDate(0, 1, 0))}
	}
	return buckets
}
