package stats

import (
	"fmt"
	"time"
)

// Bucket is a calendar interval. Start and End are inclusive dates at UTC
// midnight.
type Bucket struct {
	Type  string
	Start time.Time
	End   time.Time
	Label string
}

// Interval maps a timestamp to the calendar bucket containing it.
type Interval interface {
	Kind() string
	Bucket(t time.Time) Bucket
}

// Interval kinds accepted by ParseGranularity.
const (
	KindWeek  = "week"
	KindMonth = "month"
	KindYear  = "year"
)

// Week buckets run Sunday through Saturday. The label carries the
// Sunday-based week-of-year of the bucket's first day (week 00 holds the days
// before the year's first Sunday).
type Week struct{}

func (Week) Kind() string { return KindWeek }

func (Week) Bucket(t time.Time) Bucket {
	d := dateOf(t)
	start := d.AddDate(0, 0, -int(d.Weekday()))
	return Bucket{
		Type:  KindWeek,
		Start: start,
		End:   start.AddDate(0, 0, 6),
		Label: fmt.Sprintf("%04d-W%02d", start.Year(), sundayWeek(start)),
	}
}

// sundayWeek numbers weeks the way strftime's %U does: the first Sunday of
// the year opens week 1.
func sundayWeek(d time.Time) int {
	yday := d.YearDay() - 1
	return (yday + 7 - int(d.Weekday())) / 7
}

// Month buckets span a calendar month.
type Month struct{}

func (Month) Kind() string { return KindMonth }

func (Month) Bucket(t time.Time) Bucket {
	d := dateOf(t)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Bucket{
		Type:  KindMonth,
		Start: start,
		End:   start.AddDate(0, 1, -1),
		Label: start.Format("2006-01"),
	}
}

// Year buckets span a calendar year.
type Year struct{}

func (Year) Kind() string { return KindYear }

func (Year) Bucket(t time.Time) Bucket {
	d := dateOf(t)
	start := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return Bucket{
		Type:  KindYear,
		Start: start,
		End:   time.Date(d.Year(), time.December, 31, 0, 0, 0, 0, time.UTC),
		Label: start.Format("2006"),
	}
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
