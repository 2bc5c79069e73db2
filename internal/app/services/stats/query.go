package stats

import (
	"regexp"
	"time"

	"github.com/R3E-Network/explorer_api/internal/app/domain/network"
)

// ValidationError reports a malformed or missing request parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// Query is a raw aggregation request as received from a client.
type Query struct {
	Network  string
	Interval string
	Start    string
	End      string
}

// Range is a validated publication window [From, To). Last is the inclusive
// end date and To the midnight following it.
type Range struct {
	From time.Time
	To   time.Time
	Last time.Time
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// request is a Query after validation.
type request struct {
	network  string
	interval Interval
	rng      Range
}

// validate checks presence first, then values. Values are matched exactly.
func (q Query) validate(now time.Time) (request, error) {
	name, kind, start, end := q.Network, q.Interval, q.Start, q.End

	switch {
	case name == "":
		return request{}, ValidationError{Field: "network", Message: "Missing required 'network' parameter. Must be 'Mainnet' or 'Preview'."}
	case kind == "":
		return request{}, ValidationError{Field: "interval", Message: "Missing required 'interval' parameter. Must be 'month', 'week', or 'year'."}
	case start == "":
		return request{}, ValidationError{Field: "start", Message: "Missing required 'start' parameter. Must be in YYYY-MM-DD format."}
	case !network.IsKnownName(name):
		return request{}, ValidationError{Field: "network", Message: "Invalid 'network' parameter. Must be 'Mainnet' or 'Preview'."}
	}

	iv, err := ParseGranularity(kind)
	if err != nil {
		return request{}, err
	}
	rng, err := ParseRange(start, end, now)
	if err != nil {
		return request{}, err
	}
	return request{network: name, interval: iv, rng: rng}, nil
}

// ParseGranularity returns the interval strategy for a kind name.
func ParseGranularity(kind string) (Interval, error) {
	switch kind {
	case KindWeek:
		return Week{}, nil
	case KindMonth:
		return Month{}, nil
	case KindYear:
		return Year{}, nil
	}
	return nil, ValidationError{Field: "interval", Message: "Invalid 'interval' parameter. Must be 'month', 'week', or 'year'."}
}

// ParseRange validates YYYY-MM-DD bounds. An empty end means the UTC date of
// now. An end before start is accepted and yields an empty window.
func ParseRange(start, end string, now time.Time) (Range, error) {
	from, ok := parseDate(start)
	if !ok {
		return Range{}, ValidationError{Field: "start", Message: "Invalid 'start' date format. Must be YYYY-MM-DD."}
	}
	last := dateOf(now)
	if end != "" {
		if last, ok = parseDate(end); !ok {
			return Range{}, ValidationError{Field: "end", Message: "Invalid 'end' date format. Must be YYYY-MM-DD."}
		}
	}
	to := last.AddDate(0, 0, 1)
	if to.Before(from) {
		to = from
	}
	return Range{From: from, To: to, Last: last}, nil
}

func parseDate(s string) (time.Time, bool) {
	if !datePattern.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	return t, err == nil
}
