package schema

import (
	"fmt"
	"strings"
)

// Period is a named historical date range used to partition telemetry retrieval.
// The name is used verbatim as the last path segment of the source URL.
type Period string

// String returns the period name.
func (p Period) String() string {
	return string(p)
}

// KnownPeriods is the fixed registry of periods published by the AQICN
// historical data platform, in chronological order.
var KnownPeriods = []Period{
	"2015H1",
	"2016H1",
	"2017H1",
	"2018H1",
	"2019Q1",
	"2019Q2",
	"2019Q3",
	"2019Q4",
	"2020Q1",
	"2020Q2",
	"2020Q3",
	"2020Q4",
	"2021Q1",
	"2021Q2",
	"2021Q3",
	"2021Q4",
}

// IsKnownPeriod reports whether p is part of the fixed registry.
func IsKnownPeriod(p Period) bool {
	for _, known := range KnownPeriods {
		if known == p {
			return true
		}
	}
	return false
}

// ValidatePeriod checks that a period name can be used as a URL path segment.
func ValidatePeriod(p Period) error {
	name := string(p)
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("period name cannot be empty")
	}
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("period name %q has surrounding whitespace", name)
	}
	if strings.ContainsAny(name, "/?#") {
		return fmt.Errorf("period name %q contains a reserved URL character", name)
	}
	return nil
}

// ParsePeriods parses a comma-separated list of period names.
// An empty input returns a copy of KnownPeriods. Duplicates are rejected
// so that the iteration order stays meaningful.
func ParsePeriods(s string) ([]Period, error) {
	if strings.TrimSpace(s) == "" {
		out := make([]Period, len(KnownPeriods))
		copy(out, KnownPeriods)
		return out, nil
	}

	var periods []Period
	seen := make(map[Period]struct{})
	for part := range strings.SplitSeq(s, ",") {
		p := Period(strings.TrimSpace(part))
		if p == "" {
			continue
		}
		if err := ValidatePeriod(p); err != nil {
			return nil, err
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("period %q listed more than once", p)
		}
		seen[p] = struct{}{}
		periods = append(periods, p)
	}

	if len(periods) == 0 {
		return nil, fmt.Errorf("no valid periods in %q", s)
	}
	return periods, nil
}
