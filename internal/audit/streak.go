package audit

import (
	"sort"
	"sync"
)

// RunHealth summarises the degradations observed in one run
type RunHealth struct {
	SessionUnknown bool
	// EnrichmentChecked is false when no item reached enrichment
	EnrichmentChecked bool
	MissingFields     []string
}

// StreakTracker raises an alert once a failure pattern has persisted for
// threshold consecutive runs. The alert fires on reaching the threshold and
// again only after the streak has been broken.
type StreakTracker struct {
	mu        sync.Mutex
	threshold int
	session   int
	enrich    int
	missing   map[string]struct{}
}

// NewStreakTracker creates a tracker; threshold < 1 is treated as 1
func NewStreakTracker(threshold int) *StreakTracker {
	if threshold < 1 {
		threshold = 1
	}
	return &StreakTracker{threshold: threshold, missing: make(map[string]struct{})}
}

// Observe folds one run into the streaks and returns alerts to send
func (s *StreakTracker) Observe(h RunHealth) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var alerts []string

	if h.SessionUnknown {
		s.session++
		if s.session == s.threshold {
			alerts = append(alerts, SessionStreakAlert(s.session))
		}
	} else {
		s.session = 0
	}

	if h.EnrichmentChecked {
		if len(h.MissingFields) > 0 {
			s.enrich++
			for _, f := range h.MissingFields {
				s.missing[f] = struct{}{}
			}
			if s.enrich == s.threshold {
				alerts = append(alerts, EnrichmentStreakAlert(s.enrich, s.missingList()))
			}
		} else {
			s.enrich = 0
			s.missing = make(map[string]struct{})
		}
	}

	return alerts
}

// Streaks returns the current session and enrichment streak lengths
func (s *StreakTracker) Streaks() (session, enrichment int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, s.enrich
}

func (s *StreakTracker) missingList() []string {
	out := make([]string, 0, len(s.missing))
	for f := range s.missing {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
