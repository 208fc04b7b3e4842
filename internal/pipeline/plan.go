package pipeline

import (
	"fmt"
	"strings"
)

// terminal maps a call status onto the four terminal action states.
func terminal(s Status) Status {
	switch s {
	case StatusSuccess, StatusBlocked, StatusSkipped:
		return s
	case StatusRefused:
		return StatusBlocked
	default:
		return StatusError
	}
}

func allIn(ids []string, set map[string]bool) bool {
	for _, id := range ids {
		if !set[id] {
			return false
		}
	}
	return true
}

func firstIn(ids []string, set map[string]bool) string {
	for _, id := range ids {
		if set[id] {
			return id
		}
	}
	return ""
}

// aggregate: success iff everything succeeded, partial if anything did, blocked if
// nothing did and something was blocked, error otherwise.
func aggregate(results []ActionResult) Status {
	succeeded, blocked := 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			succeeded++
		case StatusBlocked:
			blocked++
		}
	}
	switch {
	case len(results) > 0 && succeeded == len(results):
		return StatusSuccess
	case succeeded > 0:
		return StatusPartial
	case blocked > 0:
		return StatusBlocked
	default:
		return StatusError
	}
}

func firstReason(results []ActionResult) string {
	for _, r := range results {
		if r.Status != StatusSuccess && r.Status != StatusSkipped && r.Reason != "" {
			return r.Reason
		}
	}
	for _, r := range results {
		if r.Reason != "" {
			return r.Reason
		}
	}
	return ""
}

// summarize renders one line listing what ran, what was blocked, skipped and failed.
func summarize(out PlanOutcome) string {
	var done, blocked, skipped, failed []string
	for _, r := range out.Results {
		label := r.ID
		if r.Tool != "" {
			label = fmt.Sprintf("%s (%s)", r.ID, r.Tool)
		}
		switch r.Status {
		case StatusSuccess:
			done = append(done, label)
		case StatusBlocked, StatusRefused:
			blocked = append(blocked, withReason(label, r.Reason))
		case StatusSkipped:
			skipped = append(skipped, withReason(label, r.Reason))
		default:
			failed = append(failed, withReason(label, r.Reason))
		}
	}

	var parts []string
	if len(done) > 0 {
		parts = append(parts, "Executed: "+strings.Join(done, ", ")+".")
	} else {
		parts = append(parts, "Nothing was executed.")
	}
	if len(blocked) > 0 {
		parts = append(parts, "Blocked: "+strings.Join(blocked, "; ")+".")
	}
	if len(skipped) > 0 {
		parts = append(parts, "Skipped: "+strings.Join(skipped, "; ")+".")
	}
	if len(failed) > 0 {
		parts = append(parts, "Errors: "+strings.Join(failed, "; ")+".")
	}
	return strings.Join(parts, " ")
}

func withReason(label, reason string) string {
	if reason == "" {
		return label
	}
	return label + ": " + strings.TrimSuffix(reason, ".")
}
