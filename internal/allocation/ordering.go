package allocation

import "sort"

// OrderRequests establishes the deterministic processing order for a run:
// submission timestamp ascending, ties broken by student identifier ascending.
// When a student submitted more than once, the latest (timestamp, sequence)
// version supersedes the rest. Requests with a missing timestamp are excluded
// and reported as validation errors, never silently dropped.
func OrderRequests(requests []StudentRequest) ([]StudentRequest, []ValidationError) {
	var errs []ValidationError

	latest := make(map[string]StudentRequest, len(requests))
	for _, req := range requests {
		if req.SubmittedAt.IsZero() {
			errs = append(errs, ValidationError{
				StudentID: req.StudentID,
				Detail:    "missing submission timestamp",
			})
			continue
		}
		prev, ok := latest[req.StudentID]
		if !ok || supersedes(req, prev) {
			latest[req.StudentID] = req
		}
	}

	ordered := make([]StudentRequest, 0, len(latest))
	for _, req := range latest {
		ordered = append(ordered, req)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].SubmittedAt.Equal(ordered[j].SubmittedAt) {
			return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
		}
		return ordered[i].StudentID < ordered[j].StudentID
	})

	return ordered, errs
}

func supersedes(req, prev StudentRequest) bool {
	if !req.SubmittedAt.Equal(prev.SubmittedAt) {
		return req.SubmittedAt.After(prev.SubmittedAt)
	}
	return req.Sequence > prev.Sequence
}
