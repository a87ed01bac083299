package solver

// Select keeps the valid reports and then applies the loss filter.
//
// A nil loss keeps every valid report. Otherwise only reports with at least
// maxEdges - *loss edges survive, where maxEdges is taken over the valid
// reports; a loss larger than maxEdges keeps everything. An empty result is
// a normal outcome.
func Select(reports []Report, loss *int) []Report {
	valid := make([]Report, 0, len(reports))
	for _, r := range reports {
		if r.Feedback.Valid() {
			valid = append(valid, r)
		}
	}
	return applyLoss(valid, loss)
}

// SelectAll applies only the loss filter. Checking mode uses it so that
// invalid Solutions are returned annotated with their Feedback.
func SelectAll(reports []Report, loss *int) []Report {
	all := make([]Report, len(reports))
	copy(all, reports)
	return applyLoss(all, loss)
}

func applyLoss(reports []Report, loss *int) []Report {
	if loss == nil {
		return reports
	}
	maxEdges := 0
	for _, r := range reports {
		if n := r.NumEdges(); n > maxEdges {
			maxEdges = n
		}
	}
	threshold := maxEdges - *loss
	if threshold < 0 {
		threshold = 0
	}
	out := reports[:0]
	for _, r := range reports {
		if r.NumEdges() >= threshold {
			out = append(out, r)
		}
	}
	return out
}
