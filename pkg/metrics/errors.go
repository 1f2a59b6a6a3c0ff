package metrics

// Outcome labels shared by the domain counters.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Outcome maps an operation error to a low-cardinality outcome label.
// Caller mistakes (validation, not found, conflict) are "rejected", anything
// else is "failed".
func Outcome(err error, rejected func(error) bool) string {
	switch {
	case err == nil:
		return OutcomeOK
	case rejected != nil && rejected(err):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}
