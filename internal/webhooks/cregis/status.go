package cregiswebhook

// Outcome classifies a gateway-reported payment status.
type Outcome string

const (
	// OutcomeSuccess means the payment settled and the deposit should move
	// toward completion.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure means the payment terminally failed.
	OutcomeFailure Outcome = "failure"
	// OutcomeIndeterminate covers unknown or transient statuses. They are
	// acknowledged without touching the deposit.
	OutcomeIndeterminate Outcome = "indeterminate"
)

var statusOutcomes = map[string]Outcome{
	"paid":      OutcomeSuccess,
	"complete":  OutcomeSuccess,
	"success":   OutcomeSuccess,
	"confirmed": OutcomeSuccess,

	"rejected":  OutcomeFailure,
	"failed":    OutcomeFailure,
	"cancelled": OutcomeFailure,
	"expired":   OutcomeFailure,
}

// MapStatus classifies the raw gateway status. Matching is exact against the
// fixed vocabulary; anything unrecognized is indeterminate so a new gateway
// status can never corrupt a deposit.
func MapStatus(raw string) Outcome {
	if outcome, ok := statusOutcomes[raw]; ok {
		return outcome
	}
	return OutcomeIndeterminate
}
