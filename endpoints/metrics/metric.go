package metrics

import (
	"time"

	"github.com/CodeDeck/codedeck_backend/types"
)

type SubmissionMetricsCollector interface {
	JSON() []byte
	StartSubmission() func(tally types.SubmissionTally, degraded bool)
	IncVerdict(description string)
	ObserveJudgeCall(op string, elapsed time.Duration, err error)
}
