package metrics

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/CodeDeck/codedeck_backend/types"
	"github.com/puzpuzpuz/xsync/v3"
)

type InMemoryMetricsCollector struct {
	mu                 sync.Mutex
	CurrentSubmissions int64
	SubmissionTotal    int64
	SubmissionPassed   int64
	SubmissionFailed   int64
	SubmissionDegraded int64
	SubmissionEmpty    int64
	CasesJudged        int64
	TotalDuration      time.Duration
	StartTime          time.Time

	verdicts    *xsync.MapOf[string, *xsync.Counter]
	judgeCalls  *xsync.MapOf[string, *xsync.Counter]
	judgeErrors *xsync.MapOf[string, *xsync.Counter]
}

func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	return &InMemoryMetricsCollector{
		StartTime:   time.Now(),
		verdicts:    xsync.NewMapOf[string, *xsync.Counter](),
		judgeCalls:  xsync.NewMapOf[string, *xsync.Counter](),
		judgeErrors: xsync.NewMapOf[string, *xsync.Counter](),
	}
}

var _ SubmissionMetricsCollector = (*InMemoryMetricsCollector)(nil)

// StartSubmission records the start of a submission and returns a function
// to call with its tally when it ends.
func (m *InMemoryMetricsCollector) StartSubmission() func(tally types.SubmissionTally, degraded bool) {
	m.inc(&m.SubmissionTotal)
	m.inc(&m.CurrentSubmissions)
	startTime := time.Now()
	return func(tally types.SubmissionTally, degraded bool) {
		duration := time.Since(startTime)
		m.mu.Lock()
		defer m.mu.Unlock()
		m.CurrentSubmissions--
		m.TotalDuration += duration
		switch {
		case degraded:
			m.SubmissionDegraded++
		case tally.Total == 0:
			m.SubmissionEmpty++
		case tally.Passed == tally.Total:
			m.SubmissionPassed++
			m.CasesJudged += int64(tally.Total)
		default:
			m.SubmissionFailed++
			m.CasesJudged += int64(tally.Total)
		}
	}
}

// IncVerdict counts one judged case by its status description.
func (m *InMemoryMetricsCollector) IncVerdict(description string) {
	counterFor(m.verdicts, description).Inc()
}

func (m *InMemoryMetricsCollector) ObserveJudgeCall(op string, _ time.Duration, err error) {
	counterFor(m.judgeCalls, op).Inc()
	if err != nil {
		counterFor(m.judgeErrors, op).Inc()
	}
}

func (m *InMemoryMetricsCollector) JSON() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	avg := 0.0
	if m.SubmissionTotal > 0 {
		avg = m.TotalDuration.Seconds() / float64(m.SubmissionTotal)
	}

	data := map[string]interface{}{
		"current_submissions":    m.CurrentSubmissions,
		"submission_total":       m.SubmissionTotal,
		"submission_passed":      m.SubmissionPassed,
		"submission_failed":      m.SubmissionFailed,
		"submission_degraded":    m.SubmissionDegraded,
		"submission_empty":       m.SubmissionEmpty,
		"cases_judged":           m.CasesJudged,
		"submission_avg_seconds": avg,
		"start_time":             m.StartTime.Format(time.RFC3339),
		"uptime_seconds":         time.Since(m.StartTime).Seconds(),
		"verdicts":               snapshot(m.verdicts),
		"judge_calls":            snapshot(m.judgeCalls),
		"judge_errors":           snapshot(m.judgeErrors),
	}
	b, _ := json.MarshalIndent(data, "", "  ")
	return b
}

func (m *InMemoryMetricsCollector) PartName() string {
	return "in_memory_metrics"
}

func (m *InMemoryMetricsCollector) inc(field *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field++
}

func counterFor(counters *xsync.MapOf[string, *xsync.Counter], key string) *xsync.Counter {
	c, _ := counters.LoadOrCompute(key, xsync.NewCounter)
	return c
}

func snapshot(counters *xsync.MapOf[string, *xsync.Counter]) map[string]int64 {
	out := make(map[string]int64, counters.Size())
	counters.Range(func(key string, c *xsync.Counter) bool {
		out[key] = c.Value()
		return true
	})
	return out
}
