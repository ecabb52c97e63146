// Package submission judges a source submission against a problem's test
// cases and reduces the verdicts into a tally.
package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/CodeDeck/codedeck_backend/db"
	"github.com/CodeDeck/codedeck_backend/endpoints/metrics"
	"github.com/CodeDeck/codedeck_backend/log"
	"github.com/CodeDeck/codedeck_backend/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	MsgAllPassed     = "All selected test cases passed!"
	MsgNoCases       = "No test cases available for this selection."
	MsgCaseFailed    = "Test case failed"
	msgExecFailedFmt = "Execution failed: %v"
)

var ErrProblemNotFound = errors.New("problem not found")

type Catalog interface {
	Get(id int) (types.Problem, bool)
}

type Executor interface {
	Execute(ctx context.Context, req types.ExecutionRequest) (types.JudgeResult, error)
}

type ResultSink interface {
	Put(result types.JudgeResult)
}

type EventSink interface {
	Enqueue(ev types.SubmissionEvent) bool
}

type Option func(*Orchestrator)

func WithMetrics(m metrics.SubmissionMetricsCollector) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithResultSink(s ResultSink) Option {
	return func(o *Orchestrator) { o.results = s }
}

func WithRunStore(s db.RunStore) Option {
	return func(o *Orchestrator) { o.runs = s }
}

func WithEventSink(s EventSink) Option {
	return func(o *Orchestrator) { o.events = s }
}

// WithMaxParallel caps the judge calls in flight per submission. 0 means no cap.
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) { o.maxParallel = n }
}

func WithClock(c clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

type Orchestrator struct {
	catalog     Catalog
	judge       Executor
	metrics     metrics.SubmissionMetricsCollector
	results     ResultSink
	runs        db.RunStore
	events      EventSink
	maxParallel int
	clock       clockwork.Clock
}

func New(catalog Catalog, judge Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog: catalog,
		judge:   judge,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit judges req against the cases of problemID selected by subset.
// Every selected case is judged even after a failure. A judge error does not
// fail the call; it yields a tally with zero passes and an explanatory message.
// The only error is ErrProblemNotFound.
func (o *Orchestrator) Submit(ctx context.Context, problemID int, req types.SubmitRequest, subset types.Subset) (types.SubmissionTally, error) {
	p, ok := o.catalog.Get(problemID)
	if !ok {
		return types.SubmissionTally{}, fmt.Errorf("%w: %d", ErrProblemNotFound, problemID)
	}

	submissionID := uuid.New()
	start := o.clock.Now()
	finish := func(types.SubmissionTally, bool) {}
	if o.metrics != nil {
		finish = o.metrics.StartSubmission()
	}

	logger := log.Logger.WithFields(logrus.Fields{
		"submission_id": submissionID,
		"problem_id":    problemID,
		"subset":        subset,
	})

	cases := p.Cases(subset)
	var (
		tally    types.SubmissionTally
		degraded bool
	)
	if len(cases) == 0 {
		tally = types.SubmissionTally{Message: MsgNoCases}
	} else {
		results, err := o.fanOut(ctx, req, cases)
		if err != nil {
			degraded = true
			logger.WithError(err).Warn("Submission fan-out failed")
			tally = types.SubmissionTally{Total: len(cases), Message: fmt.Sprintf(msgExecFailedFmt, err)}
		} else {
			tally = Aggregate(results)
			o.record(ctx, logger, submissionID, problemID, results)
		}
	}

	finish(tally, degraded)
	logger.WithFields(logrus.Fields{"passed": tally.Passed, "total": tally.Total}).Info("Submission judged")

	if o.events != nil {
		o.events.Enqueue(types.SubmissionEvent{
			SubmissionID: submissionID,
			ProblemID:    problemID,
			LanguageID:   req.LanguageID,
			Subset:       subset,
			Passed:       tally.Passed,
			Total:        tally.Total,
			Message:      tally.Message,
			Degraded:     degraded,
			DurationMs:   o.clock.Since(start).Milliseconds(),
			SubmittedAt:  start,
		})
	}
	return tally, nil
}

// fanOut runs one judge call per case and returns the results in case order.
func (o *Orchestrator) fanOut(ctx context.Context, req types.SubmitRequest, cases []types.TestCase) ([]types.JudgeResult, error) {
	results := make([]types.JudgeResult, len(cases))

	var g errgroup.Group
	if o.maxParallel > 0 {
		g.SetLimit(o.maxParallel)
	}
	for i, tc := range cases {
		g.Go(func() error {
			res, err := o.judge.Execute(ctx, req.ForCase(tc))
			if err != nil {
				return fmt.Errorf("test case %d: %w", i+1, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Aggregate counts accepted results. The message is the description of the
// first failing result in slice order.
func Aggregate(results []types.JudgeResult) types.SubmissionTally {
	tally := types.SubmissionTally{Total: len(results), Message: MsgAllPassed}
	failed := false
	for _, r := range results {
		if r.Accepted() {
			tally.Passed++
			continue
		}
		if !failed {
			failed = true
			tally.Message = r.Status.Description
			if tally.Message == "" {
				tally.Message = MsgCaseFailed
			}
		}
	}
	return tally
}

func (o *Orchestrator) record(ctx context.Context, logger *logrus.Entry, submissionID uuid.UUID, problemID int, results []types.JudgeResult) {
	runs := make([]types.JudgeRun, len(results))
	for i, r := range results {
		if o.metrics != nil {
			o.metrics.IncVerdict(r.Status.Description)
		}
		if o.results != nil {
			o.results.Put(r)
		}
		runs[i] = types.JudgeRun{
			SubmissionID: submissionID,
			ProblemID:    problemID,
			CaseIndex:    i,
			Token:        r.Token,
			StatusID:     r.Status.ID,
			Status:       r.Status.Description,
		}
	}

	if o.runs != nil {
		if err := o.runs.SaveRuns(ctx, runs); err != nil {
			logger.WithError(err).Error("Failed to persist judge runs")
		}
	}
}
