package metrics

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/CodeDeck/codedeck_backend/types"
)

func TestInitialState(t *testing.T) {
	m := NewInMemoryMetricsCollector()

	if m.CurrentSubmissions != 0 ||
		m.SubmissionTotal != 0 ||
		m.SubmissionPassed != 0 ||
		m.SubmissionFailed != 0 ||
		m.SubmissionDegraded != 0 {
		t.Fatalf("initial counters not zero: %+v", m)
	}

	if time.Since(m.StartTime) < 0 {
		t.Fatalf("start time should be in the past")
	}
}

func TestStartSubmission(t *testing.T) {
	m := NewInMemoryMetricsCollector()

	m.StartSubmission()(types.SubmissionTally{Passed: 2, Total: 2}, false)
	m.StartSubmission()(types.SubmissionTally{Passed: 1, Total: 3}, false)
	m.StartSubmission()(types.SubmissionTally{Total: 4}, true)
	m.StartSubmission()(types.SubmissionTally{}, false)
	done := m.StartSubmission()

	if m.CurrentSubmissions != 1 {
		t.Fatalf("CurrentSubmissions=%d, want 1", m.CurrentSubmissions)
	}
	done(types.SubmissionTally{Passed: 1, Total: 1}, false)

	if m.SubmissionTotal != 5 ||
		m.SubmissionPassed != 2 ||
		m.SubmissionFailed != 1 ||
		m.SubmissionDegraded != 1 ||
		m.SubmissionEmpty != 1 ||
		m.CurrentSubmissions != 0 {
		t.Fatalf("counters did not track outcomes: %+v", m)
	}
	if m.CasesJudged != 6 {
		t.Fatalf("CasesJudged=%d, want 6", m.CasesJudged)
	}
}

func TestJSON_Output(t *testing.T) {
	m := NewInMemoryMetricsCollector()

	m.StartSubmission()(types.SubmissionTally{Passed: 1, Total: 1}, false)
	m.IncVerdict("Accepted")
	m.IncVerdict("Accepted")
	m.IncVerdict("Wrong Answer")
	m.ObserveJudgeCall("execute", time.Millisecond, nil)
	m.ObserveJudgeCall("execute", time.Millisecond, errors.New("boom"))

	var data map[string]interface{}
	if err := json.Unmarshal(m.JSON(), &data); err != nil {
		t.Fatalf("JSON unmarshal error: %v", err)
	}

	if data["submission_total"] != float64(1) {
		t.Fatalf("submission_total=%v, want 1", data["submission_total"])
	}
	verdicts := data["verdicts"].(map[string]interface{})
	if verdicts["Accepted"] != float64(2) || verdicts["Wrong Answer"] != float64(1) {
		t.Fatalf("verdicts=%v", verdicts)
	}
	calls := data["judge_calls"].(map[string]interface{})
	errs := data["judge_errors"].(map[string]interface{})
	if calls["execute"] != float64(2) || errs["execute"] != float64(1) {
		t.Fatalf("judge_calls=%v judge_errors=%v", calls, errs)
	}

	if _, err := time.Parse(time.RFC3339, data["start_time"].(string)); err != nil {
		t.Fatalf("start_time not RFC3339: %v", data["start_time"])
	}
}

func TestPartName(t *testing.T) {
	m := NewInMemoryMetricsCollector()
	if m.PartName() != "in_memory_metrics" {
		t.Fatalf("PartName=%q, want in_memory_metrics", m.PartName())
	}
}

func TestConcurrencySafety(t *testing.T) {
	m := NewInMemoryMetricsCollector()

	const n = 5000
	done := make(chan struct{}, n)

	for range n {
		go func() {
			end := m.StartSubmission()
			m.IncVerdict("Accepted")
			end(types.SubmissionTally{Passed: 1, Total: 1}, false)
			done <- struct{}{}
		}()
	}

	for range n {
		<-done
	}

	if m.SubmissionTotal != n || m.SubmissionPassed != n {
		t.Fatalf("SubmissionTotal=%d SubmissionPassed=%d, want %d", m.SubmissionTotal, m.SubmissionPassed, n)
	}
	if v, _ := m.verdicts.Load("Accepted"); v.Value() != n {
		t.Fatalf("Accepted verdicts=%d, want %d", v.Value(), n)
	}
}
