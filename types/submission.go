package types

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionTally aggregates the verdicts of one submission.
type SubmissionTally struct {
	Passed  int    `json:"passed"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// SubmissionEvent is published after every judged submission.
type SubmissionEvent struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	ProblemID    int       `json:"problem_id"`
	LanguageID   int       `json:"language_id"`
	Subset       Subset    `json:"subset"`
	Passed       int       `json:"passed"`
	Total        int       `json:"total"`
	Message      string    `json:"message"`
	Degraded     bool      `json:"degraded"`
	DurationMs   int64     `json:"duration_ms"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// JudgeRun is one judged test case of a submission.
type JudgeRun struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	ProblemID    int       `json:"problem_id"`
	CaseIndex    int       `json:"case_index"`
	Token        string    `json:"token"`
	StatusID     int       `json:"status_id"`
	Status       string    `json:"status"`
}
