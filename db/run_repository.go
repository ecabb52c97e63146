package db

import (
	"context"
	"fmt"

	"github.com/CodeDeck/codedeck_backend/types"
	"github.com/jackc/pgx/v5"
)

// RunStore persists the individual judge runs of a submission.
type RunStore interface {
	SaveRuns(ctx context.Context, runs []types.JudgeRun) error
}

type RunRepository struct {
	pool Repository
}

func NewRunRepository(pool Repository) *RunRepository {
	return &RunRepository{pool: pool}
}

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS judge_runs (
		submission_id UUID NOT NULL,
		case_index    INT NOT NULL,
		problem_id    INT NOT NULL,
		token         TEXT NOT NULL DEFAULT '',
		status_id     INT NOT NULL,
		status        TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (submission_id, case_index)
	)`

const insertRun = `
	INSERT INTO judge_runs (submission_id, case_index, problem_id, token, status_id, status)
	VALUES ($1, $2, $3, $4, $5, $6)`

// EnsureSchema creates the judge_runs table when it does not exist.
func (rr *RunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := rr.pool.Exec(ctx, createRunsTable); err != nil {
		return fmt.Errorf("failed to create judge_runs table: %w", err)
	}
	return nil
}

// SaveRuns writes all runs in a single transaction.
func (rr *RunRepository) SaveRuns(ctx context.Context, runs []types.JudgeRun) error {
	if len(runs) == 0 {
		return nil
	}

	tx, err := rr.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, run := range runs {
		if _, err := tx.Exec(ctx, insertRun,
			run.SubmissionID,
			run.CaseIndex,
			run.ProblemID,
			run.Token,
			run.StatusID,
			run.Status,
		); err != nil {
			return fmt.Errorf("failed to save run %d of submission %s: %w", run.CaseIndex, run.SubmissionID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit judge runs: %w", err)
	}
	return nil
}
