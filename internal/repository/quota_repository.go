package repository

import (
	"database/sql"
	"time"

	"github.com/slugzin/leadflow-backend/internal/model"
)

// QuotaRepository is the authoritative accounting store: one row per
// operator and resource kind, reset daily.
type QuotaRepository struct {
	DB *sql.DB
}

// Consume grants up to quantity against the operator's allowance and
// records the consumption, all under one row lock. Granted may be less
// than requested; zero means the allowance is exhausted.
func (r *QuotaRepository) Consume(operatorID string, kind model.ResourceKind, quantity int) (granted, remaining int, err error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	query := `
        SELECT daily_limit, daily_bonus, used, reset_at
        FROM quota_usage
        WHERE operator_id=$1 AND resource_kind=$2
        FOR UPDATE
    `
	var state model.QuotaState
	err = tx.QueryRow(query, operatorID, kind).Scan(&state.Limit, &state.DailyBonus, &state.Used, &state.ResetAt)
	if err != nil {
		return 0, 0, err
	}

	now := time.Now()
	if now.After(state.ResetAt) {
		state.Used = 0
		state.ResetAt = nextMidnight(now)
	}

	granted = quantity
	if rem := state.Remaining(); granted > rem {
		granted = rem
	}
	state.Used += granted

	update := `
        UPDATE quota_usage SET used=$1, reset_at=$2
        WHERE operator_id=$3 AND resource_kind=$4
    `
	if _, err = tx.Exec(update, state.Used, state.ResetAt, operatorID, kind); err != nil {
		return 0, 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, err
	}
	return granted, state.Remaining(), nil
}

// Usage reports the current allowance rows for the operator.
func (r *QuotaRepository) Usage(operatorID string) ([]model.QuotaState, error) {
	query := `
        SELECT resource_kind, daily_limit, used, daily_bonus, reset_at
        FROM quota_usage WHERE operator_id=$1
        ORDER BY resource_kind
    `
	rows, err := r.DB.Query(query, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := []model.QuotaState{}
	for rows.Next() {
		var s model.QuotaState
		if err := rows.Scan(&s.ResourceKind, &s.Limit, &s.Used, &s.DailyBonus, &s.ResetAt); err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

func nextMidnight(now time.Time) time.Time {
	next := now.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, now.Location())
}

