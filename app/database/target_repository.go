package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var _ TargetRepository = (*TargetRepo)(nil)

type TargetRepo struct {
	db *DB
}

func NewTargetRepository(db *DB) *TargetRepo {
	return &TargetRepo{db: db}
}

func (r *TargetRepo) ListTargets(ctx context.Context) ([]ProbeTarget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, label, address, last_set_time, ping, error
		FROM ping
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list probe targets: %w", err)
	}
	defer rows.Close()

	targets := []ProbeTarget{}
	for rows.Next() {
		var target ProbeTarget
		err := rows.Scan(&target.ID, &target.Label, &target.Address, &target.UpdatedAt, &target.RTT, &target.LastError)
		if err != nil {
			return nil, fmt.Errorf("failed to scan probe target row: %w", err)
		}
		targets = append(targets, target)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating probe target rows: %w", err)
	}

	return targets, nil
}

// CreateTarget inserts a target in the "not yet probed" state
func (r *TargetRepo) CreateTarget(ctx context.Context, label, address string) (*ProbeTarget, error) {
	target := ProbeTarget{Label: label, Address: address, UpdatedAt: 0, RTT: RTTNotProbed}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO ping (label, address, last_set_time, ping, error)
		VALUES (?, ?, ?, ?, '')
		RETURNING id
	`, label, address, target.UpdatedAt, target.RTT).Scan(&target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create probe target: %w", err)
	}

	return &target, nil
}

// UpsertTarget matches an existing target by address and refreshes its label,
// otherwise inserts it. The observation columns are left alone.
func (r *TargetRepo) UpsertTarget(ctx context.Context, label, address string) (*ProbeTarget, error) {
	var target ProbeTarget
	err := r.db.QueryRowContext(ctx, `
		SELECT id, label, address, last_set_time, ping, error
		FROM ping
		WHERE address = ?
		ORDER BY id
		LIMIT 1
	`, address).Scan(&target.ID, &target.Label, &target.Address, &target.UpdatedAt, &target.RTT, &target.LastError)

	if errors.Is(err, sql.ErrNoRows) {
		return r.CreateTarget(ctx, label, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get probe target by address: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE ping SET label = ? WHERE id = ?`, label, target.ID); err != nil {
		return nil, fmt.Errorf("failed to update probe target: %w", err)
	}

	target.Label = label
	return &target, nil
}

// UpdateObservation overwrites the latest observation of a target
func (r *TargetRepo) UpdateObservation(ctx context.Context, id int64, rtt int64, lastError string, at int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ping
		SET ping = ?, error = ?, last_set_time = ?
		WHERE id = ?
	`, rtt, lastError, at, id)
	if err != nil {
		return fmt.Errorf("failed to update probe observation: %w", err)
	}

	return nil
}

func (r *TargetRepo) GetTargetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ping").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get probe target count: %w", err)
	}
	return count, nil
}
