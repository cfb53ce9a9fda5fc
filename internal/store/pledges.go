package store

import (
	"context"
	"time"
)

// CreatePledge registers a new donor pledge
func (s *Store) CreatePledge(ctx context.Context, donorEmail string, perPostCents int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pledges (donor_email, per_post_cents, accrued_cents, active, created_at)
		VALUES (?, ?, 0, 1, ?)
	`, donorEmail, perPostCents, time.Now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecordFlagEvent accrues one flagged post against every active pledge and
// records the event. Runs in a transaction so a crash never half-applies a
// flag across the ledger.
func (s *Store) RecordFlagEvent(ctx context.Context, postID string, flaggedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO flag_events (post_id, flagged_at) VALUES (?, ?)
	`, postID, flaggedAt); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE pledges SET accrued_cents = accrued_cents + per_post_cents
		WHERE active = 1
	`); err != nil {
		return err
	}

	return tx.Commit()
}

// ListPledges returns all pledges, active first
func (s *Store) ListPledges(ctx context.Context) ([]Pledge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, donor_email, per_post_cents, accrued_cents, active, created_at
		FROM pledges ORDER BY active DESC, created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pledges []Pledge
	for rows.Next() {
		var p Pledge
		if err := rows.Scan(&p.ID, &p.DonorEmail, &p.PerPostCents,
			&p.AccruedCents, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		pledges = append(pledges, p)
	}
	return pledges, rows.Err()
}

// CountFlagEvents returns the number of recorded flag events
func (s *Store) CountFlagEvents(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flag_events`).Scan(&n)
	return n, err
}
