package repository

import (
	"context"
	"fmt"

	"github.com/jmehdipour/qmail/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// RegistrationFilter narrows a registrations listing. Zero values match all.
type RegistrationFilter struct {
	Class    model.Tier
	LastName string
	Limit    int
	Offset   int
}

// CHRegistrationsRepository archives and lists registrations in ClickHouse.
type CHRegistrationsRepository interface {
	InsertBatch(ctx context.Context, rows []model.RegistrationRow) error
	List(ctx context.Context, f RegistrationFilter) ([]model.RegistrationRow, error)
}

type chRegistrationsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHRegistrationsRepository(ch *sqlx.DB) CHRegistrationsRepository {
	return &chRegistrationsRepository{ch: ch}
}

// InsertBatch sends rows as one ClickHouse block. clickhouse-go buffers the
// prepared statement's rows and flushes them on Commit.
func (r *chRegistrationsRepository) InsertBatch(ctx context.Context, rows []model.RegistrationRow) error {
	if len(rows) == 0 {
		return nil
	}

	const q = `
		INSERT INTO qmail.registrations
		    (id, first_name, last_name, serial_number, class, amount_paid, locker_key, fallback, created_at)
	`

	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		amount, err := decimal.NewFromString(row.AmountPaid)
		if err != nil {
			return fmt.Errorf("amount of %s: %w", row.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			row.ID, row.FirstName, row.LastName, row.SerialNumber, row.Class,
			amount, row.LockerKey, row.Fallback, row.CreatedAt,
		); err != nil {
			return fmt.Errorf("append %s: %w", row.ID, err)
		}
	}

	return tx.Commit()
}

func (r *chRegistrationsRepository) List(ctx context.Context, f RegistrationFilter) ([]model.RegistrationRow, error) {
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = defaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `
		SELECT id, first_name, last_name, serial_number, class, toString(amount_paid) AS amount_paid,
		       locker_key, fallback, created_at
		FROM qmail.registrations FINAL
		WHERE 1 = 1
	`
	var args []any

	if f.Class != "" {
		q += " AND class = ?"
		args = append(args, f.Class.String())
	}
	if f.LastName != "" {
		q += " AND last_name = ?"
		args = append(args, f.LastName)
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	var rows []model.RegistrationRow
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
