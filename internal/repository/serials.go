package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SerialsRepository treats the serials table's AUTO_INCREMENT id as the
// mailbox serial sequence. One row per registration.
type SerialsRepository interface {
	Allocate(ctx context.Context, registrationID string) (uint64, error)
	SetFloor(ctx context.Context, floor uint64) error
}

type SerialsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSerialsRepository(db *sqlx.DB) *SerialsRepositoryImpl {
	return &SerialsRepositoryImpl{db: db}
}

// withTx runs fn in a new transaction, committing when fn succeeds.
func (r *SerialsRepositoryImpl) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}

	return t.Commit()
}

// Allocate inserts the registration and returns its serial.
func (r *SerialsRepositoryImpl) Allocate(ctx context.Context, registrationID string) (uint64, error) {
	const q = `
		INSERT INTO serials (registration_id, created_at)
		VALUES (?, NOW())
	`
	var serial uint64
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q, registrationID)
		if err != nil {
			return err
		}

		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		serial = uint64(id)
		return nil
	})

	return serial, err
}

// SetFloor raises the next serial to floor. InnoDB ignores values at or
// below the current maximum, so this never rewinds the sequence.
func (r *SerialsRepositoryImpl) SetFloor(ctx context.Context, floor uint64) error {
	// DDL takes no placeholders; floor is an integer.
	q := fmt.Sprintf("ALTER TABLE serials AUTO_INCREMENT = %d", floor)
	_, err := r.db.ExecContext(ctx, q)
	return err
}
