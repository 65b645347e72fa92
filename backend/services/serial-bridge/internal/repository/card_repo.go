package repository

import (
	"context"
	"database/sql"
	"errors"

	"cardbridge/backend/services/serial-bridge/internal/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CardRepository manages rows of the cards table.
type CardRepository struct {
	db DBTX
}

// NewCardRepository returns repository.
func NewCardRepository(db DBTX) *CardRepository {
	return &CardRepository{db: db}
}

// Get returns the card with the given id or ErrNotFound.
func (r *CardRepository) Get(ctx context.Context, id int64) (*models.Card, error) {
	const query = `
		SELECT id, pressure, temperature, humidity
		FROM cards
		WHERE id = $1
	`
	return r.scanOne(ctx, query, id)
}

// GetForUpdate is Get plus a row lock held until the surrounding transaction ends.
func (r *CardRepository) GetForUpdate(ctx context.Context, id int64) (*models.Card, error) {
	const query = `
		SELECT id, pressure, temperature, humidity
		FROM cards
		WHERE id = $1
		FOR UPDATE
	`
	return r.scanOne(ctx, query, id)
}

func (r *CardRepository) scanOne(ctx context.Context, query string, id int64) (*models.Card, error) {
	var card models.Card
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&card.ID,
		&card.Pressure,
		&card.Temperature,
		&card.Humidity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Insert creates a new card row.
func (r *CardRepository) Insert(ctx context.Context, card *models.Card) error {
	const query = `
		INSERT INTO cards (id, pressure, temperature, humidity)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, card.ID, card.Pressure, card.Temperature, card.Humidity)
	return err
}

// UpdateFlags overwrites the three flags of an existing card.
func (r *CardRepository) UpdateFlags(ctx context.Context, card *models.Card) error {
	const query = `
		UPDATE cards
		SET pressure = $2,
		    temperature = $3,
		    humidity = $4
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, card.ID, card.Pressure, card.Temperature, card.Humidity)
	return err
}

// ResetFlags sets all three flags to NULL. It reports whether a row matched.
func (r *CardRepository) ResetFlags(ctx context.Context, id int64) (bool, error) {
	const query = `
		UPDATE cards
		SET pressure = NULL,
		    temperature = NULL,
		    humidity = NULL
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
