package repository

import (
	"context"

	"cardbridge/backend/services/serial-bridge/internal/models"
)

// ReadingRepository persists measurement samples in the data table.
type ReadingRepository struct {
	db DBTX
}

// NewReadingRepository returns repository.
func NewReadingRepository(db DBTX) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Insert stores a reading.
func (r *ReadingRepository) Insert(ctx context.Context, reading *models.Reading) error {
	const query = `
		INSERT INTO data (card_id, pressure, temperature, humidity)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query,
		reading.CardID,
		reading.Pressure,
		reading.Temperature,
		reading.Humidity,
	)
	return err
}

// DeleteByCard removes every reading of a card and returns how many went.
func (r *ReadingRepository) DeleteByCard(ctx context.Context, cardID int64) (int64, error) {
	const query = `DELETE FROM data WHERE card_id = $1`
	res, err := r.db.ExecContext(ctx, query, cardID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
