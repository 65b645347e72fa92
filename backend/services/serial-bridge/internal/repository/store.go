package repository

import (
	"context"
	"database/sql"

	libdb "cardbridge/backend/libs/db"
	"cardbridge/backend/services/serial-bridge/internal/models"
)

// Tx is the set of store operations available to a single command.
type Tx interface {
	GetCard(ctx context.Context, id int64) (*models.Card, error)
	LockCard(ctx context.Context, id int64) (*models.Card, error)
	InsertCard(ctx context.Context, card *models.Card) error
	UpdateCardFlags(ctx context.Context, card *models.Card) error
	ResetCardFlags(ctx context.Context, id int64) (bool, error)
	InsertReading(ctx context.Context, reading *models.Reading) error
	DeleteReadings(ctx context.Context, cardID int64) (int64, error)
}

// Store opens one transaction per command.
type Store struct {
	db *sql.DB
}

// NewStore returns store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithinTx runs fn against a fresh transaction, committing only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return libdb.WithTx(ctx, s.db, func(sqlTx *sql.Tx) error {
		return fn(ctx, &txRepos{
			cards:    NewCardRepository(sqlTx),
			readings: NewReadingRepository(sqlTx),
		})
	})
}

type txRepos struct {
	cards    *CardRepository
	readings *ReadingRepository
}

func (t *txRepos) GetCard(ctx context.Context, id int64) (*models.Card, error) {
	return t.cards.Get(ctx, id)
}

func (t *txRepos) LockCard(ctx context.Context, id int64) (*models.Card, error) {
	return t.cards.GetForUpdate(ctx, id)
}

func (t *txRepos) InsertCard(ctx context.Context, card *models.Card) error {
	return t.cards.Insert(ctx, card)
}

func (t *txRepos) UpdateCardFlags(ctx context.Context, card *models.Card) error {
	return t.cards.UpdateFlags(ctx, card)
}

func (t *txRepos) ResetCardFlags(ctx context.Context, id int64) (bool, error) {
	return t.cards.ResetFlags(ctx, id)
}

func (t *txRepos) InsertReading(ctx context.Context, reading *models.Reading) error {
	return t.readings.Insert(ctx, reading)
}

func (t *txRepos) DeleteReadings(ctx context.Context, cardID int64) (int64, error) {
	return t.readings.DeleteByCard(ctx, cardID)
}
