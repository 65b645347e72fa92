package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cardbridge/backend/services/serial-bridge/internal/models"
	"cardbridge/backend/services/serial-bridge/internal/protocol"
	"cardbridge/backend/services/serial-bridge/internal/repository"
)

const defaultStoreTimeout = 5 * time.Second

// TxRunner opens one store transaction per call.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error
}

// Reconciler applies parsed commands to the card store. It keeps no state
// between commands; every decision re-reads the store inside the command's
// own transaction.
type Reconciler struct {
	store   TxRunner
	timeout time.Duration
	logger  *zap.Logger
}

// NewReconciler returns reconciler. timeout bounds each command's store work.
func NewReconciler(store TxRunner, timeout time.Duration, logger *zap.Logger) *Reconciler {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Reconciler{
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// Apply executes cmd. A non-nil Reply must be written back to the device;
// only QueryCard produces one.
func (r *Reconciler) Apply(ctx context.Context, cmd protocol.Command) (*protocol.Reply, error) {
	switch c := cmd.(type) {
	case protocol.UpsertCardFlags:
		return nil, r.upsertCardFlags(ctx, c)
	case protocol.InsertReading:
		return nil, r.insertReading(ctx, c)
	case protocol.QueryCard:
		return r.queryCard(ctx, c)
	case protocol.PurgeCard:
		return nil, r.purgeCard(ctx, c)
	case protocol.Unrecognized:
		return nil, nil
	default:
		return nil, fmt.Errorf("service: unsupported command %T", cmd)
	}
}

func (r *Reconciler) upsertCardFlags(ctx context.Context, cmd protocol.UpsertCardFlags) error {
	var created bool
	err := r.withinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		card, err := tx.LockCard(ctx, cmd.CardID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			card = &models.Card{ID: cmd.CardID}
			card.SetFlags(cmd.Pressure, cmd.Temperature, cmd.Humidity)
			created = true
			return tx.InsertCard(ctx, card)
		case err != nil:
			return err
		}
		card.SetFlags(cmd.Pressure, cmd.Temperature, cmd.Humidity)
		return tx.UpdateCardFlags(ctx, card)
	})
	if err != nil {
		return err
	}
	r.logger.Debug("card flags stored",
		zap.Int64("card_id", cmd.CardID),
		zap.Bool("created", created),
		zap.Bool("pressure", cmd.Pressure),
		zap.Bool("temperature", cmd.Temperature),
		zap.Bool("humidity", cmd.Humidity),
	)
	return nil
}

func (r *Reconciler) insertReading(ctx context.Context, cmd protocol.InsertReading) error {
	err := r.withinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.LockCard(ctx, cmd.CardID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %d", ErrUnknownCard, cmd.CardID)
			}
			return err
		}
		return tx.InsertReading(ctx, &models.Reading{
			CardID:      cmd.CardID,
			Pressure:    cmd.Pressure,
			Temperature: cmd.Temperature,
			Humidity:    cmd.Humidity,
		})
	})
	if err != nil {
		return err
	}
	r.logger.Debug("reading stored", zap.Int64("card_id", cmd.CardID))
	return nil
}

func (r *Reconciler) queryCard(ctx context.Context, cmd protocol.QueryCard) (*protocol.Reply, error) {
	var card *models.Card
	err := r.withinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		found, err := tx.GetCard(ctx, cmd.CardID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %d", ErrUnknownCard, cmd.CardID)
			}
			return err
		}
		card = found
		return nil
	})
	if errors.Is(err, ErrUnknownCard) {
		r.logger.Warn("query for unknown card",
			zap.String("fault", "unknown_card"),
			zap.Int64("card_id", cmd.CardID),
		)
		return protocol.NoMatchReply(cmd.CardID), nil
	}
	if err != nil {
		return nil, err
	}
	return protocol.FlagsReply(card.ID, card.Pressure, card.Temperature, card.Humidity), nil
}

func (r *Reconciler) purgeCard(ctx context.Context, cmd protocol.PurgeCard) error {
	var (
		removed int64
		matched bool
	)
	err := r.withinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if removed, err = tx.DeleteReadings(ctx, cmd.CardID); err != nil {
			return err
		}
		matched, err = tx.ResetCardFlags(ctx, cmd.CardID)
		return err
	})
	if err != nil {
		return err
	}
	r.logger.Info("deleted readings and reset card settings",
		zap.Int64("card_id", cmd.CardID),
		zap.Int64("readings_removed", removed),
		zap.Bool("card_found", matched),
	)
	return nil
}

// withinTx bounds the transaction by the store timeout and classifies
// failures: ErrUnknownCard passes through, everything else is ErrStoreUnavailable.
func (r *Reconciler) withinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.store.WithinTx(ctx, fn)
	if err == nil || errors.Is(err, ErrUnknownCard) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
