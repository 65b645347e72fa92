package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"cardbridge/backend/services/serial-bridge/internal/protocol"
	"cardbridge/backend/services/serial-bridge/internal/repository"
)

var sqlCardColumns = []string{"id", "pressure", "temperature", "humidity"}

func newSQLReconciler(t *testing.T) (*Reconciler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewReconciler(repository.NewStore(db), 0, zap.NewNop()), mock
}

func TestSQLReadingForUnknownCardRollsBack(t *testing.T) {
	r, mock := newSQLReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM cards WHERE id = $1 FOR UPDATE")).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(sqlCardColumns))
	mock.ExpectRollback()

	_, err := r.Apply(context.Background(), protocol.InsertReading{CardID: 7, Pressure: 1, Temperature: 2, Humidity: 3})
	if !errors.Is(err, ErrUnknownCard) {
		t.Fatalf("expected ErrUnknownCard, got %v", err)
	}
}

func TestSQLReadingLocksCardThenInserts(t *testing.T) {
	r, mock := newSQLReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM cards WHERE id = $1 FOR UPDATE")).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(sqlCardColumns).AddRow(int64(5), true, true, nil))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO data")).WithArgs(int64(5), int64(10), int64(20), int64(30)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if _, err := r.Apply(context.Background(), protocol.InsertReading{CardID: 5, Pressure: 10, Temperature: 20, Humidity: 30}); err != nil {
		t.Fatalf("apply: %v", err)
	}
}

func TestSQLPurgeFailureIsStoreUnavailable(t *testing.T) {
	r, mock := newSQLReconciler(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM data WHERE card_id = $1")).WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cards SET pressure = NULL")).WithArgs(int64(5)).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	_, err := r.Apply(context.Background(), protocol.PurgeCard{CardID: 5})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSQLQueryRendersStoredFlags(t *testing.T) {
	r, mock := newSQLReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM cards WHERE id = $1")).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(sqlCardColumns).AddRow(int64(3), true, false, nil))
	mock.ExpectCommit()

	reply, err := r.Apply(context.Background(), protocol.QueryCard{CardID: 3})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := reply.String(); got != "pressure:True,temperature:False,humidity:None" {
		t.Fatalf("unexpected reply %q", got)
	}
}
