package db

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mediwatch/internal/types"
)

var repoNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestAlertRepository_Create(t *testing.T) {
	db := &mockDBTX{}
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	repo := NewAlertRepository(db)
	err := repo.Create(t.Context(), &types.AlertRecord{
		ID:         "alert-1",
		SessionID:  "sess-1",
		PatientID:  "patient-1",
		Category:   types.CategoryFall,
		Confidence: 0.9,
		ObservedAt: repoNow,
	})

	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestAlertRepository_Create_DBError(t *testing.T) {
	db := &mockDBTX{}
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection reset"))

	repo := NewAlertRepository(db)
	err := repo.Create(t.Context(), &types.AlertRecord{ID: "alert-1"})

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestAlertRepository_Acknowledge(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := &mockDBTX{}
		db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
			Return(pgconn.NewCommandTag("UPDATE 1"), nil)

		err := NewAlertRepository(db).Acknowledge(t.Context(), "alert-1", repoNow)
		require.NoError(t, err)
	})

	t.Run("already acknowledged", func(t *testing.T) {
		db := &mockDBTX{}
		db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
			Return(pgconn.NewCommandTag("UPDATE 0"), nil)
		db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
			Return(&mockRow{scan: func(dest ...any) error {
				*dest[0].(*bool) = true
				return nil
			}})

		err := NewAlertRepository(db).Acknowledge(t.Context(), "alert-1", repoNow)

		var appErr *types.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, types.ErrCodeConflictAcknowledged, appErr.Code)
	})

	t.Run("not found", func(t *testing.T) {
		db := &mockDBTX{}
		db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
			Return(pgconn.NewCommandTag("UPDATE 0"), nil)
		db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
			Return(&mockRow{scan: func(dest ...any) error {
				*dest[0].(*bool) = false
				return nil
			}})

		err := NewAlertRepository(db).Acknowledge(t.Context(), "missing", repoNow)

		var appErr *types.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, types.ErrCodeNotFoundAlert, appErr.Code)
	})
}

func TestAlertRepository_ListBySession(t *testing.T) {
	rows := &sliceRows{rows: []func(dest ...any) error{
		func(dest ...any) error {
			*dest[0].(*string) = "alert-2"
			*dest[1].(*string) = "sess-1"
			*dest[2].(*string) = "patient-1"
			*dest[3].(*string) = "seizure"
			*dest[4].(*float64) = 0.82
			*dest[5].(*string) = "convulsive movement"
			*dest[6].(*string) = "Room 204"
			*dest[7].(*time.Time) = repoNow
			*dest[8].(*bool) = false
			*dest[9].(**time.Time) = nil
			return nil
		},
		func(dest ...any) error {
			*dest[0].(*string) = "alert-1"
			*dest[1].(*string) = "sess-1"
			*dest[2].(*string) = "patient-1"
			*dest[3].(*string) = "fall"
			*dest[4].(*float64) = 0.91
			*dest[5].(*string) = "patient on floor"
			*dest[6].(*string) = "Room 204"
			*dest[7].(*time.Time) = repoNow.Add(-time.Minute)
			*dest[8].(*bool) = true
			ack := repoNow
			*dest[9].(**time.Time) = &ack
			return nil
		},
	}}

	db := &mockDBTX{}
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(rows, nil)

	alerts, err := NewAlertRepository(db).ListBySession(t.Context(), "sess-1", 10)

	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, types.CategorySeizure, alerts[0].Category)
	assert.True(t, alerts[1].Acknowledged)
	require.NotNil(t, alerts[1].AcknowledgedAt)
}

func TestAlertRepository_CountByPatientSince(t *testing.T) {
	db := &mockDBTX{}
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scan: func(dest ...any) error {
			*dest[0].(*int) = 3
			return nil
		}})

	count, err := NewAlertRepository(db).CountByPatientSince(t.Context(), "patient-1", repoNow.Add(-time.Hour))

	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestAlertRepository_LastEmergency_NoHistory(t *testing.T) {
	db := &mockDBTX{}
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scan: func(dest ...any) error {
			return pgx.ErrNoRows
		}})

	last, err := NewAlertRepository(db).LastEmergency(t.Context(), "patient-1")

	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestAlertRepository_HasUnacknowledged(t *testing.T) {
	db := &mockDBTX{}
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scan: func(dest ...any) error {
			*dest[0].(*bool) = true
			return nil
		}})

	exists, err := NewAlertRepository(db).HasUnacknowledged(t.Context(), "patient-1", types.CategoryFall)

	require.NoError(t, err)
	assert.True(t, exists)
}
