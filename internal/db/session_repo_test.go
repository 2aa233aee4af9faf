package db

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mediwatch/internal/types"
)

func TestSessionRepository_Create(t *testing.T) {
	db := &mockDBTX{}
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := NewSessionRepository(db).Create(t.Context(), &types.MonitorSession{
		ID:        "sess-1",
		PatientID: "patient-1",
		Location:  "Room 204",
		Status:    types.SessionActive,
		StartedAt: repoNow,
	})

	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestSessionRepository_Stop(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := &mockDBTX{}
		db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
			Return(pgconn.NewCommandTag("UPDATE 1"), nil)

		require.NoError(t, NewSessionRepository(db).Stop(t.Context(), "sess-1", repoNow))
	})

	t.Run("already stopped", func(t *testing.T) {
		db := &mockDBTX{}
		db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
			Return(pgconn.NewCommandTag("UPDATE 0"), nil)
		db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
			Return(&mockRow{scan: func(dest ...any) error {
				*dest[0].(*bool) = true
				return nil
			}})

		err := NewSessionRepository(db).Stop(t.Context(), "sess-1", repoNow)

		var appErr *types.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, types.ErrCodeConflictSessionStopped, appErr.Code)
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

		err := NewSessionRepository(db).Stop(t.Context(), "missing", repoNow)

		var appErr *types.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, types.ErrCodeNotFoundSession, appErr.Code)
	})
}

func TestSessionRepository_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := &mockDBTX{}
		db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
			Return(&mockRow{scan: func(dest ...any) error {
				*dest[0].(*string) = "sess-1"
				*dest[1].(*string) = "patient-1"
				*dest[2].(*string) = "Room 204"
				*dest[3].(*string) = "active"
				*dest[4].(*time.Time) = repoNow
				*dest[5].(**time.Time) = nil
				return nil
			}})

		s, err := NewSessionRepository(db).GetByID(t.Context(), "sess-1")

		require.NoError(t, err)
		assert.Equal(t, types.SessionActive, s.Status)
		assert.Nil(t, s.StoppedAt)
	})

	t.Run("not found", func(t *testing.T) {
		db := &mockDBTX{}
		db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
			Return(&mockRow{scan: func(dest ...any) error {
				return pgx.ErrNoRows
			}})

		_, err := NewSessionRepository(db).GetByID(t.Context(), "missing")

		var appErr *types.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, types.ErrCodeNotFoundSession, appErr.Code)
	})
}

func TestPatientRepository_GetByID_NotFound(t *testing.T) {
	db := &mockDBTX{}
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scan: func(dest ...any) error {
			return pgx.ErrNoRows
		}})

	_, err := NewPatientRepository(db).GetByID(t.Context(), "missing")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundPatient, appErr.Code)
}

func TestPatientRepository_LatestVitals_NoSamples(t *testing.T) {
	db := &mockDBTX{}
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scan: func(dest ...any) error {
			return pgx.ErrNoRows
		}})

	v, err := NewPatientRepository(db).LatestVitals(t.Context(), "patient-1")

	require.NoError(t, err)
	assert.Nil(t, v)
}
