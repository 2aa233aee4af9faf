package types

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code ErrorCode
		want int
	}{
		{"validation maps to 400", ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{"auth maps to 401", ErrCodeAuthTokenInvalid, http.StatusUnauthorized},
		{"not found maps to 404", ErrCodeNotFoundSession, http.StatusNotFound},
		{"conflict maps to 409", ErrCodeConflictAcknowledged, http.StatusConflict},
		{"busy maps to 202", ErrCodeConflictBusy, http.StatusAccepted},
		{"upstream maps to 502", ErrCodeUpstreamVision, http.StatusBadGateway},
		{"rate limited maps to 429", ErrCodeUpstreamRateLimited, http.StatusTooManyRequests},
		{"internal maps to 500", ErrCodeInternalDB, http.StatusInternalServerError},
		{"unknown maps to 500", ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	appErr := NewAppError(ErrCodeUpstreamVision, "vision sidecar unreachable", inner)

	require.ErrorIs(t, appErr, inner)
	assert.Equal(t, "upstream_vision_unavailable: vision sidecar unreachable", appErr.Error())
}

func TestAppError_WithDetails_DoesNotMutateOriginal(t *testing.T) {
	base := NewAppErrorWithDetails(ErrCodeValidationMissingField, "missing field", nil,
		map[string]any{"field": "patient_id"})

	enriched := base.WithDetails(map[string]any{"hint": "required"})

	assert.Len(t, base.Details, 1)
	assert.Len(t, enriched.Details, 2)
	assert.Equal(t, "patient_id", enriched.Details["field"])
}

func TestUrgencyForCategory(t *testing.T) {
	assert.Equal(t, UrgencyCritical, UrgencyForCategory(CategoryUnconscious))
	assert.Equal(t, UrgencyCritical, UrgencyForCategory(CategoryChoking))
	assert.Equal(t, UrgencyWarning, UrgencyForCategory(CategoryFall))
	assert.Equal(t, UrgencyWarning, UrgencyForCategory(CategorySeizure))
	assert.Equal(t, UrgencyWatch, UrgencyForCategory(CategoryDistress))
	assert.Equal(t, UrgencyWatch, UrgencyForCategory(CategoryNormal))
}

func TestValidCategory(t *testing.T) {
	for _, c := range []EmergencyCategory{
		CategoryFall, CategoryChoking, CategorySeizure,
		CategoryUnconscious, CategoryDistress, CategoryNormal,
	} {
		assert.True(t, ValidCategory(c), string(c))
	}
	assert.False(t, ValidCategory(EmergencyCategory("panic")))
}
