package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediwatch/internal/types"
)

type stubSpeech struct {
	audio []byte
	err   error
	texts []string
}

func (s *stubSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.texts = append(s.texts, text)
	if s.err != nil {
		return nil, s.err
	}
	return s.audio, nil
}

func newMediaRouter(detector *stubDetector, speech *stubSpeech) chi.Router {
	r := chi.NewRouter()
	NewMediaHandler(detector, speech, testValidator(), testLogger()).RegisterRoutes(r)
	return r
}

func TestHandleDetect(t *testing.T) {
	detector := &stubDetector{persons: 2}
	router := newMediaRouter(detector, &stubSpeech{})

	rec := doJSON(t, router, http.MethodPost, "/detect", `{"frame": "`+validFrame+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data types.DetectionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Persons, 2)
	assert.Equal(t, 1, detector.calls)
}

func TestHandleDetect_InvalidFrame(t *testing.T) {
	detector := &stubDetector{}
	router := newMediaRouter(detector, &stubSpeech{})

	rec := doJSON(t, router, http.MethodPost, "/detect", `{"frame": "plain text"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationFieldFormat), errorCode(t, rec))
	assert.Zero(t, detector.calls)
}

func TestHandleDetect_UpstreamFailure(t *testing.T) {
	detector := &stubDetector{
		err: types.NewAppError(types.ErrCodeUpstreamVision, "vision sidecar unavailable", nil),
	}
	router := newMediaRouter(detector, &stubSpeech{})

	rec := doJSON(t, router, http.MethodPost, "/detect", `{"frame": "`+validFrame+`"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, string(types.ErrCodeUpstreamVision), errorCode(t, rec))
}

func TestHandleSpeech(t *testing.T) {
	speech := &stubSpeech{audio: []byte("mp3-bytes")}
	router := newMediaRouter(&stubDetector{}, speech)

	rec := doJSON(t, router, http.MethodPost, "/speech", `{"text": "Emergency in Room 204"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Raw audio, not a JSON envelope.
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "9", rec.Header().Get("Content-Length"))
	assert.Equal(t, "mp3-bytes", rec.Body.String())
	assert.Equal(t, []string{"Emergency in Room 204"}, speech.texts)
}

func TestHandleSpeech_Validation(t *testing.T) {
	speech := &stubSpeech{}
	router := newMediaRouter(&stubDetector{}, speech)

	t.Run("missing text", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/speech", `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(types.ErrCodeValidationMissingField), errorCode(t, rec))
	})

	t.Run("text too long", func(t *testing.T) {
		long := strings.Repeat("a", 501)
		rec := doJSON(t, router, http.MethodPost, "/speech", `{"text": "`+long+`"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(types.ErrCodeValidationFieldFormat), errorCode(t, rec))
	})

	assert.Empty(t, speech.texts)
}

func TestHandleSpeech_UpstreamFailure(t *testing.T) {
	speech := &stubSpeech{
		err: types.NewAppError(types.ErrCodeUpstreamSpeech, "speech service unavailable", nil),
	}
	router := newMediaRouter(&stubDetector{}, speech)

	rec := doJSON(t, router, http.MethodPost, "/speech", `{"text": "hello"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, string(types.ErrCodeUpstreamSpeech), errorCode(t, rec))
}
