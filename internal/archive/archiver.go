// Package archive persists session transition traces at teardown. Traces
// are serialized to JSON, zstd-compressed, and handed to an object writer
// (local filesystem in development, object storage in deployments).
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zstd"

	"mediwatch/internal/types"
)

// ObjectWriter stores one compressed archive under a key.
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Document is the archived trace file layout.
type Document struct {
	SessionID  string             `json:"session_id"`
	ArchivedAt time.Time          `json:"archived_at"`
	Entries    []types.TraceEntry `json:"entries"`
}

// Compile-time assertion that Archiver implements the domain interface.
var _ types.TraceArchiver = (*Archiver)(nil)

// Archiver compresses and stores session traces.
type Archiver struct {
	writer  ObjectWriter
	encoder *zstd.Encoder
	clock   types.Clock
	logger  *slog.Logger
}

// NewArchiver creates an Archiver writing through the given ObjectWriter.
func NewArchiver(writer ObjectWriter, clock types.Clock, logger *slog.Logger) (*Archiver, error) {
	// EncodeAll on a shared encoder is safe for concurrent use.
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("archive: failed to create zstd encoder: %w", err)
	}
	return &Archiver{
		writer:  writer,
		encoder: encoder,
		clock:   clock,
		logger:  logger,
	}, nil
}

// ArchiveTrace serializes and stores the session's transition trace. An
// empty trace is still archived; the record that a session ran with no
// transitions is itself useful.
func (a *Archiver) ArchiveTrace(ctx context.Context, sessionID string, entries []types.TraceEntry) error {
	now := a.clock.Now()
	doc := Document{
		SessionID:  sessionID,
		ArchivedAt: now,
		Entries:    entries,
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("archive: failed to encode trace for session %s: %w", sessionID, err)
	}

	compressed := a.encoder.EncodeAll(raw, nil)
	key := archiveKey(sessionID, now)

	if err := a.writer.Put(ctx, key, compressed); err != nil {
		return fmt.Errorf("archive: failed to store trace %s: %w", key, err)
	}

	a.logger.InfoContext(ctx, "session trace archived",
		"session_id", sessionID,
		"key", key,
		"entries", len(entries),
		"raw_bytes", len(raw),
		"compressed_bytes", len(compressed),
	)
	return nil
}

// archiveKey builds the storage key for a trace archive.
func archiveKey(sessionID string, at time.Time) string {
	return fmt.Sprintf("traces/%s/%s.json.zst", at.UTC().Format("2006-01-02"), sessionID)
}
