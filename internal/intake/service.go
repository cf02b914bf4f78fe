// Package intake implements the employee submission, query and export
// operations shared by every server entry point.
package intake

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kalambet/intake/internal/storage"
)

var (
	// ErrIncomplete means a required field was missing or empty.
	ErrIncomplete = errors.New("incomplete data")
	// ErrMalformed means the submission payload could not be parsed.
	ErrMalformed = errors.New("malformed data")
)

// RecordLoader reads the full record collection in store order.
type RecordLoader interface {
	Load(ctx context.Context) ([]storage.Record, error)
}

// RecordAppender adds a record at the end of the collection.
type RecordAppender interface {
	Append(ctx context.Context, rec storage.Record) error
}

// AuditWriter keeps a standalone copy of each accepted submission.
type AuditWriter interface {
	WriteAudit(rec storage.Record) (string, error)
}

// ArtifactWriter persists export files.
type ArtifactWriter interface {
	WriteArtifact(name string, data []byte) (string, error)
}

// Deps holds the collaborators of a Service.
type Deps struct {
	Records   RecordLoader
	Writer    RecordAppender
	Audit     AuditWriter // optional; audit copies are skipped when nil
	Artifacts ArtifactWriter
	Locale    Locale
	Location  *time.Location // time zone for export timestamps; defaults to time.Local
	Now       func() time.Time
	Logger    *slog.Logger
}

// Service is the single implementation of submit, list, stats and export.
type Service struct {
	records   RecordLoader
	writer    RecordAppender
	audit     AuditWriter
	artifacts ArtifactWriter
	locale    Locale
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Service. Zero-valued optional fields get defaults.
func New(deps Deps) *Service {
	s := &Service{
		records:   deps.Records,
		writer:    deps.Writer,
		audit:     deps.Audit,
		artifacts: deps.Artifacts,
		locale:    deps.Locale,
		loc:       deps.Location,
		now:       deps.Now,
		logger:    deps.Logger,
	}
	if s.locale.Tag == "" {
		s.locale = DefaultLocale()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}
