package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kalambet/intake/internal/storage"
)

// Input is a submission as sent by a client.
type Input struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Type       string `json:"type"`
}

// Validate returns ErrIncomplete if any field is empty.
func (in Input) Validate() error {
	if in.Name == "" || in.Phone == "" || in.Department == "" || in.Type == "" {
		return ErrIncomplete
	}
	return nil
}

// DecodeInput parses a single JSON object from r. Anything that is not a
// JSON object with string fields yields ErrMalformed.
func DecodeInput(r io.Reader) (Input, error) {
	var raw json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Input{}, fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return Input{}, fmt.Errorf("%w: payload is not an object", ErrMalformed)
	}

	var in Input
	if err := json.Unmarshal(raw, &in); err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return in, nil
}

// NewID returns an identifier of the form emp_<unix-ms>_<12 hex chars>.
func NewID(ms int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return "emp_" + strconv.FormatInt(ms, 10) + "_" + suffix
}

// Submit validates in, stamps it and appends it to the collection. origin
// is the submitter's network address; empty means unknown.
func (s *Service) Submit(ctx context.Context, in Input, origin string) (storage.Record, error) {
	if err := in.Validate(); err != nil {
		return storage.Record{}, err
	}
	if origin == "" {
		origin = storage.UnknownOrigin
	}

	now := s.now()
	rec := storage.Record{
		ID:         NewID(now.UnixMilli()),
		Name:       in.Name,
		Phone:      in.Phone,
		Department: in.Department,
		Type:       in.Type,
		Timestamp:  storage.FormatTimestamp(now),
		IP:         origin,
	}

	if s.audit != nil {
		if name, err := s.audit.WriteAudit(rec); err != nil {
			s.logger.Warn("audit copy failed", "id", rec.ID, "error", err)
		} else {
			s.logger.Debug("audit copy written", "id", rec.ID, "file", name)
		}
	}

	if err := s.writer.Append(ctx, rec); err != nil {
		return storage.Record{}, fmt.Errorf("appending record: %w", err)
	}
	s.logger.Info("employee submitted", "id", rec.ID, "department", rec.Department, "type", rec.Type)
	return rec, nil
}
