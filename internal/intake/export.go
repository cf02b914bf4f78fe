package intake

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/kalambet/intake/internal/storage"
)

// utf8BOM lets spreadsheet software detect the encoding.
const utf8BOM = "\uFEFF"

// Artifact is a rendered export. Path is empty when the export was not
// persisted.
type Artifact struct {
	Filename string
	Path     string
	Data     []byte
	Rows     int
}

// Filename returns the export file name for the given instant.
func (l Locale) Filename(at time.Time) string {
	return l.FilenamePrefix + "_" + at.UTC().Format("2006-01-02") + ".csv"
}

// RenderCSV renders records as a BOM-prefixed CSV table in store order.
func RenderCSV(records []storage.Record, l Locale, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(l.Headers); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{r.ID, r.Name, r.Phone, r.Department, r.Type, displayTime(r, l, loc), r.IP}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func displayTime(r storage.Record, l Locale, loc *time.Location) string {
	t, ok := r.Time()
	if !ok {
		return r.Timestamp
	}
	return t.In(loc).Format(l.TimeLayout)
}

// render builds the export artifact without persisting it.
func (s *Service) render(ctx context.Context) (Artifact, error) {
	records, err := s.records.Load(ctx)
	if err != nil {
		return Artifact{}, fmt.Errorf("loading records: %w", err)
	}
	data, err := RenderCSV(records, s.locale, s.loc)
	if err != nil {
		return Artifact{}, fmt.Errorf("rendering csv: %w", err)
	}
	return Artifact{
		Filename: s.locale.Filename(s.now()),
		Data:     data,
		Rows:     len(records),
	}, nil
}

// Export renders the collection and persists it in the data directory.
func (s *Service) Export(ctx context.Context) (Artifact, error) {
	a, err := s.render(ctx)
	if err != nil {
		return Artifact{}, err
	}
	if s.artifacts == nil {
		return a, nil
	}
	path, err := s.artifacts.WriteArtifact(a.Filename, a.Data)
	if err != nil {
		return Artifact{}, fmt.Errorf("writing export: %w", err)
	}
	a.Path = path
	s.logger.Info("export written", "file", a.Filename, "rows", a.Rows)
	return a, nil
}
