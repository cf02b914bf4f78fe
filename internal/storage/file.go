package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CollectionFile is the authoritative JSON array of all submissions.
const CollectionFile = "all_employees.json"

// FileStore keeps the record collection as one JSON array in dataDir, next to
// per-submission audit copies and export artifacts.
type FileStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// OpenFile creates dataDir if needed and returns a store rooted there.
func OpenFile(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileStore{
		dir:    dataDir,
		logger: slog.Default(),
		now:    time.Now,
	}, nil
}

// Dir returns the data directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Close is a no-op; it lets FileStore stand in wherever a closable backend is expected.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) collectionPath() string {
	return filepath.Join(s.dir, CollectionFile)
}

// Load returns every stored record in append order. A missing collection is
// empty. A collection that fails to parse is logged and treated as empty.
func (s *FileStore) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := s.read()
	if errors.Is(err, errCorrupt) {
		s.logger.Error("collection unreadable, treating as empty", "path", s.collectionPath(), "error", err)
		return []Record{}, nil
	}
	return records, err
}

var errCorrupt = errors.New("corrupt collection")

func (s *FileStore) read() ([]Record, error) {
	data, err := os.ReadFile(s.collectionPath())
	if errors.Is(err, fs.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading collection: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Append adds rec at the end of the collection and rewrites the whole file.
// Callers must serialize Append; concurrent calls can drop each other's
// records.
func (s *FileStore) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := s.read()
	if errors.Is(err, errCorrupt) {
		aside := s.collectionPath() + ".corrupt-" + strconv.FormatInt(s.now().UnixMilli(), 10)
		s.logger.Error("collection unreadable, starting a new one", "path", s.collectionPath(), "moved_to", aside, "error", err)
		if rerr := os.Rename(s.collectionPath(), aside); rerr != nil {
			return fmt.Errorf("moving corrupt collection aside: %w", rerr)
		}
		records, err = []Record{}, nil
	}
	if err != nil {
		return err
	}

	records = append(records, rec)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling collection: %w", err)
	}
	return writeFileAtomic(s.collectionPath(), data)
}

// WriteAudit stores rec as a standalone employee_<unix-ms>.json file and
// returns its name. It never overwrites an earlier audit copy.
func (s *FileStore) WriteAudit(rec Record) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshalling audit copy: %w", err)
	}

	stamp := strconv.FormatInt(s.now().UnixMilli(), 10)
	for n := 0; n < 100; n++ {
		name := "employee_" + stamp + ".json"
		if n > 0 {
			name = fmt.Sprintf("employee_%s_%d.json", stamp, n)
		}
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating audit copy: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("writing audit copy: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing audit copy: %w", err)
		}
		return name, nil
	}
	return "", fmt.Errorf("no free audit file name for stamp %s", stamp)
}

// WriteArtifact stores an export file named name in the data directory and
// returns its full path. An existing artifact with the same name is replaced.
func (s *FileStore) WriteArtifact(name string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	path := filepath.Join(s.dir, name)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// writeFileAtomic writes data to a temp file beside path and renames it into
// place, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
