// Package loader reads chunk records from a directory of JSON files.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/perbu/campusrag/pkg/index"
)

var (
	ErrMissingField = errors.New("record is missing id or text")
	ErrDuplicateID  = errors.New("duplicate chunk id")
)

// IngestionError reports a file or record that could not be turned into a
// chunk. Record is -1 when the whole file failed.
type IngestionError struct {
	Path   string
	Record int
	Err    error
}

func (e *IngestionError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("ingest %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("ingest %s record %d: %v", e.Path, e.Record, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// record is the on-disk chunk shape. Ids may be strings or numbers and
// metadata values of any JSON type are kept as strings.
type record struct {
	ID       any            `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Loader walks a chunk directory. Bad files and records are logged and
// skipped; the rest still load.
type Loader struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadDir reads every *.json file under root. Each file holds one record or
// an array of records. Files are visited in lexical order so the resulting
// chunk order, and therefore index tie-breaking, is stable.
func (l *Loader) LoadDir(fsys fs.FS, root string) ([]index.Chunk, []error) {
	var files []string
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, []error{&IngestionError{Path: root, Record: -1, Err: err}}
	}
	sort.Strings(files)

	var (
		chunks []index.Chunk
		errs   []error
		seen   = make(map[string]string)
	)
	report := func(err *IngestionError) {
		l.logger.Warn("skipping chunk source", "path", err.Path, "record", err.Record, "error", err.Err)
		errs = append(errs, err)
	}

	for _, p := range files {
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			report(&IngestionError{Path: p, Record: -1, Err: err})
			continue
		}

		records, err := decodeRecords(content)
		if err != nil {
			report(&IngestionError{Path: p, Record: -1, Err: err})
			continue
		}

		loaded := 0
		for i, raw := range records {
			var rec record
			if err := json.Unmarshal(raw, &rec); err != nil {
				report(&IngestionError{Path: p, Record: i, Err: err})
				continue
			}
			id := stringify(rec.ID)
			if id == "" || strings.TrimSpace(rec.Text) == "" {
				report(&IngestionError{Path: p, Record: i, Err: ErrMissingField})
				continue
			}
			if first, dup := seen[id]; dup {
				report(&IngestionError{Path: p, Record: i, Err: fmt.Errorf("%w %q, first seen in %s", ErrDuplicateID, id, first)})
				continue
			}
			seen[id] = p

			chunks = append(chunks, index.Chunk{
				ID:       id,
				Text:     rec.Text,
				Metadata: stringifyMap(rec.Metadata),
			})
			loaded++
		}
		l.logger.Info("loaded chunk file", "path", path.Base(p), "chunks", loaded)
	}

	if len(chunks) == 0 {
		l.logger.Warn("no valid chunks found", "root", root)
	}
	return chunks, errs
}

// decodeRecords accepts either a single object or an array of objects.
func decodeRecords(content []byte) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(content))
	if strings.HasPrefix(trimmed, "[") {
		var records []json.RawMessage
		if err := json.Unmarshal(content, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	var single json.RawMessage
	if err := json.Unmarshal(content, &single); err != nil {
		return nil, err
	}
	return []json.RawMessage{single}, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func stringifyMap(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = stringify(v)
	}
	return out
}
