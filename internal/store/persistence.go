package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// SchemaVersion is the current journal schema version.
const SchemaVersion = 1

// Persistence defines the interface for journal storage.
type Persistence interface {
	// Load reads all entries from storage.
	Load() ([]model.Entry, error)

	// Append adds an entry to storage.
	Append(e model.Entry) error

	// AppendBatch adds multiple entries efficiently.
	AppendBatch(es []model.Entry) error

	// Rewrite replaces the entire storage file (used after prune).
	Rewrite(es []model.Entry) error

	// Clear removes all stored entries.
	Clear() error

	// Close releases file handles and resources.
	Close() error
}

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	SchemaVersion int   `json:"tvoverlay_schema_version"`
	CreatedAt     int64 `json:"created_at"`
}

// JSONLPersistence implements Persistence using JSONL files.
type JSONLPersistence struct {
	mu     sync.RWMutex
	path   string
	file   *os.File
	closed bool
}

// ErrPersistenceClosed is returned when operations are attempted on a closed persistence.
var ErrPersistenceClosed = errors.New("persistence is closed")

// maxLineSize bounds a single journal record.
const maxLineSize = 1024 * 1024

// NewJSONLPersistence opens the journal at path, creating it if needed.
func NewJSONLPersistence(path string) (*JSONLPersistence, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	p := &JSONLPersistence{
		path: path,
		file: file,
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	if info.Size() == 0 {
		if err := p.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return p, nil
}

// Path returns the journal file path.
func (p *JSONLPersistence) Path() string {
	return p.path
}

func (p *JSONLPersistence) writeHeader() error {
	data, err := json.Marshal(schemaHeader{
		SchemaVersion: SchemaVersion,
		CreatedAt:     time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	_, err = p.file.Write(append(data, '\n'))
	return err
}

// Load reads all entries from storage. Malformed lines are skipped.
func (p *JSONLPersistence) Load() ([]model.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.file == nil {
		return nil, ErrPersistenceClosed
	}

	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", p.path, err)
	}

	var entries []model.Entry
	scanner := bufio.NewScanner(p.file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if lineNum == 1 {
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err == nil && header.SchemaVersion > 0 {
				if header.SchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.SchemaVersion, SchemaVersion)
				}
				continue
			}
		}

		var e model.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		if e.Validate() == nil {
			entries = append(entries, e)
		}
	}

	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("error reading file: %w", err)
	}

	if _, err := p.file.Seek(0, io.SeekEnd); err != nil {
		return entries, err
	}

	return entries, nil
}

// Append adds an entry to storage.
func (p *JSONLPersistence) Append(e model.Entry) error {
	return p.AppendBatch([]model.Entry{e})
}

// AppendBatch adds multiple entries and syncs once.
func (p *JSONLPersistence) AppendBatch(es []model.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.file == nil {
		return ErrPersistenceClosed
	}

	if err := p.writeEntries(es); err != nil {
		return err
	}
	return p.file.Sync()
}

func (p *JSONLPersistence) writeEntries(es []model.Entry) error {
	for _, e := range es {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := p.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// Rewrite replaces the journal with es. The old file is kept as .bak until
// the new one is written.
func (p *JSONLPersistence) Rewrite(es []model.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}

	backupPath, err := p.reopenEmpty()
	if err != nil {
		return err
	}

	if err := p.writeEntries(es); err != nil {
		return err
	}
	if err := p.file.Sync(); err != nil {
		return err
	}

	os.Remove(backupPath)
	return nil
}

// Clear removes all stored entries, keeping the previous journal as .bak.
func (p *JSONLPersistence) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}

	if _, err := p.reopenEmpty(); err != nil {
		return err
	}
	return p.file.Sync()
}

// reopenEmpty moves the journal aside and starts a new file with a header.
func (p *JSONLPersistence) reopenEmpty() (string, error) {
	if p.file != nil {
		if err := p.file.Close(); err != nil {
			return "", err
		}
		p.file = nil
	}

	backupPath := p.path + ".bak"
	if err := os.Rename(p.path, backupPath); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0600)
	if err != nil {
		os.Rename(backupPath, p.path)
		return "", fmt.Errorf("failed to create new file: %w", err)
	}
	p.file = file

	if err := p.writeHeader(); err != nil {
		return "", err
	}
	return backupPath, nil
}

// Close releases file handles and resources.
func (p *JSONLPersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}

// RecoverFromCorruption moves a damaged journal aside and rewrites only its
// valid entries.
func RecoverFromCorruption(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}

	var valid []model.Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var header schemaHeader
		if json.Unmarshal(line, &header) == nil && header.SchemaVersion > 0 {
			continue
		}

		var e model.Entry
		if err := json.Unmarshal(line, &e); err == nil && e.Validate() == nil {
			valid = append(valid, e)
		}
	}
	file.Close()

	backupPath := path + ".corrupted." + time.Now().Format("20060102-150405")
	if err := os.Rename(path, backupPath); err != nil {
		return fmt.Errorf("failed to backup corrupted file: %w", err)
	}

	p, err := NewJSONLPersistence(path)
	if err != nil {
		return err
	}
	defer p.Close()

	return p.AppendBatch(valid)
}
