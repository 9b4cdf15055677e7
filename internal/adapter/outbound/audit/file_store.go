// Package audit writes the access audit trail to JSON Lines files with
// daily and size-based rotation and retention cleanup.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/volview-xnat/volviewd/internal/adapter/outbound/memory"
	"github.com/volview-xnat/volviewd/internal/domain/audit"
)

const dateLayout = "2006-01-02"

// fileNamePattern matches access-YYYY-MM-DD.jsonl and access-YYYY-MM-DD-N.jsonl.
var fileNamePattern = regexp.MustCompile(`^access-(\d{4}-\d{2}-\d{2})(?:-(\d+))?\.jsonl$`)

type segment struct {
	name   string
	date   string
	suffix int
}

func parseSegment(name string) (segment, bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return segment{}, false
	}
	seg := segment{name: name, date: m[1]}
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return segment{}, false
		}
		seg.suffix = n
	}
	return seg, true
}

func segmentName(date string, suffix int) string {
	if suffix == 0 {
		return fmt.Sprintf("access-%s.jsonl", date)
	}
	return fmt.Sprintf("access-%s-%d.jsonl", date, suffix)
}

// Config holds the settings of a FileStore.
type Config struct {
	// Dir receives the audit files. Created with 0700 if missing.
	Dir string
	// RetentionDays is how long files are kept (default 30).
	RetentionDays int
	// MaxFileSizeMB rotates a day's file once it grows past this (default 50).
	MaxFileSizeMB int
	// CacheSize is the number of recent records kept for queries (default 1000).
	CacheSize int
}

// FileStore implements audit.Store on rotating JSON Lines files.
type FileStore struct {
	dir           string
	maxFileSize   int64
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time

	mu      sync.Mutex
	file    *os.File
	date    string
	size    int64
	suffix  int
	recent  *memory.AuditStore
	closed  bool
	stop    context.CancelFunc
	stopped chan struct{}
}

// NewFileStore opens today's file, removes expired files and loads the
// latest records into the query cache. Retention runs hourly until Close.
func NewFileStore(cfg Config, logger *slog.Logger) (*FileStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("audit directory cannot be empty")
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 50
	}
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	s := &FileStore{
		dir:           cfg.Dir,
		maxFileSize:   int64(cfg.MaxFileSizeMB) << 20,
		retentionDays: cfg.RetentionDays,
		logger:        logger,
		now:           time.Now,
		recent:        memory.NewAuditStore(nil, cfg.CacheSize),
		stopped:       make(chan struct{}),
	}

	today := s.now().UTC().Format(dateLayout)
	if err := s.open(today, s.highestSuffix(today)); err != nil {
		return nil, err
	}
	s.removeExpired()
	s.loadRecent()

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go s.retentionLoop(ctx)
	return s, nil
}

// Append writes records as JSON lines, rotating on date change and size.
func (s *FileStore) Append(ctx context.Context, records ...audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("audit store closed")
	}
	for _, rec := range records {
		date := rec.Timestamp.UTC().Format(dateLayout)
		if date != s.date {
			if err := s.rotate(date, s.highestSuffix(date)); err != nil {
				return fmt.Errorf("date rotation: %w", err)
			}
		}
		if s.size >= s.maxFileSize {
			if err := s.rotate(s.date, s.suffix+1); err != nil {
				return fmt.Errorf("size rotation: %w", err)
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		n, err := s.file.Write(append(data, '\n'))
		s.size += int64(n)
		if err != nil {
			return fmt.Errorf("write audit record: %w", err)
		}
		_ = s.recent.Append(ctx, rec)
	}
	return nil
}

// Recent returns up to n of the latest records, newest first.
func (s *FileStore) Recent(n int) []audit.Record {
	return s.recent.Recent(n)
}

// Close stops the retention loop and closes the current file.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.stop()
	var err error
	if s.file != nil {
		_ = s.file.Sync()
		err = s.file.Close()
		s.file = nil
	}
	s.mu.Unlock()

	<-s.stopped
	return err
}

// open opens or creates the segment for date and suffix. Caller holds s.mu
// or has exclusive access.
func (s *FileStore) open(date string, suffix int) error {
	name := segmentName(date, suffix)
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open audit file %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat audit file %s: %w", name, err)
	}
	s.file = f
	s.date = date
	s.suffix = suffix
	s.size = info.Size()
	return nil
}

func (s *FileStore) rotate(date string, suffix int) error {
	if s.file != nil {
		_ = s.file.Sync()
		_ = s.file.Close()
		s.file = nil
	}
	return s.open(date, suffix)
}

func (s *FileStore) segments() []segment {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var out []segment
	for _, e := range entries {
		if seg, ok := parseSegment(e.Name()); ok {
			out = append(out, seg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].date != out[j].date {
			return out[i].date < out[j].date
		}
		return out[i].suffix < out[j].suffix
	})
	return out
}

func (s *FileStore) highestSuffix(date string) int {
	highest := 0
	for _, seg := range s.segments() {
		if seg.date == date && seg.suffix > highest {
			highest = seg.suffix
		}
	}
	return highest
}

// removeExpired deletes files whose date is older than the retention window.
func (s *FileStore) removeExpired() {
	cutoff := s.now().UTC().AddDate(0, 0, -s.retentionDays).Format(dateLayout)
	deleted := 0
	for _, seg := range s.segments() {
		if seg.date >= cutoff {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, seg.name)); err != nil {
			s.logger.Error("audit retention: failed to delete file", "file", seg.name, "error", err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		s.logger.Info("audit retention cleanup completed", "deleted", deleted)
	}
}

func (s *FileStore) retentionLoop(ctx context.Context) {
	defer close(s.stopped)
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

// loadRecent fills the query cache from the newest non-empty file.
func (s *FileStore) loadRecent() {
	segs := s.segments()
	for i := len(segs) - 1; i >= 0; i-- {
		path := filepath.Join(s.dir, segs[i].name)
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			continue
		}
		s.loadFile(path)
		return
	}
}

func (s *FileStore) loadFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Error("audit cache: failed to open file", "file", path, "error", err)
		return
	}
	defer func() { _ = f.Close() }()

	var records []audit.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec audit.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			s.logger.Warn("audit cache: skipping malformed line", "file", path, "error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error("audit cache: error reading file", "file", path, "error", err)
	}
	_ = s.recent.Append(context.Background(), records...)
}

// Compile-time interface verification.
var _ audit.Store = (*FileStore)(nil)
