package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/volview-xnat/volviewd/internal/domain/audit"
)

// AuditService records audit entries asynchronously: Record hands the entry
// to a buffered channel and a background worker writes batches to the store.
// Request handlers never wait on disk.
type AuditService struct {
	store         audit.Store
	ch            chan audit.Record
	wg            sync.WaitGroup
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration
	sendTimeout   time.Duration // 0 = drop immediately when the channel is full
	dropCount     atomic.Int64
	stopOnce      sync.Once
}

// AuditOption configures AuditService.
type AuditOption func(*AuditService)

// WithBatchSize sets the number of records to batch before writing.
func WithBatchSize(size int) AuditOption {
	return func(s *AuditService) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithFlushInterval sets the interval to flush pending records.
func WithFlushInterval(interval time.Duration) AuditOption {
	return func(s *AuditService) {
		if interval > 0 {
			s.flushInterval = interval
		}
	}
}

// WithChannelSize sets the size of the audit channel buffer.
func WithChannelSize(size int) AuditOption {
	return func(s *AuditService) {
		if size > 0 {
			s.ch = make(chan audit.Record, size)
		}
	}
}

// WithSendTimeout sets how long Record blocks on a full channel before
// dropping the entry.
func WithSendTimeout(timeout time.Duration) AuditOption {
	return func(s *AuditService) {
		s.sendTimeout = timeout
	}
}

// NewAuditService creates a new AuditService writing to store.
func NewAuditService(store audit.Store, logger *slog.Logger, opts ...AuditOption) *AuditService {
	s := &AuditService{
		store:         store,
		ch:            make(chan audit.Record, 1000),
		logger:        logger,
		batchSize:     100,
		flushInterval: time.Second,
		sendTimeout:   50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the background worker.
func (s *AuditService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Record queues an entry. A zero timestamp is set to now. When the channel
// stays full past the send timeout the entry is dropped and counted.
func (s *AuditService) Record(rec audit.Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	select {
	case s.ch <- rec:
		return
	default:
	}

	if s.sendTimeout > 0 {
		timer := time.NewTimer(s.sendTimeout)
		defer timer.Stop()
		select {
		case s.ch <- rec:
			return
		case <-timer.C:
		}
	}

	drops := s.dropCount.Add(1)
	s.logger.Warn("audit record dropped", "event", rec.Event, "total_drops", drops)
}

// Query returns the newest recorded entries passing f.
func (s *AuditService) Query(f audit.Filter) []audit.Record {
	return audit.Query(s.store, f)
}

// DroppedRecords returns the number of entries lost to backpressure.
func (s *AuditService) DroppedRecords() int64 {
	return s.dropCount.Load()
}

// Stop flushes pending entries and waits for the worker. Record must not be
// called after Stop.
func (s *AuditService) Stop() {
	s.stopOnce.Do(func() { close(s.ch) })
	s.wg.Wait()
}

func (s *AuditService) worker(ctx context.Context) {
	defer s.wg.Done()

	batch := make([]audit.Record, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := s.store.Append(ctx, batch...); err != nil {
			s.logger.Error("failed to write audit batch", "error", err, "count", len(batch))
		}
		batch = batch[:0]
	}
	finalFlush := func() {
		fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		flush(fctx)
	}

	for {
		select {
		case rec, ok := <-s.ch:
			if !ok {
				finalFlush()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= s.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			// Drain what is already queued without waiting for Stop.
			for {
				select {
				case rec, ok := <-s.ch:
					if !ok {
						finalFlush()
						return
					}
					batch = append(batch, rec)
				default:
					finalFlush()
					return
				}
			}
		}
	}
}
