package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/volview-xnat/volviewd/internal/adapter/outbound/memory"
	"github.com/volview-xnat/volviewd/internal/domain/audit"
)

// blockingStore holds Append until release is closed.
type blockingStore struct {
	*memory.AuditStore
	release chan struct{}
}

func (b *blockingStore) Append(ctx context.Context, records ...audit.Record) error {
	<-b.release
	return b.AuditStore.Append(ctx, records...)
}

type failingAuditStore struct {
	*memory.AuditStore
	mu    sync.Mutex
	calls int
}

func (f *failingAuditStore) Append(context.Context, ...audit.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("disk full")
}

func TestAuditService_RecordAndStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := memory.NewAuditStore(nil, 10)
	svc := NewAuditService(store, testLogger(), WithBatchSize(50), WithFlushInterval(time.Hour))
	svc.Start(context.Background())

	svc.Record(audit.Record{Event: audit.EventSessionConfig, SessionID: "E1", Decision: audit.DecisionAllow})
	svc.Record(audit.Record{Event: audit.EventSettingsUpdate, Decision: audit.DecisionAllow})
	svc.Stop()
	svc.Stop()

	got := svc.Query(audit.Filter{})
	if len(got) != 2 {
		t.Fatalf("Query() returned %d records, want 2", len(got))
	}
	if got[0].Event != audit.EventSettingsUpdate {
		t.Errorf("newest record = %+v", got[0])
	}
	for _, rec := range got {
		if rec.Timestamp.IsZero() {
			t.Error("Record() did not set Timestamp")
		}
	}
	if only := svc.Query(audit.Filter{Event: audit.EventSessionConfig}); len(only) != 1 || only[0].SessionID != "E1" {
		t.Errorf("Query(event) = %+v", only)
	}
}

func TestAuditService_BatchFlush(t *testing.T) {
	store := memory.NewAuditStore(nil, 10)
	svc := NewAuditService(store, testLogger(), WithBatchSize(2), WithFlushInterval(time.Hour))
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Record(audit.Record{SessionID: "E1"})
	svc.Record(audit.Record{SessionID: "E2"})

	deadline := time.Now().Add(2 * time.Second)
	for len(store.Recent(10)) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("full batch was not flushed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAuditService_DropsWhenFull(t *testing.T) {
	store := &blockingStore{AuditStore: memory.NewAuditStore(nil, 10), release: make(chan struct{})}
	svc := NewAuditService(store, testLogger(),
		WithChannelSize(1), WithBatchSize(1), WithSendTimeout(0))
	svc.Start(context.Background())

	// The worker takes the first record and blocks in Append; the second
	// fills the channel; the rest are dropped.
	for i := 0; i < 5; i++ {
		svc.Record(audit.Record{SessionID: "E"})
		time.Sleep(5 * time.Millisecond)
	}
	if svc.DroppedRecords() == 0 {
		t.Error("DroppedRecords() = 0, want drops with a full channel")
	}

	close(store.release)
	svc.Stop()
}

func TestAuditService_StoreErrorIsLogged(t *testing.T) {
	store := &failingAuditStore{AuditStore: memory.NewAuditStore(nil, 10)}
	svc := NewAuditService(store, testLogger())
	svc.Start(context.Background())

	svc.Record(audit.Record{SessionID: "E1"})
	svc.Stop()

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.calls != 1 {
		t.Errorf("Append calls = %d, want 1", store.calls)
	}
}

func TestAuditService_ContextCancelFlushes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := memory.NewAuditStore(nil, 10)
	svc := NewAuditService(store, testLogger(), WithFlushInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	svc.Record(audit.Record{SessionID: "E1"})
	cancel()
	svc.Stop()

	if len(store.Recent(10)) != 1 {
		t.Errorf("records after cancel = %d, want 1", len(store.Recent(10)))
	}
}
