package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// --- Outbox repo tests ---

func TestSQLiteStore_OutboxRepo_EnqueueAndClaim(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := s.EnqueueOutboxMessage(ctx, "user-1", OutboxKindReply, `{"text":"Hello"}`, "")
	if err != nil {
		t.Fatalf("EnqueueOutboxMessage failed: %v", err)
	}
	if id == "" {
		t.Fatal("EnqueueOutboxMessage returned empty ID")
	}

	msgs, err := s.ClaimDueOutboxMessages(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("ClaimDueOutboxMessages failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if msgs[0].UserID != "user-1" {
		t.Errorf("Expected user 'user-1', got %q", msgs[0].UserID)
	}
	if msgs[0].Status != OutboxStatusSending {
		t.Errorf("Expected status 'sending', got %q", msgs[0].Status)
	}
}

func TestSQLiteStore_OutboxRepo_DedupeKey(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id1, err := s.EnqueueOutboxMessage(ctx, "u1", OutboxKindCheckin, `{}`, "checkin:u1:2024-03-10")
	if err != nil {
		t.Fatalf("EnqueueOutboxMessage 1 failed: %v", err)
	}

	id2, err := s.EnqueueOutboxMessage(ctx, "u1", OutboxKindCheckin, `{}`, "checkin:u1:2024-03-10")
	if err != nil {
		t.Fatalf("EnqueueOutboxMessage 2 failed: %v", err)
	}
	if id2 != id1 {
		t.Errorf("Expected same ID for duplicate dedupe key, got %q and %q", id1, id2)
	}
}

func TestSQLiteStore_OutboxRepo_DedupeKeyAfterSent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id1, _ := s.EnqueueOutboxMessage(ctx, "u1", OutboxKindCheckin, `{}`, "checkin:u1:2024-03-10")
	s.ClaimDueOutboxMessages(ctx, time.Now(), 10)
	if err := s.MarkOutboxMessageSent(ctx, id1); err != nil {
		t.Fatalf("MarkOutboxMessageSent failed: %v", err)
	}

	// A check-in already delivered today must not be queued again.
	id2, err := s.EnqueueOutboxMessage(ctx, "u1", OutboxKindCheckin, `{}`, "checkin:u1:2024-03-10")
	if err != nil {
		t.Fatalf("EnqueueOutboxMessage failed: %v", err)
	}
	if id2 != id1 {
		t.Errorf("Expected sent message ID %q to be reused, got %q", id1, id2)
	}
	msgs, _ := s.ClaimDueOutboxMessages(ctx, time.Now(), 10)
	if len(msgs) != 0 {
		t.Errorf("Expected nothing to claim, got %d", len(msgs))
	}
}

func TestSQLiteStore_OutboxRepo_MarkSent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id, _ := s.EnqueueOutboxMessage(ctx, "u1", OutboxKindReply, `{}`, "")
	msgs, _ := s.ClaimDueOutboxMessages(ctx, time.Now(), 10)
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}

	if err := s.MarkOutboxMessageSent(ctx, id); err != nil {
		t.Fatalf("MarkOutboxMessageSent failed: %v", err)
	}

	msgs2, _ := s.ClaimDueOutboxMessages(ctx, time.Now(), 10)
	if len(msgs2) != 0 {
		t.Errorf("Expected 0 messages after sent, got %d", len(msgs2))
	}
}

func TestSQLiteStore_OutboxRepo_FailAndRetry(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id, _ := s.EnqueueOutboxMessage(ctx, "u1", OutboxKindReply, `{}`, "")
	s.ClaimDueOutboxMessages(ctx, time.Now(), 10)

	nextAttempt := time.Now().Add(-time.Second)
	if err := s.FailOutboxMessage(ctx, id, "send error", nextAttempt); err != nil {
		t.Fatalf("FailOutboxMessage failed: %v", err)
	}

	msgs, _ := s.ClaimDueOutboxMessages(ctx, time.Now(), 10)
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 retryable message, got %d", len(msgs))
	}
	if msgs[0].LastError != "send error" {
		t.Errorf("Expected last error to be kept, got %q", msgs[0].LastError)
	}
}

func TestSQLiteStore_OutboxRepo_RequeueStale(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	s.EnqueueOutboxMessage(ctx, "u1", OutboxKindReply, `{}`, "")
	s.ClaimDueOutboxMessages(ctx, time.Now(), 10)

	n, err := s.RequeueStaleSendingMessages(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("RequeueStaleSendingMessages failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 requeued, got %d", n)
	}
}

// --- Dedup repo tests ---

func TestSQLiteStore_DedupRepo_Basic(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	dup, err := s.IsDuplicate(ctx, "msg-1")
	if err != nil {
		t.Fatalf("IsDuplicate failed: %v", err)
	}
	if dup {
		t.Error("Expected false for new message")
	}

	isNew, err := s.RecordInbound(ctx, "msg-1", "user-1")
	if err != nil {
		t.Fatalf("RecordInbound failed: %v", err)
	}
	if !isNew {
		t.Error("Expected isNew=true for first record")
	}

	dup, err = s.IsDuplicate(ctx, "msg-1")
	if err != nil {
		t.Fatalf("IsDuplicate after record failed: %v", err)
	}
	if !dup {
		t.Error("Expected true for duplicate message")
	}

	isNew2, err := s.RecordInbound(ctx, "msg-1", "user-1")
	if err != nil {
		t.Fatalf("RecordInbound duplicate failed: %v", err)
	}
	if isNew2 {
		t.Error("Expected isNew=false for duplicate record")
	}

	if err := s.MarkProcessed(ctx, "msg-1"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
}

// --- OutboxSender tests ---

func TestOutboxSender_Poll(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	var sent int32
	sender := NewOutboxSender(s, func(ctx context.Context, msg OutboxMessage) error {
		atomic.AddInt32(&sent, 1)
		return nil
	}, time.Hour)

	if _, err := s.EnqueueOutboxMessage(ctx, "u1", OutboxKindReply, `{"text":"Hello"}`, ""); err != nil {
		t.Fatalf("EnqueueOutboxMessage failed: %v", err)
	}

	sender.Poll(ctx)
	sender.Poll(ctx)

	if atomic.LoadInt32(&sent) != 1 {
		t.Errorf("Expected 1 send, got %d", atomic.LoadInt32(&sent))
	}
}

func TestOutboxSender_FailureSchedulesRetry(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	var calls int32
	sender := NewOutboxSender(s, func(ctx context.Context, msg OutboxMessage) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("transport down")
	}, time.Hour)

	s.EnqueueOutboxMessage(ctx, "u1", OutboxKindReply, `{}`, "")
	sender.Poll(ctx)
	// The retry lies in the future so the second poll finds nothing due.
	sender.Poll(ctx)

	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected 1 send attempt, got %d", atomic.LoadInt32(&calls))
	}
	msgs, _ := s.ClaimDueOutboxMessages(ctx, time.Now().Add(MaxOutboxBackoff+time.Minute), 10)
	if len(msgs) != 1 {
		t.Fatalf("Expected the failed message to be retryable later, got %d", len(msgs))
	}
	if msgs[0].Attempts != 1 {
		t.Errorf("Expected 1 recorded attempt, got %d", msgs[0].Attempts)
	}
}

func TestOutboxBackoff(t *testing.T) {
	if got := backoff(0); got != 10*time.Second {
		t.Errorf("backoff(0) = %v", got)
	}
	if got := backoff(2); got != 40*time.Second {
		t.Errorf("backoff(2) = %v", got)
	}
	if got := backoff(50); got != MaxOutboxBackoff {
		t.Errorf("backoff(50) = %v", got)
	}
}

// --- Restart recovery ---

func TestOutboxSenderRestartRecovery(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "outbox_restart_test_")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)
	ctx := context.Background()

	dbPath := filepath.Join(tempDir, "test.db")

	// Phase 1: enqueue and claim, then "crash" mid-send.
	s1, err := NewSQLiteStore(WithSQLiteDSN(dbPath))
	if err != nil {
		t.Fatalf("NewSQLiteStore (phase 1) failed: %v", err)
	}
	if _, err := s1.EnqueueOutboxMessage(ctx, "user-1", OutboxKindCheckin, `{"text":"How did today go?"}`, "checkin:user-1:2024-03-10"); err != nil {
		t.Fatalf("EnqueueOutboxMessage failed: %v", err)
	}
	msgs, err := s1.ClaimDueOutboxMessages(ctx, time.Now(), 10)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("ClaimDueOutboxMessages: %v, %d messages", err, len(msgs))
	}
	s1.Close()

	// Phase 2: reopen, recover and send.
	s2, err := NewSQLiteStore(WithSQLiteDSN(dbPath))
	if err != nil {
		t.Fatalf("NewSQLiteStore (phase 2) failed: %v", err)
	}
	defer s2.Close()

	var sent int32
	sender := NewOutboxSender(s2, func(ctx context.Context, msg OutboxMessage) error {
		atomic.AddInt32(&sent, 1)
		return nil
	}, time.Hour)

	n, err := s2.RequeueStaleSendingMessages(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("RequeueStaleSendingMessages failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 message requeued, got %d", n)
	}

	sender.Poll(ctx)
	if atomic.LoadInt32(&sent) != 1 {
		t.Errorf("Expected 1 send after recovery, got %d", atomic.LoadInt32(&sent))
	}
}

func TestDedupRestartRecovery(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "dedup_restart_test_")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)
	ctx := context.Background()
	dbPath := filepath.Join(tempDir, "test.db")

	s1, err := NewSQLiteStore(WithSQLiteDSN(dbPath))
	if err != nil {
		t.Fatalf("NewSQLiteStore (phase 1) failed: %v", err)
	}
	if _, err := s1.RecordInbound(ctx, "wamid-1", "user-1"); err != nil {
		t.Fatalf("RecordInbound failed: %v", err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(WithSQLiteDSN(dbPath))
	if err != nil {
		t.Fatalf("NewSQLiteStore (phase 2) failed: %v", err)
	}
	defer s2.Close()

	isNew, err := s2.RecordInbound(ctx, "wamid-1", "user-1")
	if err != nil {
		t.Fatalf("RecordInbound after restart failed: %v", err)
	}
	if isNew {
		t.Error("Expected message seen before the restart to be a duplicate")
	}
}

func TestSQLStoresImplementDurableRepos(t *testing.T) {
	var _ OutboxRepo = (*SQLiteStore)(nil)
	var _ DedupRepo = (*SQLiteStore)(nil)
	var _ OutboxRepo = (*PostgresStore)(nil)
	var _ DedupRepo = (*PostgresStore)(nil)
}
