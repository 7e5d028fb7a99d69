package dispatch

import (
	"testing"
	"time"
)

func TestNewOutboxEntry(t *testing.T) {
	e, err := NewOutboxEntry("job_1", []byte(`{"job_sid":"job_1"}`))
	if err != nil {
		t.Fatalf("NewOutboxEntry() error = %v", err)
	}
	if e.Status() != OutboxPending {
		t.Errorf("status = %s, want pending", e.Status())
	}
	if e.NextAttemptAt().After(time.Now().UTC()) {
		t.Errorf("new entry should be due immediately")
	}

	if _, err := NewOutboxEntry("", []byte("x")); err == nil {
		t.Errorf("expected error for empty job SID")
	}
	if _, err := NewOutboxEntry("job_1", nil); err == nil {
		t.Errorf("expected error for empty payload")
	}
}

func TestOutboxEntryBackoff(t *testing.T) {
	e, err := NewOutboxEntry("job_1", []byte("x"))
	if err != nil {
		t.Fatalf("NewOutboxEntry() error = %v", err)
	}

	e.MarkAttemptFailed("queue unreachable", 10*time.Second, 3)
	if e.Attempts() != 1 {
		t.Errorf("attempts = %d, want 1", e.Attempts())
	}
	if e.IsExhausted() {
		t.Errorf("entry exhausted after one attempt")
	}
	first := e.NextAttemptAt()

	e.MarkAttemptFailed("queue unreachable", 10*time.Second, 3)
	if !e.NextAttemptAt().After(first) {
		t.Errorf("backoff should grow between attempts")
	}

	e.MarkAttemptFailed("queue unreachable", 10*time.Second, 3)
	if !e.IsExhausted() {
		t.Errorf("entry should be exhausted at max attempts")
	}
	if e.LastError() != "queue unreachable" {
		t.Errorf("lastError = %q", e.LastError())
	}
}

func TestOutboxEntryMarkSent(t *testing.T) {
	e, err := NewOutboxEntry("job_1", []byte("x"))
	if err != nil {
		t.Fatalf("NewOutboxEntry() error = %v", err)
	}
	e.MarkAttemptFailed("transient", time.Second, 5)
	e.MarkSent()
	if e.Status() != OutboxSent {
		t.Errorf("status = %s, want sent", e.Status())
	}
	if e.LastError() != "" {
		t.Errorf("lastError should be cleared on success")
	}
}
