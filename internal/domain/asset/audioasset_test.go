package asset

import (
	"errors"
	"testing"
	"time"
)

func newPendingAsset(t *testing.T) *AudioAsset {
	t.Helper()
	a, err := NewAudioAsset("acct_1", "sess_1", "audio/sess_1/rec.m4a", 30)
	if err != nil {
		t.Fatalf("NewAudioAsset() error = %v", err)
	}
	return a
}

func TestNewAudioAsset(t *testing.T) {
	a := newPendingAsset(t)
	if a.Status() != StatusPending {
		t.Errorf("status = %s, want pending", a.Status())
	}
	if got := a.ExpiresAt().Sub(a.CreatedAt()); got < 29*24*time.Hour || got > 31*24*time.Hour {
		t.Errorf("retention window = %v, want ~30 days", got)
	}

	if _, err := NewAudioAsset("", "sess_1", "k", 30); err == nil {
		t.Errorf("expected error for empty account")
	}
	if _, err := NewAudioAsset("acct_1", "sess_1", "k", 0); err == nil {
		t.Errorf("expected error for zero retention")
	}
}

func TestAudioAssetLifecycle(t *testing.T) {
	a := newPendingAsset(t)

	if err := a.MarkAvailable(1024); err != nil {
		t.Fatalf("MarkAvailable() error = %v", err)
	}
	if err := a.MarkProcessing(); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}
	if err := a.MarkReady(123.5); err != nil {
		t.Fatalf("MarkReady() error = %v", err)
	}
	if a.Status() != StatusReady {
		t.Errorf("status = %s, want ready", a.Status())
	}
	if a.DurationSec() != 123.5 {
		t.Errorf("durationSec = %v, want 123.5", a.DurationSec())
	}
}

func TestAudioAssetFailedRetry(t *testing.T) {
	a := newPendingAsset(t)
	if err := a.MarkAvailable(1024); err != nil {
		t.Fatalf("MarkAvailable() error = %v", err)
	}
	if err := a.MarkProcessing(); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}
	if err := a.MarkFailed(); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	// Failed transcription can be retried.
	if err := a.MarkProcessing(); err != nil {
		t.Errorf("MarkProcessing() after failure error = %v", err)
	}
}

func TestAudioAssetInvalidTransitions(t *testing.T) {
	a := newPendingAsset(t)

	var invalid *InvalidTransitionError
	if err := a.MarkProcessing(); !errors.As(err, &invalid) {
		t.Errorf("MarkProcessing() from pending error = %v, want InvalidTransitionError", err)
	}
	if err := a.MarkReady(10); !errors.As(err, &invalid) {
		t.Errorf("MarkReady() from pending error = %v, want InvalidTransitionError", err)
	}
	if err := a.MarkAvailable(0); err == nil {
		t.Errorf("MarkAvailable() expected error for zero size")
	}
}

func TestAudioAssetExpiryBranch(t *testing.T) {
	a := newPendingAsset(t)
	if err := a.MarkAvailable(10); err != nil {
		t.Fatalf("MarkAvailable() error = %v", err)
	}
	if err := a.MarkProcessing(); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}

	// The sweep cannot expire an asset a job is processing.
	var invalid *InvalidTransitionError
	if err := a.MarkExpired(); !errors.As(err, &invalid) {
		t.Errorf("MarkExpired() while processing error = %v, want InvalidTransitionError", err)
	}

	if err := a.MarkReady(60); err != nil {
		t.Fatalf("MarkReady() error = %v", err)
	}

	// Purge only applies to expired assets.
	if err := a.MarkDeleted(); !errors.As(err, &invalid) {
		t.Errorf("MarkDeleted() from ready error = %v, want InvalidTransitionError", err)
	}

	if err := a.MarkExpired(); err != nil {
		t.Fatalf("MarkExpired() error = %v", err)
	}
	if a.Status() != StatusExpired {
		t.Errorf("status = %s, want expired", a.Status())
	}
	if err := a.MarkDeleted(); err != nil {
		t.Fatalf("MarkDeleted() error = %v", err)
	}
	if a.StorageKey() != "" {
		t.Errorf("storageKey = %q, want purged", a.StorageKey())
	}
	if err := a.MarkDeleted(); !errors.Is(err, ErrAssetDeleted) {
		t.Errorf("MarkDeleted() twice error = %v, want ErrAssetDeleted", err)
	}
	if err := a.MarkExpired(); !errors.Is(err, ErrAssetDeleted) {
		t.Errorf("MarkExpired() after delete error = %v, want ErrAssetDeleted", err)
	}
}
