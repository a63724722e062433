package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestShutdownManager_RunsHooks(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	sm := NewShutdownManager(logger, 5*time.Second)

	var ran atomic.Int32
	sm.OnShutdown("first", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	sm.OnShutdown("second", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- sm.Wait() }()

	// Give Wait a moment to install the signal handler.
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("failed to signal self: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after SIGTERM")
	}

	if got := ran.Load(); got != 2 {
		t.Errorf("hooks ran = %d, want 2", got)
	}
}

func TestShutdownManager_HookError(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)
	sm := NewShutdownManager(logger, 5*time.Second)

	sm.OnShutdown("failing", func(ctx context.Context) error {
		return errors.New("cleanup failed")
	})

	errCh := make(chan error, 1)
	go func() { errCh <- sm.Wait() }()

	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("failed to signal self: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error from failing hook")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after SIGTERM")
	}
}

func TestShutdownManager_DrainsServer(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})}

	sm := NewShutdownManager(logger, 5*time.Second, srv)

	errCh := make(chan error, 1)
	go func() { errCh <- sm.Wait() }()

	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("failed to signal self: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after SIGTERM")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)

	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/groups", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestMustRecover(t *testing.T) {
	if err := MustRecover(nil); err != nil {
		t.Errorf("MustRecover(nil) = %v, want nil", err)
	}
	if err := MustRecover("boom"); err == nil {
		t.Error("MustRecover with panic value should return an error")
	}
}
