package observability

import (
	"context"
	"io"
	"testing"
)

func TestInitTelemetry_Disabled(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)

	telemetry, err := InitTelemetry(context.Background(), TelemetryConfig{Enabled: false}, logger)
	if err != nil {
		t.Fatalf("InitTelemetry returned error for disabled config: %v", err)
	}
	if telemetry != nil {
		t.Error("expected nil telemetry when disabled")
	}
}

func TestTelemetry_ShutdownNil(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)

	var telemetry *Telemetry
	if err := telemetry.Shutdown(context.Background(), logger); err != nil {
		t.Errorf("nil telemetry Shutdown returned error: %v", err)
	}
}

func TestLoggerWithTraceContext_NoSpan(t *testing.T) {
	logger := NewLogger(ErrorLevel, io.Discard)

	got := LoggerWithTraceContext(context.Background(), logger)
	if got != logger {
		t.Error("expected unchanged logger when no span is recording")
	}
}
