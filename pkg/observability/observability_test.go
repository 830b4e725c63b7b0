package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestStartSpan(t *testing.T) {
	sr := withRecorder(t)

	_, span := StartSpan(context.Background(), "carray.FromDense")
	span.SetAttribute("chunks", 4)
	span.SetAttribute("codec", "lz4")
	span.SetAttribute("ratio", 2.5)
	span.SetAttribute("shuffle", true)
	span.SetAttribute("elements", int64(65536))
	span.SetAttribute("level", struct{ N int }{5})
	span.RecordError(nil)
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	got := ended[0]
	if got.Name() != "carray.FromDense" {
		t.Errorf("unexpected span name %q", got.Name())
	}
	if len(got.Attributes()) != 6 {
		t.Errorf("expected 6 attributes, got %d", len(got.Attributes()))
	}
	if got.Status().Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", got.Status().Code)
	}
}

func TestSpanRecordError(t *testing.T) {
	sr := withRecorder(t)

	_, span := StartSpan(context.Background(), "ctable.Evaluate")
	span.RecordError(errors.New("parse: unexpected token"))
	span.End()

	got := sr.Ended()[0]
	if got.Status().Code != codes.Error {
		t.Fatalf("expected Error status, got %v", got.Status().Code)
	}
	if len(got.Events()) != 1 {
		t.Errorf("expected an exception event, got %d events", len(got.Events()))
	}
}

func TestNestedSpans(t *testing.T) {
	sr := withRecorder(t)

	ctx, parent := StartSpan(context.Background(), "parent")
	_, child := StartSpan(ctx, "child")
	child.End()
	parent.End()

	ended := sr.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(ended))
	}
	if ended[0].Parent().SpanID() != ended[1].SpanContext().SpanID() {
		t.Error("child span is not parented to the outer span")
	}
}

func TestNewTracerProviderExports(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultTracingConfig("carray-test")
	cfg.Writer = &buf
	cfg.Synchronous = true

	tp, err := NewTracerProvider(cfg)
	if err != nil {
		t.Fatalf("NewTracerProvider: %v", err)
	}
	_, span := tp.Tracer(InstrumentationName).Start(context.Background(), "exported")
	span.End()
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if !strings.Contains(buf.String(), "exported") {
		t.Errorf("span not written to exporter output: %q", buf.String())
	}
}

func TestInitTracing(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	cfg := DefaultTracingConfig("carray-test")
	cfg.Writer = &buf
	cfg.SamplingRate = 0

	shutdown, err := InitTracing(cfg)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := StartSpan(context.Background(), "unsampled")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if strings.Contains(buf.String(), "unsampled") {
		t.Error("span exported despite zero sampling rate")
	}
}
