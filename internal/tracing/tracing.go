// Package tracing wires Jaeger into the clip pipeline. Every run opens
// a root span and each stage a child span, so slow tasks can be broken
// down into their transcription, narration and rendering parts.
package tracing

import (
	"context"
	"fmt"
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/Anning01/playlet-clip/internal/config"
)

// noopCloser is returned when tracing is disabled so callers can defer
// Close unconditionally.
type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// Init installs the global tracer described by the configuration. With
// tracing disabled the helpers below become no-ops and the returned
// closer does nothing.
func Init(cfg config.TracingConfig) (io.Closer, error) {
	if !cfg.Enabled {
		opentracing.SetGlobalTracer(opentracing.NoopTracer{})
		return noopCloser{}, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "playlet-clip"
	}

	jcfg := &jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:            false,
			CollectorEndpoint:   cfg.JaegerEndpoint,
			BufferFlushInterval: 1,
		},
	}

	tracer, closer, err := jcfg.NewTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}

// StartSpan starts a span as a child of whatever span the context
// carries.
func StartSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, operationName)
}

// FinishSpan finishes a span. Safe on nil.
func FinishSpan(span opentracing.Span) {
	if span != nil {
		span.Finish()
	}
}

// LogError marks the span failed and records the error message.
func LogError(span opentracing.Span, err error) {
	if span != nil && err != nil {
		span.SetTag("error", true)
		span.LogKV("error", err.Error())
	}
}

// SetTag sets a tag on the span. Safe on nil.
func SetTag(span opentracing.Span, key string, value interface{}) {
	if span != nil {
		span.SetTag(key, value)
	}
}
