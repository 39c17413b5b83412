// Recording helpers for brain dump events.
// Each function emits an OTel log event and increments a metric counter.

package telemetry

import (
	"context"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterRecorderName = "github.com/steveyegge/braindump"
	loggerName        = "braindump"
)

// recorderInstruments holds all lazy-initialized OTel metric instruments.
type recorderInstruments struct {
	ideaTotal         metric.Int64Counter
	resolveTotal      metric.Int64Counter
	shareFailureTotal metric.Int64Counter
	triggerTotal      metric.Int64Counter
}

var (
	instOnce sync.Once
	inst     recorderInstruments
)

// initInstruments creates the counters on first use. They come from the
// global MeterProvider, which forwards to the provider Init installs.
func initInstruments() {
	instOnce.Do(func() {
		m := otel.GetMeterProvider().Meter(meterRecorderName)

		inst.ideaTotal, _ = m.Int64Counter("braindump.ideas.captured.total",
			metric.WithDescription("Total idea append attempts"),
		)
		inst.resolveTotal, _ = m.Int64Counter("braindump.canvas.resolutions.total",
			metric.WithDescription("Total canvas creation tier attempts"),
		)
		inst.shareFailureTotal, _ = m.Int64Counter("braindump.canvas.share_failures.total",
			metric.WithDescription("Total failures to share a standalone canvas with its channel"),
		)
		inst.triggerTotal, _ = m.Int64Counter("braindump.triggers.total",
			metric.WithDescription("Total trigger events received, by kind and outcome"),
		)
	})
}

// statusStr returns "ok" or "error" depending on whether err is nil.
func statusStr(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// emit sends an OTel log event with the given body and key-value attributes.
func emit(ctx context.Context, body string, sev otellog.Severity, attrs ...otellog.KeyValue) {
	logger := global.GetLoggerProvider().Logger(loggerName)
	var r otellog.Record
	r.SetBody(otellog.StringValue(body))
	r.SetSeverity(sev)
	r.AddAttributes(attrs...)
	logger.Emit(ctx, r)
}

// errKV returns a log KeyValue with the error message, or empty string if nil.
func errKV(err error) otellog.KeyValue {
	if err != nil {
		return otellog.String("error", err.Error())
	}
	return otellog.String("error", "")
}

// severity returns SeverityInfo on success, SeverityError on failure.
func severity(err error) otellog.Severity {
	if err != nil {
		return otellog.SeverityError
	}
	return otellog.SeverityInfo
}

// maxIdeaLog is the maximum number of bytes of idea text captured in logs.
const maxIdeaLog = 256

// truncateOutput trims s to max bytes and appends "…" when truncated.
// Avoids splitting multi-byte UTF-8 characters at the boundary.
func truncateOutput(s string, max int) string {
	if len(s) <= max {
		return s
	}
	truncated := s[:max]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "…"
}

// RecordIdeaCapture records one idea append attempt.
// trigger is the entry point ("reaction", "command", "function").
func RecordIdeaCapture(ctx context.Context, trigger, channel, text string, err error) {
	initInstruments()
	status := statusStr(err)
	inst.ideaTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("trigger", trigger),
	))
	emit(ctx, "idea.capture", severity(err),
		otellog.String("trigger", trigger),
		otellog.String("channel", channel),
		otellog.String("idea", truncateOutput(text, maxIdeaLog)),
		otellog.String("status", status),
		errKV(err),
	)
}

// RecordCanvasResolve records one creation tier attempt.
func RecordCanvasResolve(ctx context.Context, tier string, err error) {
	initInstruments()
	status := statusStr(err)
	inst.resolveTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("tier", tier),
	))
	emit(ctx, "canvas.resolve", severity(err),
		otellog.String("tier", tier),
		otellog.String("status", status),
		errKV(err),
	)
}

// RecordShareFailure records a standalone canvas that could not be shared
// with its channel. The canvas itself was still created.
func RecordShareFailure(ctx context.Context, channel string, err error) {
	initInstruments()
	inst.shareFailureTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
	))
	emit(ctx, "canvas.share", otellog.SeverityWarn,
		otellog.String("channel", channel),
		errKV(err),
	)
}

// RecordTrigger records a received trigger event and whether it was handled.
// outcome is "handled", "ignored" or "failed".
func RecordTrigger(ctx context.Context, kind, outcome string) {
	initInstruments()
	inst.triggerTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
	emit(ctx, "trigger", otellog.SeverityDebug,
		otellog.String("kind", kind),
		otellog.String("outcome", outcome),
	)
}
