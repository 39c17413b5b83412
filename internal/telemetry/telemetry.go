// Package telemetry exports brain dump metrics and log events over OTLP HTTP.
//
// Export is opt-in: each signal is enabled by its endpoint in Endpoints,
// which the start command fills from the [telemetry] config section.
// Without endpoints the recorders write to the OTel no-op providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultExportInterval is how often metrics are pushed when Endpoints
// leaves ExportInterval zero.
const DefaultExportInterval = 30 * time.Second

// Endpoints selects which signals are exported and where.
type Endpoints struct {
	// MetricsURL is the OTLP HTTP metrics endpoint. Empty disables metrics.
	MetricsURL string

	// LogsURL is the OTLP HTTP logs endpoint. Empty disables log events.
	LogsURL string

	ExportInterval time.Duration
}

// Enabled reports whether any signal is exported.
func (e Endpoints) Enabled() bool {
	return e.MetricsURL != "" || e.LogsURL != ""
}

// Provider owns the SDK providers Init installed.
type Provider struct {
	mu        sync.Mutex
	shutdowns []func(context.Context) error
	done      bool
}

// Shutdown flushes pending data and stops the providers. Calls after the
// first return nil.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return nil
	}
	p.done = true

	var errs []error
	for _, fn := range p.shutdowns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("telemetry shutdown: %w", err)
	}
	return nil
}

// Init installs global meter and logger providers for the enabled signals.
// It returns (nil, nil) when ep enables nothing.
func Init(ctx context.Context, serviceName, serviceVersion string, ep Endpoints) (*Provider, error) {
	if !ep.Enabled() {
		return nil, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
		resource.WithHost(),
		resource.WithOS(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTel resource: %w", err)
	}

	p := &Provider{}
	if ep.MetricsURL != "" {
		mp, err := newMeterProvider(ctx, res, ep)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(mp)
		p.shutdowns = append(p.shutdowns, mp.Shutdown)
	}
	if ep.LogsURL != "" {
		lp, err := newLoggerProvider(ctx, res, ep.LogsURL)
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
		global.SetLoggerProvider(lp)
		p.shutdowns = append(p.shutdowns, lp.Shutdown)
	}
	return p, nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource, ep Endpoints) (*sdkmetric.MeterProvider, error) {
	exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(ep.MetricsURL))
	if err != nil {
		return nil, fmt.Errorf("creating OTLP metric exporter: %w", err)
	}
	interval := ep.ExportInterval
	if interval <= 0 {
		interval = DefaultExportInterval
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	), nil
}

func newLoggerProvider(ctx context.Context, res *resource.Resource, url string) (*sdklog.LoggerProvider, error) {
	exp, err := otlploghttp.New(ctx, otlploghttp.WithEndpointURL(url))
	if err != nil {
		return nil, fmt.Errorf("creating OTLP log exporter: %w", err)
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
	), nil
}
