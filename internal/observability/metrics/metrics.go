package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	holdTransitions       metric.Int64Counter
	transfers             metric.Int64Counter
	notificationsSent     metric.Int64Counter
	notificationsFailed   metric.Int64Counter
	processorCalls        metric.Int64Counter
	processorCallDuration metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "rushr"
	}
	meter := provider.Meter(name)

	holdTransitions, err := meter.Int64Counter("rushr_payment_hold_transitions_total")
	if err != nil {
		return nil, err
	}
	transfers, err := meter.Int64Counter("rushr_transfers_total")
	if err != nil {
		return nil, err
	}
	notificationsSent, err := meter.Int64Counter("rushr_notifications_sent_total")
	if err != nil {
		return nil, err
	}
	notificationsFailed, err := meter.Int64Counter("rushr_notifications_failed_total")
	if err != nil {
		return nil, err
	}
	processorCalls, err := meter.Int64Counter("rushr_processor_calls_total")
	if err != nil {
		return nil, err
	}
	processorCallDuration, err := meter.Float64Histogram("rushr_processor_call_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		holdTransitions:       holdTransitions,
		transfers:             transfers,
		notificationsSent:     notificationsSent,
		notificationsFailed:   notificationsFailed,
		processorCalls:        processorCalls,
		processorCallDuration: processorCallDuration,
	}, nil
}

// RecordHoldTransition increments hold state transition counts.
func (m *Metrics) RecordHoldTransition(ctx context.Context, toStatus string) {
	if m == nil {
		return
	}
	m.holdTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("to_status", strings.TrimSpace(toStatus)),
	))
}

// RecordTransfer increments payout transfer counts.
func (m *Metrics) RecordTransfer(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.transfers.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", strings.TrimSpace(outcome)),
	))
}

// RecordNotification increments per-channel notification delivery counts.
func (m *Metrics) RecordNotification(ctx context.Context, channel string, ok bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("channel", strings.TrimSpace(channel)))
	if ok {
		m.notificationsSent.Add(ctx, 1, attrs)
		return
	}
	m.notificationsFailed.Add(ctx, 1, attrs)
}

// RecordProcessorCall records one payments-API round trip.
func (m *Metrics) RecordProcessorCall(ctx context.Context, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", outcome),
	)
	m.processorCalls.Add(ctx, 1, attrs)
	m.processorCallDuration.Record(ctx, duration.Seconds(), attrs)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
