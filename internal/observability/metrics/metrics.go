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
	ordersPlaced        metric.Int64Counter
	paymentsReconciled  metric.Int64Counter
	ticketScans         metric.Int64Counter
	withdrawalDecisions metric.Int64Counter
	notificationsSent   metric.Int64Counter
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
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "campustix"
	}
	meter := provider.Meter(name)

	ordersPlaced, err := meter.Int64Counter("campustix_orders_placed_total")
	if err != nil {
		return nil, err
	}
	paymentsReconciled, err := meter.Int64Counter("campustix_payments_reconciled_total")
	if err != nil {
		return nil, err
	}
	ticketScans, err := meter.Int64Counter("campustix_ticket_scans_total")
	if err != nil {
		return nil, err
	}
	withdrawalDecisions, err := meter.Int64Counter("campustix_withdrawal_decisions_total")
	if err != nil {
		return nil, err
	}
	notificationsSent, err := meter.Int64Counter("campustix_notifications_sent_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersPlaced:        ordersPlaced,
		paymentsReconciled:  paymentsReconciled,
		ticketScans:         ticketScans,
		withdrawalDecisions: withdrawalDecisions,
		notificationsSent:   notificationsSent,
	}, nil
}

// RecordOrderPlaced increments order intake counts.
func (m *Metrics) RecordOrderPlaced(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersPlaced.Add(ctx, 1)
}

// RecordPaymentReconciled increments reconciliation counts per outcome.
func (m *Metrics) RecordPaymentReconciled(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.paymentsReconciled.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTicketScan increments scan counts per result.
func (m *Metrics) RecordTicketScan(ctx context.Context, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.ticketScans.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordWithdrawalDecision increments withdrawal decision counts.
func (m *Metrics) RecordWithdrawalDecision(ctx context.Context, decision string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("decision", strings.TrimSpace(decision)))
	m.withdrawalDecisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotificationSent increments delivery counts per status.
func (m *Metrics) RecordNotificationSent(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.notificationsSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":     {},
	"result":      {},
	"decision":    {},
	"status":      {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
