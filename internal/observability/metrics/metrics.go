package metrics

import (
	"context"
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
	importRows        metric.Int64Counter
	importRuns        metric.Int64Counter
	tablesProvisioned metric.Int64Counter
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
		name = "epidash"
	}
	meter := provider.Meter(name)

	importRows, err := meter.Int64Counter("epidash_import_rows_total")
	if err != nil {
		return nil, err
	}
	importRuns, err := meter.Int64Counter("epidash_import_runs_total")
	if err != nil {
		return nil, err
	}
	tablesProvisioned, err := meter.Int64Counter("epidash_fact_tables_provisioned_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		importRows:        importRows,
		importRuns:        importRuns,
		tablesProvisioned: tablesProvisioned,
	}, nil
}

// RecordImport records the outcome of one ingestion run.
func (m *Metrics) RecordImport(ctx context.Context, diseaseCode string, inserted, skipped int64) {
	if m == nil {
		return
	}
	disease := attribute.String("disease_code", diseaseCode)
	m.importRows.Add(ctx, inserted, metric.WithAttributes(disease, attribute.String("outcome", "inserted")))
	m.importRows.Add(ctx, skipped, metric.WithAttributes(disease, attribute.String("outcome", "skipped")))
	m.importRuns.Add(ctx, 1, metric.WithAttributes(disease))
}

// RecordProvision records a fact-table provisioning.
func (m *Metrics) RecordProvision(ctx context.Context, diseaseCode string) {
	if m == nil {
		return
	}
	m.tablesProvisioned.Add(ctx, 1, metric.WithAttributes(attribute.String("disease_code", diseaseCode)))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		return otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	}
}
