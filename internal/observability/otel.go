package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "foodhub-gateway"

// Counter names a gateway counter
type Counter string

const (
	FanoutLookups      Counter = "gateway.fanout.lookups"
	MemoHits           Counter = "gateway.memo.hits"
	MemoMisses         Counter = "gateway.memo.misses"
	LedgerReservations Counter = "gateway.ledger.reservations"
	LedgerCommits      Counter = "gateway.ledger.commits"
	LedgerReleases     Counter = "gateway.ledger.releases"
	LedgerRejections   Counter = "gateway.ledger.rejections"
	ToggleRollbacks    Counter = "gateway.toggle.rollbacks"
)

var counterDescriptions = map[Counter]string{
	FanoutLookups:      "Backend lookups issued while resolving view-models",
	MemoHits:           "User display memo hits",
	MemoMisses:         "User display memo misses",
	LedgerReservations: "Coin reservations taken",
	LedgerCommits:      "Coin reservations committed",
	LedgerReleases:     "Coin reservations released",
	LedgerRejections:   "Paid operations rejected for insufficient balance",
	ToggleRollbacks:    "Optimistic toggles rolled back",
}

// Metrics holds the gateway's counters
type Metrics struct {
	counters map[Counter]metric.Int64Counter
}

// Setup installs an OTLP trace exporter and returns its shutdown function
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

// NewMetrics registers the gateway counters on the global meter
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{counters: make(map[Counter]metric.Int64Counter, len(counterDescriptions))}

	for name, desc := range counterDescriptions {
		counter, err := meter.Int64Counter(string(name), metric.WithDescription(desc))
		if err != nil {
			return nil, err
		}
		m.counters[name] = counter
	}
	return m, nil
}

// Add increments counter when metrics are configured
func (m *Metrics) Add(ctx context.Context, counter Counter, n int64, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	c, ok := m.counters[counter]
	if !ok {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attrs...))
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName)
}

// RecordError records an error in the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}
