package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/benz9527/xrbtree/lib/infra"
)

type ShutdownFunc func(ctx context.Context) error

type MetricsExporterType string

const (
	NoneMetrics       MetricsExporterType = "none"
	StdOutMetrics     MetricsExporterType = "stdout"
	PrometheusMetrics MetricsExporterType = "prometheus"
)

func ParseMetricsExporterType(typ string) (MetricsExporterType, error) {
	switch t := MetricsExporterType(strings.ToLower(strings.TrimSpace(typ))); t {
	case NoneMetrics, StdOutMetrics, PrometheusMetrics:
		return t, nil
	case "":
		return NoneMetrics, nil
	default:
	}
	return NoneMetrics, infra.NewErrorStack("unknown metrics exporter <" + typ + ">")
}

type MetricsExporterConfig struct {
	Type MetricsExporterType
	// Stdout only.
	Interval time.Duration
	Writer   io.Writer
	// Prometheus only, the scrape endpoint is not served if empty.
	Addr string
}

// InitMetricsExporter sets the global meter provider. The returned
// shutdown flushes the pending metrics.
func InitMetricsExporter(cfg MetricsExporterConfig) (ShutdownFunc, error) {
	switch cfg.Type {
	case StdOutMetrics:
		interval := cfg.Interval
		if interval <= 0 {
			interval = 10 * time.Second
		}
		opts := []stdoutmetric.Option{stdoutmetric.WithPrettyPrint()}
		if cfg.Writer != nil {
			opts = append(opts, stdoutmetric.WithWriter(cfg.Writer))
		}
		return newConsoleMetricsExporter(interval, interval, opts...)
	case PrometheusMetrics:
		reg := promclient.NewRegistry()
		shutdown, err := newPrometheusMetricsExporter(reg)
		if err != nil || len(cfg.Addr) == 0 {
			return shutdown, err
		}
		stop, err := servePrometheus(cfg.Addr, reg)
		if err != nil {
			return nil, infra.AppendErrorStack(err, shutdown(context.Background()))
		}
		return func(ctx context.Context) error {
			return infra.AppendErrorStack(nil, stop(ctx), shutdown(ctx))
		}, nil
	case NoneMetrics, "":
		return func(ctx context.Context) error { return nil }, nil
	default:
	}
	return nil, infra.NewErrorStack("unknown metrics exporter <" + string(cfg.Type) + ">")
}

// Serves for test/dev environment.
func newConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (ShutdownFunc, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "stdout metrics exporter")
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(timeout),
	)))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// Serves for the product environment and fetch stats metrics by HTTP.
func newPrometheusMetricsExporter(reg promclient.Registerer) (ShutdownFunc, error) {
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "prometheus metrics exporter")
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

func servePrometheus(addr string, reg promclient.Gatherer) (ShutdownFunc, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "listen prometheus endpoint "+addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	return func(ctx context.Context) error {
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, nil
}
