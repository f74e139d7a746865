package observability

import (
	"context"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/process"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xrbtree/lib/infra"
)

var (
	once sync.Once
)

type appStats struct {
	goroutines metric.Int64ObservableUpDownCounter
	processes  metric.Int64ObservableUpDownCounter
	rss        metric.Int64ObservableGauge
	cpuPercent metric.Float64ObservableGauge
}

func appStatsMeterName(name string) string {
	builder := &strings.Builder{}
	builder.WriteString("xrbtree/app")
	builder.WriteString("/")
	if len(strings.TrimSpace(name)) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

// newAppStats registers the process level gauges. The process stats
// are read by gopsutil on each collection.
func newAppStats(meter metric.Meter) (*appStats, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "unable to inspect the current process")
	}
	stats := &appStats{
		goroutines: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"app.core.goroutines",
			metric.WithDescription(`The application goroutines' info.`),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				ob.Observe(int64(runtime.NumGoroutine()))
				return nil
			}),
		)),
		processes: lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
			"app.core.processes",
			metric.WithDescription(`The application processes' info.`),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				ob.Observe(int64(runtime.GOMAXPROCS(0)))
				return nil
			}),
		)),
		rss: lo.Must[metric.Int64ObservableGauge](meter.Int64ObservableGauge(
			"app.process.memory.rss",
			metric.WithDescription(`The resident set size of the process.`),
			metric.WithUnit("By"),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				mem, err := proc.MemoryInfoWithContext(ctx)
				if err != nil {
					return err
				}
				ob.Observe(int64(mem.RSS))
				return nil
			}),
		)),
		cpuPercent: lo.Must[metric.Float64ObservableGauge](meter.Float64ObservableGauge(
			"app.process.cpu.percent",
			metric.WithDescription(`The cpu usage percent of the process since it started.`),
			metric.WithUnit("%"),
			metric.WithFloat64Callback(func(ctx context.Context, ob metric.Float64Observer) error {
				percent, err := proc.CPUPercentWithContext(ctx)
				if err != nil {
					return err
				}
				ob.Observe(percent)
				return nil
			}),
		)),
	}
	return stats, nil
}

// InitAppStats registers the app stats and the go runtime
// instrumentation once. A nil provider means the global one.
func InitAppStats(name string, mp metric.MeterProvider) error {
	var err error
	once.Do(func() {
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		meter := mp.Meter(
			appStatsMeterName(name),
			metric.WithInstrumentationVersion(otelruntime.Version()),
		)
		if _, err = newAppStats(meter); err != nil {
			return
		}
		err = otelruntime.Start(otelruntime.WithMeterProvider(mp))
	})
	return err
}
