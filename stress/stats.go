package stress

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	StressStatsName = "xrbtree/stress"
)

var (
	opInsert = attribute.NewSet(attribute.String("rbtree.op", "insert"))
	opRemove = attribute.NewSet(attribute.String("rbtree.op", "remove"))
	opFind   = attribute.NewSet(attribute.String("rbtree.op", "find"))

	trialPassed = attribute.NewSet(attribute.String("trial.result", "passed"))
	trialFailed = attribute.NewSet(attribute.String("trial.result", "failed"))
)

type stressStats struct {
	ops            metric.Int64Counter
	trials         metric.Int64Counter
	liveKeys       metric.Int64UpDownCounter
	checkDurations metric.Float64Histogram
	trialDurations metric.Float64Histogram
}

func (stats *stressStats) RecordOps(set attribute.Set, n int64) {
	if stats == nil || n <= 0 {
		return
	}
	stats.ops.Add(context.Background(), n, metric.WithAttributeSet(set))
}

func (stats *stressStats) RecordLiveKeys(delta int64) {
	if stats == nil || delta == 0 {
		return
	}
	stats.liveKeys.Add(context.Background(), delta)
}

func (stats *stressStats) RecordCheckDuration(d time.Duration) {
	if stats == nil {
		return
	}
	stats.checkDurations.Record(context.Background(), float64(d.Microseconds())/1e3)
}

func (stats *stressStats) RecordTrial(d time.Duration, err error) {
	if stats == nil {
		return
	}
	set := trialPassed
	if err != nil {
		set = trialFailed
	}
	stats.trials.Add(context.Background(), 1, metric.WithAttributeSet(set))
	stats.trialDurations.Record(context.Background(), float64(d.Milliseconds()), metric.WithAttributeSet(set))
}

// newStressStats creates the instruments from mp, nil means the
// global meter provider.
func newStressStats(mp metric.MeterProvider) *stressStats {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(StressStatsName)
	return &stressStats{
		ops: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"rbtree.ops",
			metric.WithDescription("The rbtree operations issued by the stress trials."),
		)),
		trials: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"stress.trials",
			metric.WithDescription("The finished stress trials."),
		)),
		liveKeys: lo.Must[metric.Int64UpDownCounter](meter.Int64UpDownCounter(
			"rbtree.keys",
			metric.WithDescription("The keys held by the running trials."),
		)),
		checkDurations: lo.Must[metric.Float64Histogram](meter.Float64Histogram(
			"rbtree.check.duration",
			metric.WithDescription("The rbtree validation latencies."),
			metric.WithUnit("ms"),
		)),
		trialDurations: lo.Must[metric.Float64Histogram](meter.Float64Histogram(
			"stress.trial.duration",
			metric.WithDescription("The stress trial latencies."),
			metric.WithUnit("ms"),
		)),
	}
}
