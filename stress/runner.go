package stress

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/id"
	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/xlog"
)

// Runner runs the independent trials in parallel. Each trial owns
// its own tree, nothing is shared between the workers.
type Runner struct {
	cfg    *Config
	logger xlog.XLogger
	ids    id.Generator
	pool   *ants.Pool
	stats  *stressStats
}

func NewRunner(cfg *Config, logger xlog.XLogger, mp metric.MeterProvider) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, infra.NewErrorStack("nil stress logger")
	}
	ids, err := id.MonotonicNonZeroID()
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "trial id generator")
	}
	pool, err := ants.NewPool(cfg.Workers,
		ants.WithPreAlloc(true),
		ants.WithLogger(xlog.NewAntsXLogger(logger)),
	)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "stress worker pool")
	}
	return &Runner{
		cfg:    cfg,
		logger: logger,
		ids:    ids,
		pool:   pool,
		stats:  newStressStats(mp),
	}, nil
}

// Run blocks until all the trials finish. The results keep the
// submission order, a trial that was not run has a nil result.
func (r *Runner) Run(ctx context.Context) ([]*TrialResult, error) {
	var (
		wg      sync.WaitGroup
		lock    sync.Mutex
		merr    error
		results = make([]*TrialResult, r.cfg.Trials)
	)
	collect := func(err error) {
		lock.Lock()
		merr = infra.AppendErrorStack(merr, err)
		lock.Unlock()
	}

	for i := 0; i < r.cfg.Trials; i++ {
		idx, trialID := i, r.ids.Number()
		tctx := context.WithValue(ctx, TrialContextKey, trialID)
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			res, err := r.runTrial(tctx, trialID)
			results[idx] = res
			if err != nil {
				r.logger.ErrorStackContext(tctx, err, "trial failed")
				collect(err)
				return
			}
			r.logger.InfoContext(tctx, "trial passed",
				zap.Int("keys", res.Keys),
				zap.Int("unique", res.Unique),
				zap.Int("duplicates", res.Duplicates),
				zap.Int("checks", res.Checks),
				zap.Duration("duration", res.Duration),
			)
		})
		if err != nil {
			wg.Done()
			collect(infra.WrapErrorStackWithMessage(err, fmt.Sprintf("submit trial %d", trialID)))
		}
	}
	wg.Wait()
	return results, merr
}

// runTrial converts the panics of a trial into its error, the
// rbtree debug assertions included.
func (r *Runner) runTrial(ctx context.Context, trialID uint64) (res *TrialResult, err error) {
	t := newTrial(trialID, r.cfg, r.stats, r.logger)
	defer func() {
		if rec := recover(); rec != nil {
			res = t.res
			err = infra.NewErrorStack(fmt.Sprintf("trial %d panic: %v", trialID, rec))
		}
		r.stats.RecordTrial(t.res.Duration, err)
	}()
	return t.run(ctx)
}

func (r *Runner) Release() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Release()
}
