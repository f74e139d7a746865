package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xrbtree/lib/infra"
	"github.com/benz9527/xrbtree/observability"
	"github.com/benz9527/xrbtree/stress"
	"github.com/benz9527/xrbtree/xlog"
)

const (
	appName = "xrbstress"

	exitPassed  = 0
	exitFailed  = 1
	exitInvalid = 2
)

type banner struct{}

func (banner) JSON() string {
	return `{"app":"` + appName + `","desc":"red-black tree stress and cross-check"}`
}

func (banner) PlainText() string {
	return appName + ", red-black tree stress and cross-check"
}

// logOutput redirects the logs, nil means stdout.
type logOutput struct {
	w io.Writer
}

func parseConfig(args []string) (*stress.Config, error) {
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	defaults := stress.DefaultConfig()
	configPath := fs.String("config", "", "YAML config file, the flags override its values")
	keys := fs.Int("keys", defaults.Keys, "random keys inserted by each trial")
	maxKey := fs.Int64("max-key", defaults.MaxKey, "the keys are drawn from [1, max-key]")
	trials := fs.Int("trials", defaults.Trials, "independent trials")
	workers := fs.Int("workers", defaults.Workers, "trials run in parallel")
	check := fs.String("check", string(defaults.Check), "rbtree validation: every|final|none")
	dotDir := fs.String("dot-dir", defaults.DotDir, "dump the trial trees as graphviz files beneath the dir")
	metrics := fs.String("metrics", defaults.Metrics, "metrics exporter: stdout|prometheus|none")
	metricsAddr := fs.String("metrics-addr", defaults.MetricsAddr, "serve the prometheus /metrics endpoint on the address")
	logLevel := fs.String("log-level", defaults.LogLevel, "DEBUG|INFO|WARN|ERROR")
	logFile := fs.String("log-file", defaults.LogFile, "also write the logs into the file")
	logMaxSize := fs.String("log-max-size", defaults.LogMaxSize, "rotate the log file at the size, e.g. 64MB")
	logMaxBackups := fs.Int("log-max-backups", defaults.LogMaxBackups, "rotated log files to keep")
	logCompress := fs.Bool("log-compress", defaults.LogCompress, "zip the rotated log files beyond the kept ones")
	seed := fs.Uint64("seed", defaults.Seed, "random seed, 0 means a time based one")
	if err := fs.Parse(args); err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "parse flags")
	}

	cfg := defaults
	if len(*configPath) > 0 {
		var err error
		if cfg, err = stress.LoadConfigFile(*configPath); err != nil {
			return nil, err
		}
	}
	overrides := map[string]func(){
		"keys":            func() { cfg.Keys = *keys },
		"max-key":         func() { cfg.MaxKey = *maxKey },
		"trials":          func() { cfg.Trials = *trials },
		"workers":         func() { cfg.Workers = *workers },
		"check":           func() { cfg.Check = stress.CheckMode(*check) },
		"dot-dir":         func() { cfg.DotDir = *dotDir },
		"metrics":         func() { cfg.Metrics = *metrics },
		"metrics-addr":    func() { cfg.MetricsAddr = *metricsAddr },
		"log-level":       func() { cfg.LogLevel = *logLevel },
		"log-file":        func() { cfg.LogFile = *logFile },
		"log-max-size":    func() { cfg.LogMaxSize = *logMaxSize },
		"log-max-backups": func() { cfg.LogMaxBackups = *logMaxBackups },
		"log-compress":    func() { cfg.LogCompress = *logCompress },
		"seed":            func() { cfg.Seed = *seed },
	}
	fs.Visit(func(f *pflag.Flag) {
		if fn, ok := overrides[f.Name]; ok {
			fn()
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(lc fx.Lifecycle, cfg *stress.Config, out logOutput) xlog.XLogger {
	ctx, cancel := context.WithCancel(context.Background())
	opts := []xlog.XLoggerOption{
		xlog.WithXLoggerContext(ctx),
		xlog.WithXLoggerLevel(xlog.ParseLogLevel(cfg.LogLevel)),
		xlog.WithXLoggerContextFieldExtract(stress.TrialContextKey),
	}
	if out.w != nil {
		opts = append(opts, xlog.WithXLoggerWriter(out.w))
	} else {
		opts = append(opts, xlog.WithXLoggerStdOutWriter())
	}
	if len(cfg.LogFile) > 0 {
		opts = append(opts, xlog.WithXLoggerFileWriter(&xlog.FileCoreConfig{
			FilePath:         filepath.Dir(cfg.LogFile),
			Filename:         filepath.Base(cfg.LogFile),
			FileMaxSize:      cfg.LogMaxSize,
			FileMaxBackups:   cfg.LogMaxBackups,
			FileCompressible: cfg.LogCompress,
		}))
	}
	logger := xlog.NewXLogger(opts...)
	lc.Append(fx.StopHook(func() {
		_ = logger.Sync()
		cancel()
	}))
	return logger
}

func newMeterProvider(lc fx.Lifecycle, cfg *stress.Config) (metric.MeterProvider, error) {
	typ, err := observability.ParseMetricsExporterType(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	shutdown, err := observability.InitMetricsExporter(observability.MetricsExporterConfig{
		Type: typ,
		Addr: cfg.MetricsAddr,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func(ctx context.Context) error {
		return shutdown(ctx)
	}))
	return otel.GetMeterProvider(), nil
}

func newRunner(lc fx.Lifecycle, cfg *stress.Config, logger xlog.XLogger, mp metric.MeterProvider) (*stress.Runner, error) {
	r, err := stress.NewRunner(cfg, logger, mp)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(r.Release))
	return r, nil
}

func setup(lc fx.Lifecycle, logger xlog.XLogger, mp metric.MeterProvider) error {
	logger.Banner(banner{})
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Logf(zapcore.InfoLevel, format, args...)
	}))
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "set maxprocs")
	}
	lc.Append(fx.StopHook(undo))
	return observability.InitAppStats(appName, mp)
}

func newApp(cfg *stress.Config, out logOutput, populate ...any) *fx.App {
	return fx.New(
		fx.Supply(cfg, out),
		fx.WithLogger(func(logger xlog.XLogger) fxevent.Logger {
			return xlog.NewFxXLogger(logger)
		}),
		fx.Provide(
			newLogger,
			newMeterProvider,
			newRunner,
		),
		fx.Invoke(setup),
		fx.Populate(populate...),
	)
}

func run(ctx context.Context, args []string, out io.Writer) int {
	cfg, err := parseConfig(args)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return exitInvalid
	}

	var (
		runner *stress.Runner
		logger xlog.XLogger
	)
	app := newApp(cfg, logOutput{w: out}, &runner, &logger)
	if err = app.Err(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return exitInvalid
	}
	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()
	if err = app.Start(startCtx); err != nil {
		logger.ErrorStack(err, "app start failed")
		return exitFailed
	}

	start := time.Now()
	results, runErr := runner.Run(ctx)
	passed := 0
	for _, res := range results {
		if res != nil {
			passed++
		}
	}
	code := exitPassed
	if runErr != nil {
		code = exitFailed
		logger.ErrorStack(runErr, "stress failed",
			zap.Int("trials", cfg.Trials),
			zap.Duration("elapsed", time.Since(start)),
		)
	} else {
		logger.Info("stress passed",
			zap.Int("trials", passed),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer stopCancel()
	if err = app.Stop(stopCtx); err != nil && code == exitPassed {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		code = exitFailed
	}
	return code
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], nil)
	stop()
	os.Exit(code)
}
