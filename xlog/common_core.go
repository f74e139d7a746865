package xlog

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xrbtree/lib/infra"
)

var _ xLogCore = (*commonCore)(nil)

type commonCore struct {
	ctx        context.Context
	lvlEnabler zapcore.LevelEnabler
	lvlEnc     zapcore.LevelEncoder
	tsEnc      zapcore.TimeEncoder
	ws         zapcore.WriteSyncer
	enc        func(cfg zapcore.EncoderConfig) zapcore.Encoder
	core       zapcore.Core
}

func (cc *commonCore) timeEncoder() zapcore.TimeEncoder                            { return cc.tsEnc }
func (cc *commonCore) levelEncoder() zapcore.LevelEncoder                          { return cc.lvlEnc }
func (cc *commonCore) writeSyncer() zapcore.WriteSyncer                            { return cc.ws }
func (cc *commonCore) outEncoder() func(cfg zapcore.EncoderConfig) zapcore.Encoder { return cc.enc }
func (cc *commonCore) context() context.Context                                    { return cc.ctx }
func (cc *commonCore) Enabled(lvl zapcore.Level) bool {
	return cc.lvlEnabler.Enabled(lvl)
}

func (cc *commonCore) With(fields []zap.Field) zapcore.Core {
	return cc.core.With(fields)
}

func (cc *commonCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return cc.core.Check(ent, ce)
}

func (cc *commonCore) Write(ent zapcore.Entry, fields []zap.Field) error {
	return cc.core.Write(ent, fields)
}

func (cc *commonCore) Sync() error {
	return cc.core.Sync()
}

// WrapCore rebuilds the core with another encoder config. The level is
// still delegated to the wrapped core, so the child logger follows the
// level changes of its parent.
func WrapCore(core xLogCore, cfg *zapcore.EncoderConfig) (xLogCore, error) {
	return WrapCoreNewLevelEnabler(core, zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return core.Enabled(l)
	}), cfg)
}

func WrapCoreNewLevelEnabler(core xLogCore, lvlEnabler zapcore.LevelEnabler, cfg *zapcore.EncoderConfig) (xLogCore, error) {
	if core == nil {
		return nil, infra.NewErrorStack("[XLogger] logger core is nil")
	}
	if cfg == nil {
		return nil, infra.NewErrorStack("[XLogger] logger core config is empty")
	}
	if lvlEnabler == nil {
		return nil, infra.NewErrorStack("[XLogger] logger core level enabler is nil")
	}
	cfg.EncodeLevel = core.levelEncoder()
	cfg.EncodeTime = core.timeEncoder()

	cc := &commonCore{
		ctx:        core.context(),
		ws:         core.writeSyncer(),
		enc:        core.outEncoder(),
		lvlEnabler: lvlEnabler,
		lvlEnc:     core.levelEncoder(),
		tsEnc:      core.timeEncoder(),
	}
	cc.core = zapcore.NewCore(cc.enc(*cfg), cc.ws, cc.lvlEnabler)
	return cc, nil
}

func defaultCoreEncoderCfg() *zapcore.EncoderConfig {
	return &zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "lvl",
		TimeKey:       "ts",
		CallerKey:     "callAt",
		EncodeCaller:  zapcore.ShortCallerEncoder,
		FunctionKey:   "fn",
		NameKey:       "component",
		EncodeName:    zapcore.FullNameEncoder,
		StacktraceKey: coreKeyIgnored,
	}
}

// The component loggers (fx, ants) drop the caller, it always
// points to the adapter.
func componentCoreEncoderCfg() *zapcore.EncoderConfig {
	return &zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "lvl",
		TimeKey:       "ts",
		CallerKey:     coreKeyIgnored,
		EncodeCaller:  zapcore.ShortCallerEncoder,
		FunctionKey:   coreKeyIgnored,
		NameKey:       "component",
		EncodeName:    zapcore.FullNameEncoder,
		StacktraceKey: coreKeyIgnored,
	}
}

// wrapComponentCore is the zap.WrapCore function of the component loggers.
func wrapComponentCore(core zapcore.Core) zapcore.Core {
	if core == nil {
		panic("[XLogger] core is nil")
	}
	var (
		cc  xLogCore
		err error
	)
	switch c := core.(type) {
	case xLogMultiCore:
		cc, err = WrapCores(c, componentCoreEncoderCfg())
	case xLogCore:
		cc, err = WrapCore(c, componentCoreEncoderCfg())
	default:
		panic("[XLogger] core is not XLogCore")
	}
	if err != nil {
		panic(err)
	}
	return cc
}
