package xlog

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ xLogCore = (*fileCore)(nil)

type fileCore struct {
	core *commonCore
}

func (cc *fileCore) context() context.Context           { return cc.core.ctx }
func (cc *fileCore) timeEncoder() zapcore.TimeEncoder   { return cc.core.tsEnc }
func (cc *fileCore) levelEncoder() zapcore.LevelEncoder { return cc.core.lvlEnc }
func (cc *fileCore) writeSyncer() zapcore.WriteSyncer   { return cc.core.ws }
func (cc *fileCore) outEncoder() func(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return cc.core.enc
}
func (cc *fileCore) Enabled(lvl zapcore.Level) bool       { return cc.core.lvlEnabler.Enabled(lvl) }
func (cc *fileCore) With(fields []zap.Field) zapcore.Core { return cc.core.With(fields) }
func (cc *fileCore) Sync() error                          { return cc.core.Sync() }
func (cc *fileCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return cc.core.Check(ent, ce)
}

func (cc *fileCore) Write(ent zapcore.Entry, fields []zap.Field) error {
	return cc.core.Write(ent, fields)
}

type FileCoreConfig struct {
	FilePath string `json:"filePath" yaml:"filePath"`
	Filename string `json:"filename" yaml:"filename"`
	// Rotation is disabled if empty.
	FileMaxSize      string `json:"fileMaxSize" yaml:"fileMaxSize"`
	FileMaxBackups   int    `json:"fileMaxBackups" yaml:"fileMaxBackups"`
	FileCompressible bool   `json:"fileCompressible" yaml:"fileCompressible"`
}

func newFileCore(cfg *FileCoreConfig) XLogCoreConstructor {
	return func(
		ctx context.Context,
		lvlEnabler zapcore.LevelEnabler,
		encoder logEncoderType,
		lvlEnc zapcore.LevelEncoder,
		tsEnc zapcore.TimeEncoder,
	) xLogCore {
		if lvlEnabler == nil {
			return nil
		}
		if cfg == nil {
			cfg = &FileCoreConfig{
				Filename: filepath.Base(os.Args[0]) + "_xlog.log",
				FilePath: os.TempDir(),
			}
		}

		closeC := make(chan struct{})
		var fileWriter io.WriteCloser
		if len(cfg.FileMaxSize) > 0 {
			fileWriter = RotatingLog(cfg, closeC)
		} else {
			fileWriter = SingleLog(cfg, closeC)
		}
		if fileWriter == nil {
			return nil
		}
		if ctx != nil {
			go func() {
				<-ctx.Done()
				close(closeC)
			}()
		}

		cc := &fileCore{
			core: &commonCore{
				ctx:        ctx,
				lvlEnabler: lvlEnabler,
				lvlEnc:     lvlEnc,
				tsEnc:      tsEnc,
				ws:         zapcore.Lock(zapcore.AddSync(fileWriter)),
				enc:        getEncoderByType(encoder),
			},
		}
		config := defaultCoreEncoderCfg()
		config.EncodeLevel = cc.core.lvlEnc
		config.EncodeTime = cc.core.tsEnc
		config.NameKey = coreKeyIgnored
		cc.core.core = zapcore.NewCore(cc.core.enc(*config), cc.core.ws, cc.core.lvlEnabler)
		return cc
	}
}
