package xlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestCommonCore(t *testing.T) {
	var cc xLogCore = &commonCore{}
	require.Nil(t, cc.outEncoder())
	require.Nil(t, cc.writeSyncer())
	require.Nil(t, cc.levelEncoder())
	require.Nil(t, cc.timeEncoder())
	require.Nil(t, cc.context())

	w := &testMemOutWriter{}
	lvlEnabler := zap.NewAtomicLevelAt(LogLevelDebug.zapLevel())
	cc = &commonCore{
		ctx:        context.TODO(),
		lvlEnabler: &lvlEnabler,
		lvlEnc:     zapcore.CapitalLevelEncoder,
		tsEnc:      zapcore.ISO8601TimeEncoder,
		ws:         zapcore.AddSync(w),
		enc:        getEncoderByType(logEncoderType(6)),
	}
	config := defaultCoreEncoderCfg()
	config.EncodeLevel = cc.levelEncoder()
	config.EncodeTime = cc.timeEncoder()
	cc.(*commonCore).core = zapcore.NewCore(cc.outEncoder()(*config), cc.writeSyncer(), &lvlEnabler)
	require.NotNil(t, cc.outEncoder())
	require.NotNil(t, cc.writeSyncer())
	require.NotNil(t, cc.levelEncoder())
	require.NotNil(t, cc.timeEncoder())
	require.NotNil(t, cc.context())

	require.True(t, cc.Enabled(zapcore.DebugLevel))
	require.True(t, cc.Enabled(zapcore.ErrorLevel))

	lvlEnabler.SetLevel(zapcore.ErrorLevel)
	require.False(t, cc.Enabled(zapcore.DebugLevel))
	require.False(t, cc.Enabled(zapcore.InfoLevel))
	require.False(t, cc.Enabled(zapcore.WarnLevel))
	require.True(t, cc.Enabled(zapcore.ErrorLevel))

	lvlEnabler.SetLevel(zapcore.DebugLevel)

	core := cc.With([]zap.Field{zap.String("key", "value")})
	require.NotNil(t, core)

	ent := cc.Check(zapcore.Entry{Level: zapcore.DebugLevel}, nil)
	require.NotNil(t, ent)
	err := cc.Write(ent.Entry, []zap.Field{zap.String("key", "value")})
	require.NoError(t, err)
	require.NoError(t, cc.Sync())
	require.Len(t, w.lines(t), 1)

	// The wrapped core follows the level of the origin.
	wrapped, err := WrapCore(cc, componentCoreEncoderCfg())
	require.NoError(t, err)
	require.NotNil(t, wrapped)
	lvlEnabler.SetLevel(zapcore.InfoLevel)
	require.False(t, wrapped.Enabled(zapcore.DebugLevel))
	require.True(t, wrapped.Enabled(zapcore.InfoLevel))
	w.Reset()
	err = wrapped.Write(zapcore.Entry{Level: zapcore.InfoLevel, LoggerName: "Ants", Message: "wrapped"}, nil)
	require.NoError(t, err)
	lines := w.lines(t)
	require.Len(t, lines, 1)
	require.Equal(t, "Ants", lines[0]["component"])
	require.NotContains(t, lines[0], "callAt")

	_, err = WrapCore(cc, nil)
	require.Error(t, err)
	_, err = WrapCoreNewLevelEnabler(nil, &lvlEnabler, componentCoreEncoderCfg())
	require.Error(t, err)
	_, err = WrapCoreNewLevelEnabler(cc, nil, componentCoreEncoderCfg())
	require.Error(t, err)
}

func TestConsoleCore(t *testing.T) {
	lvlEnabler := zap.NewAtomicLevelAt(LogLevelDebug.zapLevel())
	cc := newConsoleCore(
		context.TODO(),
		&lvlEnabler,
		JSON,
		zapcore.CapitalLevelEncoder,
		zapcore.ISO8601TimeEncoder,
	)
	require.NotNil(t, cc)
	require.NotNil(t, cc.outEncoder())
	require.Equal(t, getOutWriterByType(StdOut), cc.writeSyncer())
	require.NotNil(t, cc.levelEncoder())
	require.NotNil(t, cc.timeEncoder())
	require.NotNil(t, cc.(*consoleCore).core.core)
	require.True(t, cc.Enabled(zapcore.DebugLevel))
	lvlEnabler.SetLevel(zapcore.ErrorLevel)
	require.False(t, cc.Enabled(zapcore.WarnLevel))

	require.Nil(t, newWriterCore(nil)(
		context.TODO(),
		&lvlEnabler,
		JSON,
		zapcore.CapitalLevelEncoder,
		zapcore.ISO8601TimeEncoder,
	))
}
