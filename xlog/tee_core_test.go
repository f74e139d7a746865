package xlog

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestMultiCores_DataRace(t *testing.T) {
	tee := make(xLogMultiCore, 0, 2)
	require.Nil(t, tee.context())
	require.Nil(t, tee.writeSyncer())
	require.Nil(t, tee.levelEncoder())
	require.Nil(t, tee.timeEncoder())
	require.Nil(t, tee.outEncoder())

	debugLvl := zap.NewAtomicLevelAt(LogLevelDebug.zapLevel())
	warnLvl := zap.NewAtomicLevelAt(LogLevelWarn.zapLevel())
	w1, w2 := &testMemOutWriter{}, &testMemOutWriter{}
	ctx, cancel := context.WithCancel(context.TODO())
	defer cancel()
	tee = append(tee,
		newWriterCore(zapcore.Lock(zapcore.AddSync(w1)))(ctx, &debugLvl, JSON, zapcore.CapitalLevelEncoder, zapcore.ISO8601TimeEncoder),
		newWriterCore(zapcore.Lock(zapcore.AddSync(w2)))(ctx, &warnLvl, JSON, zapcore.CapitalLevelEncoder, zapcore.ISO8601TimeEncoder),
	)
	require.Equal(t, zapcore.DebugLevel, tee.Level())
	require.True(t, tee.Enabled(zapcore.DebugLevel))

	tee2, err := WrapCores(tee, componentCoreEncoderCfg())
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			ce := tee.Check(zapcore.Entry{Level: zapcore.InfoLevel, Message: "tee"}, nil)
			ce.Write(zap.String("i", strconv.Itoa(i)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			ce := tee2.Check(zapcore.Entry{Level: zapcore.ErrorLevel, Message: "tee2"}, nil)
			ce.Write(zap.String("i", strconv.Itoa(i)))
		}
	}()
	wg.Wait()
	require.NoError(t, tee.Sync())
	require.NoError(t, tee2.Sync())

	// The info entries are dropped by the warn core.
	require.Len(t, w1.lines(t), 200)
	require.Len(t, w2.lines(t), 100)

	with := tee.With([]zap.Field{zap.String("trial", "1")})
	require.NoError(t, with.Write(zapcore.Entry{Level: zapcore.ErrorLevel, Message: "with"}, nil))
	lines := w2.lines(t)
	require.Equal(t, "1", lines[len(lines)-1]["trial"])
}
