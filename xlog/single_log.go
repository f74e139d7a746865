package xlog

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/safeopen"

	"github.com/benz9527/xrbtree/lib/infra"
)

var _ io.WriteCloser = (*singleLog)(nil)

// singleLog appends into one file without rotation.
// It is not thread-safe, the file core locks it.
type singleLog struct {
	filePath    string
	filename    string
	wroteSize   uint64
	mkdirOnce   sync.Once
	currentFile atomic.Pointer[os.File]
	closeC      <-chan struct{}
}

func (log *singleLog) Write(p []byte) (n int, err error) {
	select {
	case <-log.closeC:
		return 0, io.EOF
	default:
	}

	if log.currentFile.Load() == nil {
		if err := log.openOrCreate(); err != nil {
			return 0, err
		}
	}
	n, err = log.currentFile.Load().Write(p)
	log.wroteSize += uint64(n)
	return
}

func (log *singleLog) Close() error {
	f := log.currentFile.Swap(nil)
	if f == nil {
		return nil
	}
	return f.Close()
}

// The file is opened beneath the log dir, a filename escaping it
// by a symlink or a relative path is rejected.
func (log *singleLog) openOrCreate() error {
	if err := log.mkdir(); err != nil {
		return err
	}

	pathToLog := filepath.Join(log.filePath, log.filename)
	f, err := safeopen.OpenFileBeneath(log.filePath, log.filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "unable to open log file: "+pathToLog)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return infra.WrapErrorStack(err)
	}
	log.currentFile.Store(f)
	log.wroteSize = uint64(info.Size())
	return nil
}

func (log *singleLog) mkdir() error {
	var err error = nil
	log.mkdirOnce.Do(func() {
		if log.filePath == "" {
			log.filePath = os.TempDir()
		}
		if log.filePath == os.TempDir() {
			return
		}
		err = os.MkdirAll(log.filePath, 0o755)
	})
	return infra.WrapErrorStack(err)
}

func (log *singleLog) initialize() {
	go func() {
		<-log.closeC
		_ = log.Close()
	}()
}

func SingleLog(cfg *FileCoreConfig, closeC chan struct{}) io.WriteCloser {
	if cfg == nil || closeC == nil {
		return nil
	}
	log := &singleLog{
		closeC:   closeC,
		filePath: cfg.FilePath,
		filename: cfg.Filename,
	}
	log.initialize()
	return log
}
