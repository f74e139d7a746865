package xlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/safearchive/zip"
	"github.com/google/safeopen"

	"github.com/benz9527/xrbtree/lib/infra"
)

type fileSizeUnit uint64

const (
	B fileSizeUnit = 1 << (10 * iota)
	KB
	MB
	GB
	_maxSize = 4 * GB
)

const (
	backupTimeFormat = "20060102T150405.000000000"
	zipTmpSuffix     = ".tmp"
)

var fileSizeRegexp = regexp.MustCompile(`^(\d+)([kKmMgG]?[bB])$`)

// ParseFileSize parses sizes like "512KB" or "64mb", capped at 4GB.
func ParseFileSize(size string) (uint64, error) {
	res := fileSizeRegexp.FindStringSubmatch(strings.TrimSpace(size))
	if len(res) != 3 {
		return 0, infra.NewErrorStack("invalid file size <" + size + ">")
	}
	unit := B
	switch strings.ToUpper(res[2]) {
	case "KB":
		unit = KB
	case "MB":
		unit = MB
	case "GB":
		unit = GB
	default:
	}
	n, err := strconv.ParseUint(res[1], 10, 64)
	if err != nil || n == 0 {
		return 0, infra.NewErrorStack("invalid file size <" + size + ">")
	}
	if n > uint64(_maxSize/unit) {
		return uint64(_maxSize), nil
	}
	return n * uint64(unit), nil
}

var _ io.WriteCloser = (*rotatingLog)(nil)

// rotatingLog renames the current file into a timestamped backup once
// it reaches maxSize. The backups beyond maxBackups are removed, or
// moved into a single zip if zipName is set.
// The writes are not thread-safe, the file core locks them.
type rotatingLog struct {
	filePath    string
	filename    string
	zipName     string
	maxSize     uint64
	maxBackups  int
	wroteSize   uint64
	seq         uint64
	mkdirOnce   sync.Once
	pruneLock   sync.Mutex
	currentFile atomic.Pointer[os.File]
	watcher     *fsnotify.Watcher
	closeC      <-chan struct{}
}

func (log *rotatingLog) Write(p []byte) (n int, err error) {
	select {
	case <-log.closeC:
		return 0, io.EOF
	default:
	}

	if log.currentFile.Load() == nil {
		if err = log.open(); err != nil {
			return 0, err
		}
	}
	n, err = log.currentFile.Load().Write(p)
	log.wroteSize += uint64(n)
	if err != nil || log.wroteSize < log.maxSize {
		return n, err
	}
	if err = log.rotate(); err != nil {
		return n, err
	}
	if log.watcher == nil {
		err = log.prune()
	}
	return n, err
}

func (log *rotatingLog) Close() error {
	f := log.currentFile.Swap(nil)
	if f == nil {
		return nil
	}
	return f.Close()
}

func (log *rotatingLog) mkdir() error {
	var err error
	log.mkdirOnce.Do(func() {
		if log.filePath == "" {
			log.filePath = os.TempDir()
		}
		err = os.MkdirAll(log.filePath, 0o755)
	})
	return infra.WrapErrorStack(err)
}

func (log *rotatingLog) open() error {
	if err := log.mkdir(); err != nil {
		return err
	}
	f, err := safeopen.OpenFileBeneath(log.filePath, log.filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "unable to open log file: "+filepath.Join(log.filePath, log.filename))
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

func (log *rotatingLog) backupName() string {
	ext := filepath.Ext(log.filename)
	log.seq++
	return fmt.Sprintf("%s_%s_%04d%s",
		strings.TrimSuffix(log.filename, ext),
		time.Now().UTC().Format(backupTimeFormat),
		log.seq%10000,
		ext,
	)
}

func (log *rotatingLog) isBackup(name string) bool {
	ext := filepath.Ext(log.filename)
	prefix := strings.TrimSuffix(log.filename, ext) + "_"
	return name != log.filename && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ext)
}

func (log *rotatingLog) rotate() error {
	if err := log.Close(); err != nil {
		return infra.WrapErrorStackWithMessage(err, "close log file before rotation")
	}
	if err := os.Rename(
		filepath.Join(log.filePath, log.filename),
		filepath.Join(log.filePath, log.backupName()),
	); err != nil {
		return infra.WrapErrorStackWithMessage(err, "rotate log file")
	}
	return log.open()
}

// backups are sorted from the oldest one, the names carry fixed width
// timestamps.
func (log *rotatingLog) backups() ([]string, error) {
	entries, err := os.ReadDir(log.filePath)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && log.isBackup(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (log *rotatingLog) prune() error {
	log.pruneLock.Lock()
	defer log.pruneLock.Unlock()

	names, err := log.backups()
	if err != nil || len(names) <= log.maxBackups {
		return err
	}
	redundant := names[:len(names)-log.maxBackups]
	if len(log.zipName) > 0 {
		if err = archiveLogs(log.filePath, log.zipName, redundant); err != nil {
			return err
		}
	}
	var merr error
	for _, name := range redundant {
		if err := os.Remove(filepath.Join(log.filePath, name)); err != nil && !os.IsNotExist(err) {
			merr = infra.AppendErrorStack(merr, err)
		}
	}
	return merr
}

// watch prunes the backups whenever a new one appears in the log dir.
func (log *rotatingLog) watch() {
	defer func() {
		_ = log.watcher.Close()
		_ = log.Close()
	}()
	for {
		select {
		case <-log.closeC:
			return
		case event, ok := <-log.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && log.isBackup(filepath.Base(event.Name)) {
				handleRotatingError(log.prune())
			}
		case err, ok := <-log.watcher.Errors:
			if !ok {
				return
			}
			handleRotatingError(err)
		}
	}
}

func handleRotatingError(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "[XLogger] rotating log file occurs error: %s\n", err)
	}
}

// archiveLogs appends the logs into the zip beneath dir. The previous
// entries are copied into a temporary zip which then replaces the old one.
func archiveLogs(dir, zipName string, names []string) (err error) {
	tmpName := zipName + zipTmpSuffix
	out, err := safeopen.OpenFileBeneath(dir, tmpName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "create log archive")
	}
	zw := zip.NewWriter(out)
	defer func() {
		err = infra.AppendErrorStack(err, zw.Close(), out.Close())
		if err == nil {
			err = infra.WrapErrorStack(os.Rename(filepath.Join(dir, tmpName), filepath.Join(dir, zipName)))
		} else {
			_ = os.Remove(filepath.Join(dir, tmpName))
		}
	}()

	if prev, err := zip.OpenReader(filepath.Join(dir, zipName)); err == nil {
		prev.SetSecurityMode(prev.GetSecurityMode() | zip.MaximumSecurityMode)
		copyErr := copyZipEntries(zw, prev.File)
		_ = prev.Close()
		if copyErr != nil {
			return copyErr
		}
	} else if !os.IsNotExist(err) {
		return infra.WrapErrorStackWithMessage(err, "open previous log archive")
	}

	for _, name := range names {
		if err := addZipEntry(zw, dir, name); err != nil {
			return err
		}
	}
	return nil
}

func copyZipEntries(zw *zip.Writer, files []*zip.File) error {
	for _, f := range files {
		if f.Mode().IsDir() {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return infra.WrapErrorStackWithMessage(err, "read log archive entry "+f.Name)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: f.Method})
		if err == nil {
			_, err = io.Copy(w, r)
		}
		_ = r.Close()
		if err != nil {
			return infra.WrapErrorStackWithMessage(err, "copy log archive entry "+f.Name)
		}
	}
	return nil
}

func addZipEntry(zw *zip.Writer, dir, name string) error {
	f, err := safeopen.OpenBeneath(dir, name)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "open log backup "+name)
	}
	defer func() {
		_ = f.Close()
	}()
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err == nil {
		_, err = io.Copy(w, f)
	}
	return infra.WrapErrorStack(err)
}

// RotatingLog returns nil if the file size is invalid. The backups are
// pruned by a dir watcher, or after each rotation if the watcher is
// unavailable.
func RotatingLog(cfg *FileCoreConfig, closeC chan struct{}) io.WriteCloser {
	if cfg == nil || closeC == nil {
		return nil
	}
	size, err := ParseFileSize(cfg.FileMaxSize)
	if err != nil {
		handleRotatingError(err)
		return nil
	}
	log := &rotatingLog{
		filePath:   cfg.FilePath,
		filename:   cfg.Filename,
		maxSize:    size,
		maxBackups: max(cfg.FileMaxBackups, 0),
		closeC:     closeC,
	}
	if cfg.FileCompressible {
		log.zipName = strings.TrimSuffix(cfg.Filename, filepath.Ext(cfg.Filename)) + ".zip"
	}
	if err = log.mkdir(); err != nil {
		handleRotatingError(err)
		return nil
	}
	if watcher, err := fsnotify.NewWatcher(); err != nil {
		handleRotatingError(err)
	} else if err = watcher.Add(log.filePath); err != nil {
		handleRotatingError(err)
		_ = watcher.Close()
	} else {
		log.watcher = watcher
	}
	if log.watcher != nil {
		go log.watch()
	} else {
		go func() {
			<-closeC
			_ = log.Close()
		}()
	}
	return log
}
