package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sys/unix"
)

// LogFiles hands out writers for log files. Paths which refer to the same file, by device and inode, share a
// single writer so that interleaved traces end up in one ordered stream.
type LogFiles struct {
	mu    sync.Mutex
	files map[fileKey]*logFile

	// Open creates or truncates the file at path
	Open func(path string) (*os.File, error)
}

type fileKey struct {
	dev uint64
	ino uint64
}

// NewLogFiles creates an empty cache which opens files with os.Create.
func NewLogFiles() *LogFiles {
	return &LogFiles{
		files: make(map[fileKey]*logFile),
		Open:  os.Create,
	}
}

// DefaultLogFiles is the process wide log file cache.
var DefaultLogFiles = NewLogFiles()

// Get returns the writer for path. Files ending in ".zst" are zstd compressed.
func (l *LogFiles) Get(path string) (io.Writer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var st unix.Stat_t
	if err := unix.Stat(path, &st); err == nil {
		if f, ok := l.files[statKey(&st)]; ok {
			return f, nil
		}
	}

	f, err := l.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		f.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	key := statKey(&st)

	lf := &logFile{f: f, buf: bufio.NewWriter(f)}
	lf.w = lf.buf
	if strings.HasSuffix(path, ".zst") {
		lf.enc, err = zstd.NewWriter(lf.buf)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		lf.w = lf.enc
	}

	l.files[key] = lf
	return lf, nil
}

// CloseAll flushes and closes all files and empties the cache.
func (l *LogFiles) CloseAll() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for key, f := range l.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(l.files, key)
	}

	return errors.Join(errs...)
}

func statKey(st *unix.Stat_t) fileKey {
	return fileKey{dev: uint64(st.Dev), ino: uint64(st.Ino)}
}

type logFile struct {
	f   *os.File
	buf *bufio.Writer
	enc *zstd.Encoder
	w   io.Writer
}

func (f *logFile) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f *logFile) Close() error {
	var errs []error
	if f.enc != nil {
		errs = append(errs, f.enc.Close())
	}
	errs = append(errs, f.buf.Flush(), f.f.Close())

	return errors.Join(errs...)
}
