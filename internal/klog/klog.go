// Package klog is the process-wide leveled logger shared by every loop: a
// single mutex-guarded sink, a minimum level filter, and an optional stderr
// mirror alongside the file sink. Console output is rendered through
// pterm's leveled printers so the terminal experience matches the rest of
// the toolchain's CLI output.
package klog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// Level is a logger verbosity threshold. Lower values are more verbose.
type Level int

const (
	LevelVerbose Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "VERB"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERRO"
	case LevelFatal:
		return "FATA"
	default:
		return "????"
	}
}

// ParseLevel maps a config-file level name to a Level, defaulting to
// LevelInfo for an empty or unrecognized name.
func ParseLevel(name string) Level {
	switch name {
	case "verbose", "verb", "debug":
		return LevelVerbose
	case "warn", "warning":
		return LevelWarn
	case "error", "erro":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Mode is a bitmask selecting which sinks are active and how the file sink
// is opened.
type Mode int

const (
	ModeConsole  Mode = 1 << iota // mirror every line to stderr via pterm
	ModeFile                      // write to the configured file path
	ModeFlush                    // flush the file buffer after every line (no fsync)
	ModeOverride                  // truncate the log file instead of appending
)

// Options configures a Logger.
type Options struct {
	Path  string // file path; empty uses "./knet.log" when ModeFile is set
	Level Level
	Mode  Mode
}

// Logger is a mutex-guarded, leveled, multi-sink writer.
type Logger struct {
	mu    sync.Mutex
	level Level
	mode  Mode
	file  *os.File
	w     *bufio.Writer
}

// New creates a Logger per opts. If ModeFile is set and Path is empty,
// "./knet.log" is used; ModeOverride truncates, otherwise the file is
// opened for append.
func New(opts Options) (*Logger, error) {
	l := &Logger{level: opts.Level, mode: opts.Mode}
	if opts.Mode&ModeFile != 0 {
		path := opts.Path
		if path == "" {
			path = "knet.log"
		}
		flags := os.O_CREATE | os.O_WRONLY
		if opts.Mode&ModeOverride != 0 {
			flags |= os.O_TRUNC
		} else {
			flags |= os.O_APPEND
		}
		f, err := os.OpenFile(path, flags, 0644)
		if err != nil {
			return nil, fmt.Errorf("klog: open %s: %w", path, err)
		}
		l.file = f
		l.w = bufio.NewWriter(f)
	}
	return l, nil
}

// Close flushes and closes the file sink, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w != nil {
		if err := l.w.Flush(); err != nil {
			return err
		}
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Writef writes a single leveled line to every active sink. Below-threshold
// lines are dropped without taking the lock.
func (l *Logger) Writef(level Level, format string, args ...interface{}) error {
	if level < l.level {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	ts := time.Now().Format("02 Jan 2006 15:04:05")

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mode&ModeFile != 0 && l.w != nil {
		if _, err := fmt.Fprintf(l.w, "[%s][%s] %s\n", level, ts, msg); err != nil {
			return fmt.Errorf("klog: write: %w", err)
		}
		if l.mode&ModeFlush != 0 {
			if err := l.w.Flush(); err != nil {
				return fmt.Errorf("klog: flush: %w", err)
			}
		}
	}

	if l.mode&ModeConsole != 0 {
		printerFor(level).Println(msg)
	}
	return nil
}

func printerFor(level Level) pterm.PrefixPrinter {
	switch level {
	case LevelVerbose:
		return pterm.Debug
	case LevelInfo:
		return pterm.Info
	case LevelWarn:
		return pterm.Warning
	case LevelError, LevelFatal:
		return pterm.Error
	default:
		return pterm.Info
	}
}

func (l *Logger) Verbf(format string, args ...interface{}) { l.Writef(LevelVerbose, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.Writef(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.Writef(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.Writef(LevelError, format, args...) }

// ---------------------------------------------------------------------------
// Process-wide singleton.
// ---------------------------------------------------------------------------

var (
	globalMu  sync.RWMutex
	global    *Logger = mustDefault()
)

func mustDefault() *Logger {
	l, _ := New(Options{Level: LevelInfo, Mode: ModeConsole})
	return l
}

// SetGlobal replaces the process-wide logger. Tests substitute a buffer sink
// by constructing a Logger with ModeConsole off and reading the file, or by
// wrapping io.Writer through NewWriter.
func SetGlobal(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// Global returns the process-wide logger.
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// NewWriter builds a Logger backed by an arbitrary io.Writer sink instead of
// a named file — used by tests to capture output without touching disk.
// Every write flushes immediately since callers typically inspect w right
// after calling Infof/Warnf/etc.
func NewWriter(w io.Writer, level Level) *Logger {
	return &Logger{level: level, mode: ModeFile | ModeFlush, w: bufio.NewWriter(w)}
}

func Verbf(format string, args ...interface{})  { Global().Verbf(format, args...) }
func Infof(format string, args ...interface{})  { Global().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { Global().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { Global().Errorf(format, args...) }
