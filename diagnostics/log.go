// Package diagnostics carries the engine's structured log stream.
//
// The core cannot depend on a CLI task object, so Logs reproduces the
// Info/Debug/Warn/Error surface that teacher's analysis.BaseAnalyzer
// exposes over *clicky.Task, but as a plain accumulating slice that
// ships with every MatchResult stream.
package diagnostics

import "fmt"

// Level mirrors the diagnostic levels named in the error handling design:
// compile errors are fatal, warnings use level 441, runtime diagnostics
// use Warn/Error depending on severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	// LevelWarning441 is the level compile-time warnings are tagged
	// with (unknown field, rewrite-inside-not, etc).
	LevelWarning441 Level = 441
	LevelError      Level = iota
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelWarning441:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Log is a single AnalysisLog entry (spec.md §6 wire form).
type Log struct {
	Level      Level
	Message    string
	Position   string
	File       string
	EngineID   string
	SyntaxTree string
	Range      *Range
	Source     string
}

// Range mirrors the 1-indexed line/column/byte wire shape used across
// MatchResult and AnalysisLog.
type Range struct {
	StartLine, StartColumn, StartByte int
	EndLine, EndColumn, EndByte       int
}

// Logs is an accumulating, ordered diagnostic stream. It is not safe
// for concurrent use by multiple goroutines matching the same file;
// callers fan out one Logs (and one gritstate.State) per file per
// spec.md §5.
type Logs struct {
	File    string
	entries []Log
}

func New(file string) *Logs {
	return &Logs{File: file}
}

func (l *Logs) append(level Level, file string, format string, args ...any) {
	if file == "" {
		file = l.File
	}
	l.entries = append(l.entries, Log{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		File:    file,
	})
}

func (l *Logs) Debug(format string, args ...any) { l.append(LevelDebug, "", format, args...) }
func (l *Logs) Info(format string, args ...any)  { l.append(LevelInfo, "", format, args...) }
func (l *Logs) Warn(format string, args ...any)  { l.append(LevelWarn, "", format, args...) }
func (l *Logs) Error(format string, args ...any) { l.append(LevelError, "", format, args...) }

// Warning441 records a compile-time warning at the spec's fixed
// diagnostic level.
func (l *Logs) Warning441(format string, args ...any) {
	l.append(LevelWarning441, "", format, args...)
}

// Entries returns the accumulated log in emission order.
func (l *Logs) Entries() []Log {
	return l.entries
}
