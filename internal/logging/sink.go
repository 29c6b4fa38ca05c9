// Package logging builds the zerolog loggers used by the mod and the tools.
//
// Inside the game the mod logs to the platform console straight away, and to
// a file once the data directory is known. Messages logged before that are
// kept and written to the file first.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const (
	TagDefault = "BuildLimitChanger"
	// TagLevi is used when running under the Levi launcher, which collects
	// logcat lines carrying this tag.
	TagLevi = "LeviLogger"

	LogFileName = "log.txt"
)

// Sink is the destination of the mod's logger.
type Sink struct {
	File *Deferred
	tag  atomic.Value
	file io.Closer
}

func NewSink() *Sink {
	s := &Sink{File: &Deferred{}}
	s.tag.Store(TagDefault)
	return s
}

func (s *Sink) SetTag(tag string) {
	s.tag.Store(tag)
}

func (s *Sink) Tag() string {
	return s.tag.Load().(string)
}

// Logger returns a logger writing to the platform console and to the
// deferred file.
func (s *Sink) Logger(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	file := zerolog.ConsoleWriter{
		Out:        s.File,
		NoColor:    true,
		TimeFormat: "15:04:05.000",
	}
	return zerolog.New(zerolog.MultiLevelWriter(s.console(), file)).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// OpenFile appends to dir/log.txt and attaches it as the file destination.
func (s *Sink) OpenFile(dir string) (path string, err error) {
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	path = filepath.Join(dir, LogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	if err = s.File.Attach(f); err != nil {
		f.Close()
		return
	}
	s.file = f
	return
}

// Close detaches and closes the log file, if one was opened. The console
// keeps working and file output is queued again.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	s.File.Detach()
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *Sink) tagMessage(i interface{}) string {
	return fmt.Sprintf("[%s] %v", s.Tag(), i)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
