//go:build !android || !cgo

package logging

import (
	"os"

	"github.com/rs/zerolog"
)

func (s *Sink) console() zerolog.LevelWriter {
	return zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{
		Out:           os.Stdout,
		NoColor:       !isTerminal(os.Stdout),
		TimeFormat:    "15:04:05.000",
		FormatMessage: s.tagMessage,
	}}
}
