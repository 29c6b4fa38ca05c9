//go:build android && cgo

package logging

/*
#cgo LDFLAGS: -llog
#include <android/log.h>
#include <stdlib.h>
*/
import "C"

import (
	"bytes"
	"strings"
	"unsafe"

	"github.com/rs/zerolog"
)

// logcat forwards events to the Android log with a matching priority.
type logcat struct {
	sink *Sink
}

func (s *Sink) console() zerolog.LevelWriter {
	return logcat{sink: s}
}

func (l logcat) Write(p []byte) (int, error) {
	return l.WriteLevel(zerolog.NoLevel, p)
}

func (l logcat) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	var buf bytes.Buffer
	cw := zerolog.ConsoleWriter{
		Out:          &buf,
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName, zerolog.LevelFieldName},
	}
	if _, err := cw.Write(p); err != nil {
		return 0, err
	}

	tag := C.CString(l.sink.Tag())
	defer C.free(unsafe.Pointer(tag))
	msg := C.CString(strings.TrimSpace(buf.String()))
	defer C.free(unsafe.Pointer(msg))
	C.__android_log_write(C.int(priority(level)), tag, msg)
	return len(p), nil
}

func priority(level zerolog.Level) int {
	switch level {
	case zerolog.TraceLevel:
		return int(C.ANDROID_LOG_VERBOSE)
	case zerolog.DebugLevel:
		return int(C.ANDROID_LOG_DEBUG)
	case zerolog.WarnLevel:
		return int(C.ANDROID_LOG_WARN)
	case zerolog.ErrorLevel:
		return int(C.ANDROID_LOG_ERROR)
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return int(C.ANDROID_LOG_FATAL)
	}
	return int(C.ANDROID_LOG_INFO)
}
