package logging

import (
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mdobak/go-xerrors"
)

// NewLogger returns a text logger writing to w. Errors created with xerrors carry
// their stack trace into the record as an extra "trace" attribute.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	}))
}

// Err wraps err with a stack trace at the call site, for use as a log attribute
func Err(err error) slog.Attr {
	return slog.Any("error", xerrors.New(err))
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}
	err, ok := a.Value.Any().(error)
	if !ok {
		return a
	}

	trace := formatStack(err)
	if trace == "" {
		return slog.String(a.Key, err.Error())
	}
	return slog.Group(a.Key,
		slog.String("msg", err.Error()),
		slog.String("trace", trace),
	)
}

// formatStack renders the innermost xerrors stack as "pkg/file.go:line func" frames
func formatStack(err error) string {
	st := xerrors.StackTrace(err)
	if len(st) == 0 {
		return ""
	}
	frames := st.Frames()
	parts := make([]string, 0, len(frames))
	for _, f := range frames {
		source := filepath.Join(filepath.Base(filepath.Dir(f.File)), filepath.Base(f.File))
		parts = append(parts, source+":"+strconv.Itoa(f.Line)+" "+filepath.Base(f.Function))
	}
	return strings.Join(parts, " < ")
}
