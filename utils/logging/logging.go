package logging

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

type LogCode string

const (
	// SYSTEM EVENTS (SYSTEM*)
	SYSTEM         LogCode = "SYSTEM"
	SYSTEM_STARTUP LogCode = "SYSTEM_STARTUP"
	SYSTEM_MIGRATE LogCode = "SYSTEM_MIGRATE"

	// AUTH EVENTS (AUTH*)
	AUTH_LOGIN LogCode = "AUTH_LOGIN"
	AUTH_USERS LogCode = "AUTH_USERS"

	// CATALOG OPERATIONS (CATALOG*)
	CATALOG_PRODUCT   LogCode = "CATALOG_PRODUCT"
	CATALOG_OPTIONS   LogCode = "CATALOG_OPTIONS"
	CATALOG_DOCUMENTS LogCode = "CATALOG_DOCUMENTS"
	CATALOG_SEED      LogCode = "CATALOG_SEED"
)

// VictoriaLogs has fixed field name for time (_time) and message(_msg). This function maps fields msg -> _msg and time -> _time.
func convertKeysToVictoriaLogs(keys []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{Key: "_time", Value: slog.StringValue(a.Value.Time().Format("2006-01-02 15:04:05"))}
	}
	if a.Key == slog.MessageKey {
		return slog.Attr{Key: "_msg", Value: a.Value}
	}
	return a
}

func GetVictoriaLogsOptions(addSource bool) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: convertKeysToVictoriaLogs,
		AddSource:   addSource,
	}
}

type Options struct {
	Service string
	// Use the _msg/_time key names expected by VictoriaLogs in the json output.
	VictoriaLogs bool
	AddSource    bool
}

func NewLogger(jsonOut, textOut io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: slog.LevelInfo, AddSource: opts.AddSource}
	if opts.VictoriaLogs {
		handlerOpts = GetVictoriaLogsOptions(opts.AddSource)
	}

	var jsonHandler slog.Handler = slog.NewJSONHandler(jsonOut, handlerOpts)

	// these fields will be used for filtering logs
	jsonHandler = jsonHandler.WithAttrs([]slog.Attr{
		slog.String("service", opts.Service),
	})
	textHandler := slog.NewTextHandler(textOut, nil)

	return slog.New(slogmulti.Fanout(jsonHandler, textHandler))
}

func Init(logFile *os.File, opts Options) {
	slog.SetDefault(NewLogger(logFile, os.Stderr, opts))
	slog.Info("logging initialized", "log_file", logFile.Name(), "code", SYSTEM)
}
