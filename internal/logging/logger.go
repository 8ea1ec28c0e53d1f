// Package logging はzerologの初期化とリクエストログ用のミドルウェアを持つ。
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// levelが不正ならinfo
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// devは人が読みやすいconsole出力、それ以外はJSON
func New(w io.Writer, level string, dev bool) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if dev {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("app", "storefront").
		Logger()
}
