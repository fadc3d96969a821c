package middleware

import (
	"io"
	"log/slog"
)

func testNopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
