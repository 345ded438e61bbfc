package bolt

import (
	"errors"
	"io"
	"log/slog"
)

// ErrNoPlugin is returned by ServePlugin when called with a nil plugin.
var ErrNoPlugin = errors.New("bolt: plugin is required")

// CloseWithLog closes closer, logging any failure at warning level under
// name. Nil closers are ignored and a nil logger means slog.Default().
//
//	defer bolt.CloseWithLog(client, logger, "queue client")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}
	err := closer.Close()
	if err == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("close failed", "resource", name, "error", err)
}
