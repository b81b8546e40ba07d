// Package port checks the sidecar's loopback port before launch.
package port

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
)

// Available reports whether port can be bound on 127.0.0.1.
func Available(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// Preflight warns when the sidecar port is already taken. A foreign listener
// there would answer the readiness probe on the sidecar's behalf.
func Preflight(port int, logger *slog.Logger) bool {
	if Available(port) {
		return true
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("backend port already in use; readiness may reflect another process", "port", port)
	return false
}

// Ephemeral returns a loopback port that was free at the time of the call.
func Ephemeral() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("listening on ephemeral port: %w", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
