package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// maxResponse bounds how much of a response is buffered; only the status line matters.
const maxResponse = 64 << 10

// Client issues the fixed health request over a raw TCP connection.
type Client struct {
	addr        string
	request     []byte
	dialTimeout time.Duration
	ioTimeout   time.Duration
}

// NewClient builds a client for 127.0.0.1:<cfg.Port><cfg.Path>.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		addr:        net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Port)),
		request:     []byte("GET " + cfg.Path + " HTTP/1.1\r\nHost: 127.0.0.1\r\nConnection: close\r\n\r\n"),
		dialTimeout: cfg.DialTimeout,
		ioTimeout:   cfg.IOTimeout,
	}
}

// ValidPath reports whether p can be sent as the request target: it must be
// absolute and free of spaces and control characters.
func ValidPath(p string) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("path %q must start with /", p)
	}
	for _, r := range p {
		if r <= ' ' || r == 0x7f {
			return fmt.Errorf("path %q contains a space or control character", p)
		}
	}
	return nil
}

// Addr returns the probed address.
func (c *Client) Addr() string {
	return c.addr
}

// Check reports whether one probe attempt observed a 200 response.
func (c *Client) Check(ctx context.Context) bool {
	line, err := c.StatusLine(ctx)
	return err == nil && IsSuccess(line)
}

// StatusLine sends the request and returns the first line of the response.
func (c *Client) StatusLine(ctx context.Context) (string, error) {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return "", fmt.Errorf("tcp connect failed: %w", err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.ioTimeout)); err != nil {
		return "", fmt.Errorf("setting write deadline: %w", err)
	}
	if _, err := conn.Write(c.request); err != nil {
		return "", fmt.Errorf("writing request: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.ioTimeout)); err != nil {
		return "", fmt.Errorf("setting read deadline: %w", err)
	}
	// The server must close the connection within the deadline; a status
	// line followed by a timeout is not ready.
	data, err := io.ReadAll(io.LimitReader(conn, maxResponse))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	line := firstLine(string(data))
	if line == "" {
		return "", errors.New("empty response")
	}
	return line, nil
}

// IsSuccess reports whether the response's first line is an HTTP/1.x 200 status.
func IsSuccess(response string) bool {
	line := firstLine(response)
	return strings.HasPrefix(line, "HTTP/1.1 200") || strings.HasPrefix(line, "HTTP/1.0 200")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, "\r")
}
