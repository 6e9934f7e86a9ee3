package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/nao1215/gophermirror/internal/gopher"
	"golang.org/x/net/proxy"
)

// Transport fetches Gopher resources over TCP.
//
// Design decision: We take a proxy.Dialer rather than dialing directly
// because:
//  1. net.Dialer satisfies the interface, so the direct case costs nothing
//  2. A SOCKS5 dialer slots in for mirroring through Tor or a bastion
//  3. Tests inject dialers that point at local stub servers
type Transport struct {
	// dialer establishes TCP connections. Defaults to a plain net.Dialer.
	dialer proxy.Dialer

	// timeout bounds each fetch: dialing plus draining the response.
	timeout time.Duration

	// maxResponseSize caps how many bytes of a response are read.
	// Gopher servers signal end-of-response by closing the connection,
	// so a misbehaving server could otherwise stream forever.
	maxResponseSize int64
}

// Transport errors, classified per failure stage. Use errors.Is to
// distinguish them; the concrete cause is wrapped alongside.
var (
	// ErrAddressResolution is returned when the host cannot be resolved.
	ErrAddressResolution = errors.New("address resolution failed")

	// ErrConnection is returned when the TCP connection cannot be
	// established.
	ErrConnection = errors.New("connection failed")

	// ErrTransport is returned when the connection fails mid-request or
	// mid-response. There is no partial-response recovery; the caller
	// decides whether to skip or abort.
	ErrTransport = errors.New("transport failed")

	// ErrResponseTooLarge is returned when a response exceeds the
	// configured size cap.
	ErrResponseTooLarge = errors.New("response exceeds size limit")
)

// Default transport settings.
const (
	// DefaultTimeout bounds a single fetch. Gopher responses are small
	// relative to the web, but binary items can take a while on slow
	// links.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseSize caps a single response at 32MB. Binary
	// items (type '9') are read until close, so a cap is the only
	// protection against unbounded responses.
	DefaultMaxResponseSize = 32 * 1024 * 1024
)

// Option configures a Transport.
type Option func(*Transport)

// WithDialer sets the dialer used for outbound connections.
// Pass a SOCKS5 dialer from golang.org/x/net/proxy to fetch through a
// proxy.
func WithDialer(d proxy.Dialer) Option {
	return func(t *Transport) {
		t.dialer = d
	}
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(t *Transport) {
		t.timeout = timeout
	}
}

// WithMaxResponseSize sets the response size cap in bytes.
func WithMaxResponseSize(size int64) Option {
	return func(t *Transport) {
		t.maxResponseSize = size
	}
}

// NewTransport creates a Transport with the given options.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		timeout:         DefaultTimeout,
		maxResponseSize: DefaultMaxResponseSize,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.dialer == nil {
		t.dialer = &net.Dialer{Timeout: t.timeout}
	}

	return t
}

// Fetch retrieves one resource: it connects to the locator's host and
// port, writes the selector terminated by CRLF (an empty selector
// requests the root menu), and reads until the server closes the
// connection. The whole response is returned as one buffer.
func (t *Transport) Fetch(ctx context.Context, loc gopher.Locator) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	conn, err := t.dialWithContext(ctx, "tcp", loc.Addr())
	if err != nil {
		return nil, classifyDialError(loc, err)
	}
	defer conn.Close() //nolint:errcheck // Read side already drained

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTransport, loc, err)
		}
	}

	if _, err := conn.Write([]byte(loc.Selector + "\r\n")); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransport, loc, err)
	}

	// Read until the peer closes the stream. A zero-length read is the
	// end of the response, not an error.
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(conn, t.maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransport, loc, err)
	}
	if n > t.maxResponseSize {
		return nil, fmt.Errorf("%w: %s: more than %d bytes", ErrResponseTooLarge, loc, t.maxResponseSize)
	}

	return buf.Bytes(), nil
}

// dialWithContext dials a connection respecting context cancellation.
// proxy.Dialer has no context-aware Dial, so the dial runs in a
// goroutine and loses the race against ctx.Done.
func (t *Transport) dialWithContext(ctx context.Context, network, address string) (net.Conn, error) {
	type dialResult struct {
		conn net.Conn
		err  error
	}

	resultCh := make(chan dialResult, 1)

	go func() {
		conn, err := t.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		// Close the late connection if the dial eventually succeeds.
		go func() {
			if result := <-resultCh; result.conn != nil {
				result.conn.Close() //nolint:errcheck // Abandoned connection
			}
		}()
		return nil, ctx.Err()
	case result := <-resultCh:
		return result.conn, result.err
	}
}

// classifyDialError maps a dial failure onto the transport's error
// taxonomy: DNS failures are resolution errors, everything else is a
// connection error.
func classifyDialError(loc gopher.Locator, err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %s: %v", ErrAddressResolution, loc, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrConnection, loc, err)
}

// NewSOCKS5Dialer creates a SOCKS5 dialer for the given proxy address.
// The returned dialer can be passed to WithDialer to route all fetches
// through the proxy (a local Tor daemon, for example).
func NewSOCKS5Dialer(proxyAddr string) (proxy.Dialer, error) {
	dialer, err := proxy.SOCKS5("tcp", proxyAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", proxyAddr, err)
	}
	return dialer, nil
}
