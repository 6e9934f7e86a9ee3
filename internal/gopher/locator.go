package gopher

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the IANA-assigned Gopher port.
const DefaultPort = 70

// Locator addresses a single Gopher resource by host, selector, and port.
// It is an immutable value type with structural equality, so it can be
// used directly as a map key (the crawler's visited set relies on this).
//
// Design decision: We keep the selector as the raw string sent on the
// wire rather than a parsed path because:
//  1. RFC 1436 treats selectors as opaque tokens
//  2. Servers may hand out selectors that are not slash-paths at all
//  3. Path interpretation only matters for local storage, which is the
//     storage package's concern
type Locator struct {
	// Host is the server host name or IP address.
	Host string

	// Selector is the selector string sent to the server.
	// Empty means the server's root menu.
	Selector string

	// Port is the TCP port, typically 70.
	Port int
}

// Errors returned when parsing Gopher URLs.
var (
	// ErrEmptyHost is returned when a URL contains no host component.
	ErrEmptyHost = errors.New("gopher URL has no host")

	// ErrInvalidPort is returned when the port component is not a
	// positive integer.
	ErrInvalidPort = errors.New("gopher URL has an invalid port")

	// ErrUnsupportedScheme is returned for URLs whose scheme is not
	// gopher. Foreign-protocol resources are out of scope.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

// NewLocator creates a Locator, applying the default port when port is
// zero or negative.
func NewLocator(host, selector string, port int) Locator {
	if port <= 0 {
		port = DefaultPort
	}
	return Locator{Host: host, Selector: selector, Port: port}
}

// String renders the locator as a gopher URL for logging and reports.
func (l Locator) String() string {
	sel := l.Selector
	if !strings.HasPrefix(sel, "/") {
		sel = "/" + sel
	}
	return fmt.Sprintf("gopher://%s:%d%s", l.Host, l.Port, sel)
}

// Addr returns the host:port dial address for the locator.
func (l Locator) Addr() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(l.Port))
}

// ParseURL parses a gopher URL or a bare host[:port][/selector] string
// into a Locator. Per RFC 4266 the first character of the URL path is an
// item-type hint, not part of the selector; when present it is stripped.
// The returned ItemType is the hint, or 0 when the URL carried none.
func ParseURL(raw string) (Locator, ItemType, error) {
	s := strings.TrimSpace(raw)

	// Reject foreign schemes early; accept scheme-less input.
	if idx := strings.Index(s, "://"); idx != -1 {
		scheme := strings.ToLower(s[:idx])
		if scheme != "gopher" {
			return Locator{}, 0, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
		}
		s = s[idx+len("://"):]
	}

	// Split authority from path.
	var authority, path string
	if idx := strings.Index(s, "/"); idx != -1 {
		authority, path = s[:idx], s[idx:]
	} else {
		authority = s
	}

	host, port, err := splitHostPort(authority)
	if err != nil {
		return Locator{}, 0, err
	}
	if host == "" {
		return Locator{}, 0, ErrEmptyHost
	}

	// "/" alone is the root menu. "/1/foo" carries the type hint '1'
	// and the selector "/foo".
	var hint ItemType
	selector := ""
	if len(path) > 1 {
		rest := path[1:]
		if len(rest) == 1 || (len(rest) > 1 && rest[1] == '/') {
			hint = ItemType(rest[0])
			selector = rest[1:]
		} else {
			selector = path
		}
	}

	return NewLocator(host, selector, port), hint, nil
}

// splitHostPort splits "host[:port]", defaulting the port to 70.
// IPv6 literals in brackets are supported.
func splitHostPort(authority string) (string, int, error) {
	if authority == "" {
		return "", 0, ErrEmptyHost
	}

	host, portStr, err := net.SplitHostPort(authority)
	if err != nil {
		// No port component; the whole authority is the host.
		return strings.Trim(authority, "[]"), DefaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidPort, portStr)
	}
	return host, port, nil
}
