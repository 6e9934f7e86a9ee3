// Package protocol implements the Gopher transport: it dials a server,
// sends a selector request, and drains the response until the server
// closes the connection. The protocol has no length framing and no
// response status; connection close is the only end-of-response signal.
package protocol
