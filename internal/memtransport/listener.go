// Package memtransport is an in-memory net.Listener and HTTP client built on
// net.Pipe. Tests use it to run a connector server and its host client in one
// process without opening sockets.
//
//	ln, stop := memtransport.Serve(mux)
//	defer stop()
//	client, _ := connectorrpc.NewClient(connectorrpc.ClientConfig{
//		Endpoint:   memtransport.BaseURL,
//		HTTPClient: ln.HTTPClient(),
//	})
package memtransport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
)

// BaseURL is the endpoint clients of a Listener dial. The host part is
// ignored.
const BaseURL = "http://connector.mem"

// ErrClosed is returned by Accept and DialContext after Close.
var ErrClosed = errors.New("memtransport: listener closed")

// Listener hands the server end of each dialed pipe to Accept.
type Listener struct {
	conns  chan net.Conn
	once   sync.Once
	closed chan struct{}
}

// New creates an open listener.
func New() *Listener {
	return &Listener{
		conns:  make(chan net.Conn, 16),
		closed: make(chan struct{}),
	}
}

// Accept blocks until a client dials or the listener closes.
func (l *Listener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.closed:
		return nil, ErrClosed
	}
}

// Close stops the listener. It is safe to call more than once.
func (l *Listener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

// Addr returns a placeholder address.
func (l *Listener) Addr() net.Addr { return addr{} }

// DialContext opens a pipe to the listener. Its signature matches
// http.Transport.DialContext.
func (l *Listener) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	select {
	case <-l.closed:
		return nil, ErrClosed
	default:
	}

	server, client := net.Pipe()
	select {
	case l.conns <- server:
		return client, nil
	case <-l.closed:
		server.Close()
		client.Close()
		return nil, ErrClosed
	case <-ctx.Done():
		server.Close()
		client.Close()
		return nil, ctx.Err()
	}
}

// HTTPClient returns an HTTP/1.1 client that dials through l.
func (l *Listener) HTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{DialContext: l.DialContext},
	}
}

// Serve runs handler on a new listener. The returned func stops the server
// and closes the listener.
func Serve(handler http.Handler) (*Listener, func()) {
	ln := New()
	srv := &http.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()

	return ln, func() {
		_ = srv.Shutdown(context.Background())
		_ = ln.Close()
	}
}

type addr struct{}

func (addr) Network() string { return "mem" }
func (addr) String() string  { return "mem://connector" }
