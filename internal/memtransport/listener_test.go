package memtransport_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/platform-connector-go/internal/memtransport"
)

var _ net.Listener = (*memtransport.Listener)(nil)

func TestAddr(t *testing.T) {
	ln := memtransport.New()
	defer ln.Close()

	assert.Equal(t, "mem", ln.Addr().Network())
	assert.Equal(t, "mem://connector", ln.Addr().String())
}

func TestServe_RoundTrip(t *testing.T) {
	ln, stop := memtransport.Serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Path", r.URL.Path)
		fmt.Fprintf(w, "echo:%s", body)
	}))
	defer stop()

	resp, err := ln.HTTPClient().Post(memtransport.BaseURL+"/connector", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/connector", resp.Header.Get("X-Path"))
	assert.Equal(t, "echo:hello", string(body))
}

func TestServe_ConcurrentRequests(t *testing.T) {
	ln, stop := memtransport.Serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.URL.Query().Get("n"))
	}))
	defer stop()

	client := ln.HTTPClient()
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			resp, err := client.Get(fmt.Sprintf("%s/?n=%d", memtransport.BaseURL, n))
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if string(body) != fmt.Sprint(n) {
				errs <- fmt.Errorf("request %d answered %q", n, body)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestClose(t *testing.T) {
	ln := memtransport.New()
	require.NoError(t, ln.Close())
	require.NoError(t, ln.Close())

	_, err := ln.Accept()
	assert.ErrorIs(t, err, memtransport.ErrClosed)

	_, err = ln.DialContext(context.Background(), "tcp", "connector.mem:80")
	assert.ErrorIs(t, err, memtransport.ErrClosed)
}

func TestDialContext_PipesToAccept(t *testing.T) {
	ln := memtransport.New()
	defer ln.Close()

	client, err := ln.DialContext(context.Background(), "tcp", "connector.mem:80")
	require.NoError(t, err)
	defer client.Close()

	server, err := ln.Accept()
	require.NoError(t, err)
	defer server.Close()

	go func() { _, _ = client.Write([]byte("ping")) }()

	buf := make([]byte, 4)
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}
