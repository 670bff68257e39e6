package server_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/simpletcp/responder/config"
	"github.com/simpletcp/responder/server"
)

func startWeb(t *testing.T, port int, content string) (*server.WebServer, chan error, context.CancelFunc) {
	t.Helper()

	s, err := server.NewWebServer(config.ServerSpec{
		Kind:        config.KindWeb,
		Port:        port,
		BindAddress: "127.0.0.1",
		Content:     content,
	}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start(ctx)
	}()

	waitListening(t, fmt.Sprintf("127.0.0.1:%d", port))
	return s, errCh, cancel
}

func get(t *testing.T, port int, path string) *http.Response {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s", port, path))
	require.NoError(t, err)
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestWebServerServesContent(t *testing.T) {
	t.Parallel()

	const content = "Hello, World!"

	port := freePorts(t, 1)[0]
	_, _, cancel := startWeb(t, port, content)
	defer cancel()

	resp := get(t, port, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, "SimpleTCPResponder", resp.Header.Get("Server"))
	assert.Equal(t, strconv.Itoa(port), resp.Header.Get("X-Served-Port"))
	assert.Equal(t, content, body(t, resp))
}

func TestWebServerSameContentForEveryRequest(t *testing.T) {
	t.Parallel()

	const content = "diagnostic response"

	port := freePorts(t, 1)[0]
	_, _, cancel := startWeb(t, port, content)
	defer cancel()

	paths := []string{"/", "/index.html", "/some/deep/path", "/q?x=1&y=2"}
	for _, path := range paths {
		resp := get(t, port, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, content, body(t, resp), path)
	}

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req, err := http.NewRequest(method, fmt.Sprintf("http://127.0.0.1:%d/anything", port), strings.NewReader("ignored"))
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, method)
		assert.Equal(t, content, body(t, resp), method)
	}
}

func TestWebServerContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"doctype", "<!DOCTYPE html><html></html>", "text/html"},
		{"html tag", "<html><body>hi</body></html>", "text/html"},
		{"leading whitespace", "\n  <!DOCTYPE html><html></html>", "text/html"},
		{"plain text", "plain text", "text/plain"},
		{"lowercase doctype is not html", "<!doctype html>", "text/plain"},
		{"other markup", "<xml></xml>", "text/plain"},
	}

	ports := freePorts(t, len(tests))
	for i, tt := range tests {
		tt := tt
		port := ports[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, cancel := startWeb(t, port, tt.content)
			defer cancel()

			resp := get(t, port, "/")
			assert.Equal(t, tt.want, resp.Header.Get("Content-Type"))
			assert.Equal(t, tt.content, body(t, resp))
		})
	}
}

func TestWebServerConcurrentRequests(t *testing.T) {
	t.Parallel()

	const content = "busy"

	port := freePorts(t, 1)[0]
	_, _, cancel := startWeb(t, port, content)
	defer cancel()

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if string(data) != content {
				return fmt.Errorf("got body %q, want %q", data, content)
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
}

func TestWebServerStop(t *testing.T) {
	t.Parallel()

	port := freePorts(t, 1)[0]
	s, errCh, cancel := startWeb(t, port, "bye")
	defer cancel()

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, <-errCh)
	assert.False(t, s.Running())

	_, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 500*time.Millisecond)
	assert.Error(t, err)

	require.NoError(t, s.Stop(context.Background()))
}

func TestWebServerBindError(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	port := lis.Addr().(*net.TCPAddr).Port

	s, err := server.NewWebServer(config.ServerSpec{
		Kind:        config.KindWeb,
		Port:        port,
		BindAddress: "127.0.0.1",
		Content:     "x",
	}, testLogger())
	require.NoError(t, err)

	err = s.Start(context.Background())
	var bindErr *server.BindError
	require.ErrorAs(t, err, &bindErr)
	assert.False(t, s.Running())
}
