// Package e2etest starts the real binaries' run functions in-process and talks to them over HTTP.
package e2etest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/logging"
)

// LogAddrKey is the log attribute the server uses to announce its listening address.
const LogAddrKey = "addr"

// RunFunc has the signature of the run function of cmd/web.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

type Server struct {
	url        string
	client     *Client
	cancel     context.CancelCauseFunc
	serverDone chan struct{}
}

// StartServer runs run in the background and returns once /api/healthy answers. The server is shut down when the
// test ends.
//
// logSink receives the server logs, usually a testhelpers.NewWriter. run must log the listening address under
// [LogAddrKey]; use "localhost:0" as address so that parallel tests don't collide.
func StartServer(t *testing.T, logSink io.Writer, lookupEnv func(string) (string, bool), run RunFunc) (*Server, error) {
	var server *Server
	t.Cleanup(func() {
		if server != nil {
			server.Shutdown()
		}
	})
	ctx, cancel := context.WithCancelCause(t.Context())
	serverDone := make(chan struct{})

	addrCh := make(chan string, 1)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == LogAddrKey {
				select {
				case addrCh <- a.Value.String():
				default:
				}
			}
			return a
		},
	})))

	go func() {
		defer close(serverDone)
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()

	var addr string
	select {
	case <-ctx.Done():
		<-serverDone
		return nil, errors.Wrap(context.Cause(ctx), "server exited before listening")
	case addr = <-addrCh:
	}

	server = &Server{
		url:        "http://" + addr,
		client:     NewClient("http://" + addr),
		cancel:     cancel,
		serverDone: serverDone,
	}
	if err := server.client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return nil, errors.Wrap(err, "wait for ready")
	}
	return server, nil
}

func (s *Server) Client() *Client {
	return s.client
}

func (s *Server) URL() string {
	return s.url
}

// Shutdown stops the server and waits for run to return.
func (s *Server) Shutdown() {
	s.cancel(nil)
	<-s.serverDone
}
