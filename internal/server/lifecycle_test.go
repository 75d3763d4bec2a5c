package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// listenerService mimics the shape of the process's real services: a
// blocking listener whose Stop unblocks Start, recording stop order.
type listenerService struct {
	name    string
	quit    chan struct{}
	started chan struct{}
	order   *stopOrder
}

type stopOrder struct {
	mu    sync.Mutex
	names []string
}

func (o *stopOrder) record(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, name)
}

func newListenerService(name string, order *stopOrder) *listenerService {
	return &listenerService{
		name:    name,
		quit:    make(chan struct{}),
		started: make(chan struct{}),
		order:   order,
	}
}

func (s *listenerService) Start() error {
	close(s.started)
	<-s.quit
	return nil
}

func (s *listenerService) Stop() {
	s.order.record(s.name)
	close(s.quit)
}

func waitStarted(t *testing.T, services ...*listenerService) {
	t.Helper()
	for _, s := range services {
		select {
		case <-s.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("service %s did not start in time", s.name)
		}
	}
}

func TestRunStopsServicesInReverseOrder(t *testing.T) {
	order := &stopOrder{}
	api := newListenerService("http-api", order)
	sock := newListenerService("websocket", order)

	lc := NewLifecycle(zaptest.NewLogger(t))
	lc.Add("http-api", api)
	lc.Add("websocket", sock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- lc.Run(ctx)
	}()

	waitStarted(t, api, sock)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}

	// websocket registered last, stops first.
	assert.Equal(t, []string{"websocket", "http-api"}, order.names)
}

func TestRunReturnsFailingServiceError(t *testing.T) {
	order := &stopOrder{}
	sock := newListenerService("websocket", order)
	bindErr := errors.New("bind: address already in use")

	lc := NewLifecycle(zaptest.NewLogger(t))
	lc.Add("http-api", &FuncService{
		StartFn: func() error { return bindErr },
		StopFn:  func() { order.record("http-api") },
	})
	lc.Add("websocket", sock)

	done := make(chan error, 1)
	go func() {
		done <- lc.Run(context.Background())
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, bindErr)
		assert.Contains(t, err.Error(), "http-api")
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not surface the failure in time")
	}

	// The healthy service is still torn down.
	assert.Contains(t, order.names, "websocket")
}

func TestFuncServiceDelegates(t *testing.T) {
	var started, stopped bool
	svc := &FuncService{
		StartFn: func() error {
			started = true
			return nil
		},
		StopFn: func() { stopped = true },
	}

	require.NoError(t, svc.Start())
	assert.True(t, started)

	svc.Stop()
	assert.True(t, stopped)
}
