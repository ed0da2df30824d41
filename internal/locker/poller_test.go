package locker_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmehdipour/qmail/internal/locker"
	"github.com/jmehdipour/qmail/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// daemonServer completes the task on the readyOn-th poll (0 = never).
type daemonServer struct {
	readyOn     int32
	createFails bool
	polls       atomic.Int32
	creates     atomic.Int32
}

func (s *daemonServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/locker":
		s.creates.Add(1)
		if s.createFails {
			_, _ = w.Write([]byte(`{"status":"error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","payload":{"task_id":"T1"}}`))
	case "/api/v1/tasks":
		n := s.polls.Add(1)
		if s.readyOn > 0 && n >= s.readyOn {
			_, _ = fmt.Fprintf(w, `{"status":"success","payload":{"transmit_code":"CODE-%d"}}`, n)
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","payload":{}}`))
	default:
		http.NotFound(w, r)
	}
}

func newPoller(t *testing.T, s *daemonServer) *locker.Poller {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	d := locker.NewHTTPDaemon("cloudcoin", srv.URL, 500, 500, 3, 60000)
	return locker.NewPoller(locker.NewPool([]locker.Daemon{d}), locker.PollerConfig{
		MaxAttempts:  15,
		PollInterval: time.Millisecond,
	}, nil)
}

func TestPoller_FirstPoll(t *testing.T) {
	s := &daemonServer{readyOn: 1}
	res := newPoller(t, s).Mint(context.Background())

	assert.False(t, res.Fallback())
	assert.Equal(t, "CODE-1", res.LockerKey)
	assert.Equal(t, locker.OutcomeMinted, res.Outcome)
	assert.Equal(t, int32(1), s.polls.Load())
}

func TestPoller_CodeOnLastAllowedPoll(t *testing.T) {
	s := &daemonServer{readyOn: 15}
	res := newPoller(t, s).Mint(context.Background())

	assert.False(t, res.Fallback())
	assert.Equal(t, "CODE-15", res.LockerKey)
	assert.Equal(t, int32(15), s.polls.Load())
}

func TestPoller_CodeAfterBudgetFallsBack(t *testing.T) {
	s := &daemonServer{readyOn: 16}
	res := newPoller(t, s).Mint(context.Background())

	assert.True(t, res.Fallback())
	assert.Equal(t, locker.DefaultFallbackKey, res.LockerKey)
	assert.Equal(t, locker.OutcomePollExhausted, res.Outcome)
	assert.Equal(t, int32(15), s.polls.Load(), "no poll beyond the budget")
}

func TestPoller_CreateFailureSkipsPolling(t *testing.T) {
	s := &daemonServer{readyOn: 1, createFails: true}
	res := newPoller(t, s).Mint(context.Background())

	assert.True(t, res.Fallback())
	assert.Equal(t, locker.OutcomeCreateFailed, res.Outcome)
	assert.Equal(t, "DY6-UYDM", res.LockerKey)
	assert.Equal(t, int32(0), s.polls.Load())
}

func TestPoller_UnreachableDaemon(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := locker.NewHTTPDaemon("gone", url, 200, 200, 3, 60000)
	p := locker.NewPoller(locker.NewPool([]locker.Daemon{d}), locker.PollerConfig{PollInterval: time.Millisecond}, nil)

	res := p.Mint(context.Background())
	assert.Equal(t, locker.OutcomeCreateFailed, res.Outcome)
	assert.Equal(t, locker.DefaultFallbackKey, res.LockerKey)
}

func TestPoller_CancelStopsPolling(t *testing.T) {
	s := &daemonServer{}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	d := locker.NewHTTPDaemon("slow", srv.URL, 500, 500, 3, 60000)
	p := locker.NewPoller(locker.NewPool([]locker.Daemon{d}), locker.PollerConfig{
		MaxAttempts:  15,
		PollInterval: 20 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := p.Mint(ctx)
	assert.Equal(t, locker.OutcomeCanceled, res.Outcome)
	assert.True(t, res.Fallback())
	assert.Less(t, s.polls.Load(), int32(15))
}

func TestPoller_CustomFallbackKey(t *testing.T) {
	p := locker.NewPoller(locker.NewPool(nil), locker.PollerConfig{FallbackKey: "ZZZ-ZZZZ"}, nil)

	res := p.Mint(context.Background())
	assert.Equal(t, locker.OutcomeNoDaemon, res.Outcome)
	assert.Equal(t, "ZZZ-ZZZZ", res.LockerKey)
	assert.Equal(t, "ZZZ-ZZZZ", p.FallbackKey())
}

// fakeDaemon records breaker callbacks without any network.
type fakeDaemon struct {
	name      string
	ready     bool
	createErr error
	done      []bool
	aborted   int
}

func (f *fakeDaemon) Name() string  { return f.name }
func (f *fakeDaemon) Ready() bool   { return f.ready }
func (f *fakeDaemon) Acquire() bool { return f.ready }
func (f *fakeDaemon) Done(ok bool)  { f.done = append(f.done, ok) }
func (f *fakeDaemon) Abort()        { f.aborted++ }

func (f *fakeDaemon) CreateLocker(context.Context) (model.LockerTask, error) {
	if f.createErr != nil {
		return model.LockerTask{}, f.createErr
	}
	return model.LockerTask{TaskID: "T1"}, nil
}

func (f *fakeDaemon) GetTask(context.Context, string) (model.LockerResult, bool, error) {
	return model.LockerResult{TransmitCode: f.name + "-CODE"}, true, nil
}

func TestPoller_ReportsOutcomeToDaemon(t *testing.T) {
	ok := &fakeDaemon{name: "ok", ready: true}
	bad := &fakeDaemon{name: "bad", ready: true, createErr: errors.New("refused")}

	cfg := locker.PollerConfig{PollInterval: time.Millisecond}

	res := locker.NewPoller(locker.NewPool([]locker.Daemon{ok}), cfg, nil).Mint(context.Background())
	require.Equal(t, "ok-CODE", res.LockerKey)
	assert.Equal(t, "ok", res.Daemon)
	assert.Equal(t, []bool{true}, ok.done)

	res = locker.NewPoller(locker.NewPool([]locker.Daemon{bad}), cfg, nil).Mint(context.Background())
	assert.True(t, res.Fallback())
	assert.Equal(t, []bool{false}, bad.done)
}

func TestPool_RoundRobinSkipsUnhealthy(t *testing.T) {
	a := &fakeDaemon{name: "a", ready: true}
	b := &fakeDaemon{name: "b", ready: false}
	c := &fakeDaemon{name: "c", ready: true}
	pool := locker.NewPool([]locker.Daemon{a, b, c})

	var names []string
	for i := 0; i < 4; i++ {
		d, err := pool.Select()
		require.NoError(t, err)
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"a", "c", "a", "c"}, names)

	_, err := locker.NewPool([]locker.Daemon{b}).Select()
	assert.ErrorIs(t, err, locker.ErrNoHealthy)
}

func TestPoller_MalformedCodeFallsBack(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/locker" {
			_, _ = w.Write([]byte(`{"status":"success","payload":{"task_id":"T1"}}`))
			return
		}
		polls.Add(1)
		_, _ = w.Write([]byte(`{"status":"success","payload":{"transmit_code":"AB=CD"}}`))
	}))
	t.Cleanup(srv.Close)

	d := locker.NewHTTPDaemon("cloudcoin", srv.URL, 500, 500, 3, 60000)
	p := locker.NewPoller(locker.NewPool([]locker.Daemon{d}), locker.PollerConfig{PollInterval: time.Millisecond}, nil)

	res := p.Mint(context.Background())
	assert.True(t, res.Fallback())
	assert.Equal(t, locker.OutcomeMalformed, res.Outcome)
	assert.Equal(t, locker.DefaultFallbackKey, res.LockerKey)
	assert.Equal(t, int32(1), polls.Load(), "a malformed code ends the mint")
}
