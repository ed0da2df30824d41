package locker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jmehdipour/qmail/internal/mailbox"
	"github.com/jmehdipour/qmail/internal/model"
)

const (
	createPath = "/api/v1/locker"
	tasksPath  = "/api/v1/tasks"

	statusSuccess = "success"
)

var (
	// ErrNotCreated means the daemon answered the create call without a task.
	ErrNotCreated = errors.New("locker task not created")
	// ErrMalformedCode means the task finished with a code that cannot be
	// embedded in a mailbox record.
	ErrMalformedCode = errors.New("malformed transmit code")
)

// StatusError is a non-2xx answer from a daemon.
type StatusError struct {
	Daemon     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("daemon=%s path=%s status=%d: %s", e.Daemon, e.Path, e.StatusCode, e.Body)
}

// Daemon is one locker service endpoint plus its breaker.
type Daemon interface {
	Name() string
	Ready() bool
	Acquire() bool
	// Done reports the outcome of a mint that started with Acquire.
	Done(ok bool)
	// Abort releases an acquisition whose caller was cancelled.
	Abort()
	CreateLocker(ctx context.Context) (model.LockerTask, error)
	// GetTask returns done=false while the task has no transmit code.
	GetTask(ctx context.Context, taskID string) (res model.LockerResult, done bool, err error)
}

type envelope struct {
	Status  string          `json:"status"`
	Payload json.RawMessage `json:"payload"`
}

type createPayload struct {
	TaskID string `json:"task_id"`
}

type taskPayload struct {
	TransmitCode string `json:"transmit_code"`
}

type HTTPDaemon struct {
	name          string
	baseURL       string
	createTimeout time.Duration
	client        *http.Client
	br            *MicroBreaker
}

func NewHTTPDaemon(
	name, baseURL string,
	createTimeoutMs, pollTimeoutMs, failThreshold, openForMs int,
) *HTTPDaemon {
	if createTimeoutMs <= 0 {
		createTimeoutMs = 3000
	}

	if pollTimeoutMs <= 0 {
		pollTimeoutMs = 5000
	}

	if failThreshold <= 0 {
		failThreshold = 3
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	return &HTTPDaemon{
		name:          name,
		baseURL:       baseURL,
		createTimeout: time.Duration(createTimeoutMs) * time.Millisecond,
		client:        &http.Client{Timeout: time.Duration(pollTimeoutMs) * time.Millisecond},
		br:            NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (d *HTTPDaemon) Name() string  { return d.name }
func (d *HTTPDaemon) Ready() bool   { return d.br.Ready() }
func (d *HTTPDaemon) Acquire() bool { return d.br.TryAcquire() }
func (d *HTTPDaemon) Abort()        { d.br.OnAbort() }

func (d *HTTPDaemon) Done(ok bool) {
	if ok {
		d.br.OnSuccess()
		return
	}
	d.br.OnFailure()
}

// CreateLocker posts an empty body and expects {status:"success", payload:{task_id}}.
func (d *HTTPDaemon) CreateLocker(ctx context.Context) (model.LockerTask, error) {
	ctx, cancel := context.WithTimeout(ctx, d.createTimeout)
	defer cancel()

	env, err := d.do(ctx, http.MethodPost, createPath)
	if err != nil {
		return model.LockerTask{}, err
	}

	var p createPayload
	if env.Status != statusSuccess || !decodePayload(env.Payload, &p) || p.TaskID == "" {
		return model.LockerTask{}, fmt.Errorf("daemon=%s status=%q: %w", d.name, env.Status, ErrNotCreated)
	}

	return model.LockerTask{TaskID: p.TaskID}, nil
}

func (d *HTTPDaemon) GetTask(ctx context.Context, taskID string) (model.LockerResult, bool, error) {
	env, err := d.do(ctx, http.MethodGet, tasksPath+"?id="+url.QueryEscape(taskID))
	if err != nil {
		return model.LockerResult{}, false, err
	}

	var p taskPayload
	if env.Status != statusSuccess || !decodePayload(env.Payload, &p) || p.TransmitCode == "" {
		return model.LockerResult{}, false, nil
	}

	if err := mailbox.CheckValue(p.TransmitCode); err != nil {
		return model.LockerResult{}, false, fmt.Errorf("daemon=%s task=%s: %w: %v", d.name, taskID, ErrMalformedCode, err)
	}

	return model.LockerResult{TransmitCode: p.TransmitCode}, true, nil
}

func (d *HTTPDaemon) do(ctx context.Context, method, path string) (envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, nil)
	if err != nil {
		return envelope{}, err
	}

	req.Header.Set("Accept", "application/json")

	res, err := d.client.Do(req)
	if err != nil {
		return envelope{}, err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return envelope{}, &StatusError{Daemon: d.name, Path: path, StatusCode: res.StatusCode, Body: string(body)}
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return envelope{}, fmt.Errorf("daemon=%s path=%s decode: %w", d.name, path, err)
	}

	return env, nil
}

// decodePayload is false for a missing, null or mistyped payload.
func decodePayload(raw json.RawMessage, v any) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
