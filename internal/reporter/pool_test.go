package reporter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aircrouching/delator/internal/models"
	"github.com/aircrouching/delator/pkg/logger"
)

type fakeClient struct {
	name string

	authorized bool
	authErr    error

	resolveErr     error
	reportErr      error
	panicOnResolve bool
	delay          time.Duration

	closed bool
}

var _ Client = (*fakeClient)(nil)

func (c *fakeClient) Name() string { return c.name }

func (c *fakeClient) Authorized(context.Context) (bool, error) {
	return c.authorized, c.authErr
}

func (c *fakeClient) Resolve(ctx context.Context, _ models.ReportTarget) (string, error) {
	if c.panicOnResolve {
		panic("entity cache corrupted")
	}
	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.delay):
		}
	}
	if c.resolveErr != nil {
		return "", c.resolveErr
	}
	return "peer:" + c.name, nil
}

func (c *fakeClient) Report(ctx context.Context, _ string, _ int, _ models.ReportReason) error {
	return c.reportErr
}

func (c *fakeClient) Close() error {
	c.closed = true
	return nil
}

type fakeDialer struct {
	clients map[string]*fakeClient
	dialErr map[string]error
}

var _ Dialer = (*fakeDialer)(nil)

func (d *fakeDialer) Dial(_ context.Context, sessionPath string) (Client, error) {
	name := strings.TrimSuffix(filepath.Base(sessionPath), ".session")
	if err := d.dialErr[name]; err != nil {
		return nil, err
	}
	client, ok := d.clients[name]
	if !ok {
		return nil, errors.New("unknown session")
	}
	return client, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(true)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return log
}

func writeSessions(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("bundle"), 0o600); err != nil {
			t.Fatalf("write session: %v", err)
		}
	}
	return dir
}

func TestPoolInit_SkipsBadBundles(t *testing.T) {
	dialer := &fakeDialer{
		clients: map[string]*fakeClient{
			"good":    {name: "good", authorized: true},
			"noauth":  {name: "noauth", authorized: false},
			"autherr": {name: "autherr", authErr: errors.New("flood wait")},
		},
		dialErr: map[string]error{"broken": errors.New("connect refused")},
	}
	dir := writeSessions(t, "good.session", "noauth.session", "autherr.session", "broken.session", "ignored.txt")

	pool := NewPool(dialer, dir, time.Second, testLogger(t))
	count, err := pool.Init(context.Background())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if count != 1 {
		t.Fatalf("Init = %d accounts, want 1", count)
	}
	if !dialer.clients["noauth"].closed {
		t.Error("unauthorized client was not disconnected")
	}

	// Second call is a no-op.
	count, err = pool.Init(context.Background())
	if err != nil || count != 1 {
		t.Fatalf("second Init = (%d, %v), want (1, nil)", count, err)
	}
}

func TestPoolInit_MissingDirectory(t *testing.T) {
	pool := NewPool(&fakeDialer{}, filepath.Join(t.TempDir(), "nope"), time.Second, testLogger(t))
	count, err := pool.Init(context.Background())
	if err != nil || count != 0 {
		t.Fatalf("Init = (%d, %v), want (0, nil)", count, err)
	}
}

func dispatchPool(t *testing.T, clients map[string]*fakeClient, timeout time.Duration) *Pool {
	t.Helper()
	names := make([]string, 0, len(clients))
	for name := range clients {
		names = append(names, name+".session")
	}
	dir := writeSessions(t, names...)
	for _, c := range clients {
		c.authorized = true
	}
	return NewPool(&fakeDialer{clients: clients}, dir, timeout, testLogger(t))
}

func TestDispatch_AllSucceed(t *testing.T) {
	pool := dispatchPool(t, map[string]*fakeClient{
		"a": {name: "a"},
		"b": {name: "b"},
		"c": {name: "c"},
	}, time.Second)

	result := pool.Dispatch(context.Background(), "https://t.me/c/1234567/89", models.ReasonSpam)
	if result.Success != 3 || result.Total != 3 || len(result.Errors) != 0 {
		t.Fatalf("Dispatch = %+v, want 3/3 with no errors", result)
	}
}

func TestDispatch_FailuresIsolated(t *testing.T) {
	pool := dispatchPool(t, map[string]*fakeClient{
		"a": {name: "a"},
		"b": {name: "b", reportErr: errors.New("PEER_FLOOD")},
		"c": {name: "c", resolveErr: errors.New("entity not found")},
		"d": {name: "d", panicOnResolve: true},
	}, time.Second)

	result := pool.Dispatch(context.Background(), "https://t.me/durov/5", models.ReasonViolence)
	if result.Total != 4 {
		t.Fatalf("Total = %d, want 4", result.Total)
	}
	if result.Success != 1 {
		t.Fatalf("Success = %d, want 1", result.Success)
	}
	if len(result.Errors) != 3 {
		t.Fatalf("Errors = %v, want 3 entries", result.Errors)
	}
}

func TestDispatch_SlowAccountTimesOut(t *testing.T) {
	pool := dispatchPool(t, map[string]*fakeClient{
		"fast": {name: "fast"},
		"slow": {name: "slow", delay: 5 * time.Second},
	}, 50*time.Millisecond)

	done := make(chan *models.AggregateResult, 1)
	go func() {
		done <- pool.Dispatch(context.Background(), "https://t.me/c/1/2", models.ReasonSpam)
	}()

	select {
	case result := <-done:
		if result.Success != 1 || result.Total != 2 || len(result.Errors) != 1 {
			t.Fatalf("Dispatch = %+v, want 1/2 with 1 error", result)
		}
		if !strings.Contains(result.Errors[0], "slow") {
			t.Fatalf("error %q does not name the slow account", result.Errors[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch barrier did not return after per-account timeout")
	}
}

func TestDispatch_EmptyPool(t *testing.T) {
	pool := NewPool(&fakeDialer{}, writeSessions(t), time.Second, testLogger(t))
	result := pool.Dispatch(context.Background(), "https://t.me/c/1/2", models.ReasonSpam)
	if result.Success != 0 || result.Total != 0 {
		t.Fatalf("Dispatch = %+v, want zero outcome", result)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "no active accounts" {
		t.Fatalf("Errors = %v, want [no active accounts]", result.Errors)
	}
}

func TestDispatch_InvalidLink(t *testing.T) {
	pool := dispatchPool(t, map[string]*fakeClient{"a": {name: "a"}}, time.Second)
	result := pool.Dispatch(context.Background(), "https://t.me/c/oops", models.ReasonSpam)
	if result.Success != 0 || result.Total != 0 {
		t.Fatalf("Dispatch = %+v, want zero outcome", result)
	}
	if len(result.Errors) != 1 || result.Errors[0] != "invalid link" {
		t.Fatalf("Errors = %v, want [invalid link]", result.Errors)
	}
}
