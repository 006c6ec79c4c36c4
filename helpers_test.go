package grove

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Shared test types and constructors used across test files.

// mustRegister fails the test if registration fails.
func mustRegister(t *testing.T, c *Container, constructor any, opts ...Option) {
	t.Helper()
	require.NoError(t, c.Register(constructor, opts...), "Register")
}

// mustBuild fails the test if build fails.
func mustBuild(t *testing.T, c *Container) {
	t.Helper()
	require.NoError(t, c.Build(), "Build")
}

// mustScope opens a child scope and disposes it at the end of the test.
func mustScope(t *testing.T, c *Container) *Scope {
	t.Helper()
	s, err := c.NewScope()
	require.NoError(t, err, "NewScope")
	t.Cleanup(func() { _ = s.Dispose() })
	return s
}

type testLogger struct{ Prefix string }
type testConfig struct{ DSN string }

type testDatabase struct {
	Config *testConfig
	Logger *testLogger
}

type testUserRepo struct {
	DB     *testDatabase
	Logger *testLogger
}

type testService interface {
	Name() string
}

type testUserService struct {
	Repo   *testUserRepo
	Logger *testLogger
}

func (s *testUserService) Name() string { return "user" }

type testOrderService struct{ Logger *testLogger }

func (s *testOrderService) Name() string { return "order" }

type testCircA struct{ B *testCircB }
type testCircB struct{ C *testCircC }
type testCircC struct{ A *testCircA }

func newTestLogger() *testLogger           { return &testLogger{Prefix: "app"} }
func newTestConfig() *testConfig           { return &testConfig{DSN: "postgres://localhost"} }
func newTestCircA(b *testCircB) *testCircA { return &testCircA{B: b} }
func newTestCircB(c *testCircC) *testCircB { return &testCircB{C: c} }
func newTestCircC(a *testCircA) *testCircC { return &testCircC{A: a} }

func newTestDatabase(cfg *testConfig, log *testLogger) *testDatabase {
	return &testDatabase{Config: cfg, Logger: log}
}

func newTestUserRepo(db *testDatabase, log *testLogger) *testUserRepo {
	return &testUserRepo{DB: db, Logger: log}
}

func newTestUserService(repo *testUserRepo, log *testLogger) *testUserService {
	return &testUserService{Repo: repo, Logger: log}
}

func newTestOrderService(log *testLogger) *testOrderService {
	return &testOrderService{Logger: log}
}

// closeRecorder collects the names of disposed services in order.
type closeRecorder struct {
	mu    sync.Mutex
	names []string
}

func (r *closeRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *closeRecorder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// testClosable implements io.Closer.
type testClosable struct {
	Name   string
	Closed bool
	rec    *closeRecorder
}

func (c *testClosable) Close() error {
	c.Closed = true
	if c.rec != nil {
		c.rec.record(c.Name)
	}
	return nil
}

// testDisposable implements Disposable and fails when err is set.
type testDisposable struct {
	Name     string
	Disposed bool
	err      error
	rec      *closeRecorder
}

func (d *testDisposable) Dispose() error {
	d.Disposed = true
	if d.rec != nil {
		d.rec.record(d.Name)
	}
	return d.err
}

// testFailCloser implements io.Closer but returns an error.
type testFailCloser struct{}

func (f *testFailCloser) Close() error {
	return errors.New("close failed")
}
