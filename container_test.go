package grove

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestRegister(t *testing.T) {
	t.Run("valid constructor", func(t *testing.T) {
		c := New()
		assert.NoError(t, c.Register(newTestLogger))
	})

	t.Run("constructor returning (T, error)", func(t *testing.T) {
		c := New()
		err := c.Register(func() (*testConfig, error) { return &testConfig{}, nil })
		assert.NoError(t, err)
	})

	t.Run("non-function is rejected", func(t *testing.T) {
		c := New()
		err := c.Register("not a function")
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})

	t.Run("nil is rejected", func(t *testing.T) {
		c := New()
		assert.ErrorIs(t, c.Register(nil), ErrInvalidRegistration)
	})

	t.Run("no return values rejected", func(t *testing.T) {
		c := New()
		assert.ErrorIs(t, c.Register(func() {}), ErrInvalidRegistration)
	})

	t.Run("three return values rejected", func(t *testing.T) {
		c := New()
		err := c.Register(func() (int, int, int) { return 0, 0, 0 })
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})

	t.Run("second return not error rejected", func(t *testing.T) {
		c := New()
		err := c.Register(func() (int, string) { return 0, "" })
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})

	t.Run("variadic constructor rejected", func(t *testing.T) {
		c := New()
		err := c.Register(func(names ...string) int { return len(names) })
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})

	t.Run("after build returns ErrAlreadyBuilt", func(t *testing.T) {
		c := New()
		mustRegister(t, c, newTestLogger)
		mustBuild(t, c)

		err := c.Register(newTestConfig)
		require.ErrorIs(t, err, ErrAlreadyBuilt)

		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("duplicate type is appended", func(t *testing.T) {
		c := New()
		mustRegister(t, c, newTestLogger)
		mustRegister(t, c, func() *testLogger { return &testLogger{Prefix: "second"} })

		assert.Len(t, c.table.lookup(KeyOf[*testLogger]()), 2)
	})

	t.Run("with lifetime option", func(t *testing.T) {
		c := New()
		mustRegister(t, c, newTestLogger, WithLifetime(Transient))

		ds := c.table.lookup(KeyOf[*testLogger]())
		require.Len(t, ds, 1)
		assert.Equal(t, Transient, ds[0].Lifetime)
	})

	t.Run("As registers under the interface", func(t *testing.T) {
		c := New()
		mustRegister(t, c, newTestOrderService, As[testService]())

		assert.Len(t, c.table.lookup(KeyOf[testService]()), 1)
		assert.Empty(t, c.table.lookup(KeyOf[*testOrderService]()))
	})

	t.Run("As rejects a type that does not implement the interface", func(t *testing.T) {
		c := New()
		err := c.Register(newTestLogger, As[testService]())
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})

	t.Run("more dependency tags than parameters rejected", func(t *testing.T) {
		c := New()
		err := c.Register(newTestDatabase, WithDependencyTags("", "", "extra"))
		require.ErrorIs(t, err, ErrInvalidRegistration)
		assert.Contains(t, err.Error(), "3 dependency tag(s)")
		assert.Empty(t, c.table.lookup(KeyOf[*testDatabase]()))

		err = c.Register(newTestLogger, WithDependencyTags(""))
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})

	t.Run("dependency tags up to the parameter count accepted", func(t *testing.T) {
		c := New()
		mustRegister(t, c, newTestDatabase, WithDependencyTags("", "audit"))

		ds := c.table.lookup(KeyOf[*testDatabase]())
		require.Len(t, ds, 1)
		assert.Equal(t, KeyOf[*testLogger]("audit"), ds[0].Dependencies[1])
	})

	t.Run("WithTag keys the registration", func(t *testing.T) {
		c := New()
		mustRegister(t, c, newTestLogger, WithTag("audit"))

		assert.Len(t, c.table.lookup(KeyOf[*testLogger]("audit")), 1)
		assert.Empty(t, c.table.lookup(KeyOf[*testLogger]()))
	})
}

func TestRegisterInstance(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c := New()
		assert.NoError(t, c.RegisterInstance(KeyOf[*testLogger](), &testLogger{}))
	})

	t.Run("nil rejected", func(t *testing.T) {
		c := New()
		assert.ErrorIs(t, c.RegisterInstance(KeyOf[*testLogger](), nil), ErrInvalidRegistration)
		assert.ErrorIs(t, c.RegisterInstance(KeyOf[*testLogger](), (*testLogger)(nil)), ErrInvalidRegistration)
	})

	t.Run("transient rejected", func(t *testing.T) {
		c := New()
		err := c.RegisterInstance(KeyOf[*testLogger](), &testLogger{}, WithLifetime(Transient))
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})

	t.Run("unassignable instance rejected", func(t *testing.T) {
		c := New()
		err := c.RegisterInstance(KeyOf[*testLogger](), &testConfig{})
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})

	t.Run("generic helper", func(t *testing.T) {
		c := New()
		require.NoError(t, RegisterValue[testService](c, &testOrderService{}))
		assert.Len(t, c.table.lookup(KeyOf[testService]()), 1)
	})
}

func TestRegisterFactory(t *testing.T) {
	t.Run("nil factory rejected", func(t *testing.T) {
		c := New()
		assert.ErrorIs(t, c.RegisterFactory(KeyOf[*testLogger](), nil), ErrInvalidRegistration)
		assert.ErrorIs(t, RegisterFunc[*testLogger](c, nil), ErrInvalidRegistration)
	})

	t.Run("invalid key rejected", func(t *testing.T) {
		c := New()
		err := c.RegisterFactory(Key{}, func(Resolver) (any, error) { return 1, nil })
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})

	t.Run("after build returns ErrAlreadyBuilt", func(t *testing.T) {
		c := New()
		mustBuild(t, c)
		err := RegisterFunc(c, func(Resolver) (*testLogger, error) { return &testLogger{}, nil })
		assert.ErrorIs(t, err, ErrAlreadyBuilt)
	})
}

func TestAdd(t *testing.T) {
	t.Run("hand-built constructor descriptor", func(t *testing.T) {
		c := New()
		mustRegister(t, c, newTestLogger)
		err := c.Add(Descriptor{
			Key:          KeyOf[*testOrderService](),
			Lifetime:     Transient,
			Strategy:     ConstructorStrategy,
			Constructor:  reflect.ValueOf(newTestOrderService),
			Dependencies: []Key{KeyOf[*testLogger]()},
		})
		require.NoError(t, err)
		mustBuild(t, c)

		svc, err := Resolve[*testOrderService](c)
		require.NoError(t, err)
		assert.NotNil(t, svc.Logger)
	})

	t.Run("dependency count mismatch rejected", func(t *testing.T) {
		c := New()
		err := c.Add(Descriptor{
			Key:         KeyOf[*testOrderService](),
			Strategy:    ConstructorStrategy,
			Constructor: reflect.ValueOf(newTestOrderService),
		})
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})

	t.Run("dependency type mismatch rejected", func(t *testing.T) {
		c := New()
		err := c.Add(Descriptor{
			Key:          KeyOf[*testOrderService](),
			Strategy:     ConstructorStrategy,
			Constructor:  reflect.ValueOf(newTestOrderService),
			Dependencies: []Key{KeyOf[*testConfig]()},
		})
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})

	t.Run("unknown lifetime rejected", func(t *testing.T) {
		c := New()
		err := c.Add(Descriptor{
			Key:      KeyOf[*testLogger](),
			Lifetime: Lifetime(42),
			Strategy: InstanceStrategy,
			Instance: &testLogger{},
		})
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

func TestBuild(t *testing.T) {
	t.Run("empty container succeeds", func(t *testing.T) {
		c := New()
		assert.NoError(t, c.Build())
	})

	t.Run("dependency chain", func(t *testing.T) {
		c := New()
		mustRegister(t, c, newTestLogger)
		mustRegister(t, c, newTestConfig)
		mustRegister(t, c, newTestDatabase)
		mustRegister(t, c, newTestUserRepo)
		mustRegister(t, c, newTestUserService)

		assert.NoError(t, c.Build())
	})

	t.Run("called twice returns ErrAlreadyBuilt", func(t *testing.T) {
		c := New()
		mustRegister(t, c, newTestLogger)
		mustBuild(t, c)

		assert.ErrorIs(t, c.Build(), ErrAlreadyBuilt)
	})

	t.Run("lazy by default", func(t *testing.T) {
		callCount := 0
		c := New()
		mustRegister(t, c, func() *testLogger {
			callCount++
			return &testLogger{Prefix: "app"}
		})
		mustBuild(t, c)

		assert.Zero(t, callCount, "singleton should not be constructed during build")
	})

	t.Run("missing dependency surfaces at resolve without validation", func(t *testing.T) {
		c := New()
		mustRegister(t, c, newTestDatabase)
		mustBuild(t, c)

		_, err := Resolve[*testDatabase](c)
		assert.ErrorIs(t, err, ErrMissingDependency)
	})

	t.Run("Root is nil before build", func(t *testing.T) {
		c := New()
		assert.Nil(t, c.Root())
		mustBuild(t, c)
		assert.NotNil(t, c.Root())
	})
}

func TestBuild_Validate(t *testing.T) {
	t.Run("missing dependency", func(t *testing.T) {
		c := New(WithValidateOnBuild(true))
		mustRegister(t, c, newTestDatabase) // needs *testConfig and *testLogger

		err := c.Build()
		require.ErrorIs(t, err, ErrMissingDependency)

		var missing *MissingDependencyError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, KeyOf[*testDatabase](), missing.Requester)
	})

	t.Run("failed validation leaves the container open", func(t *testing.T) {
		c := New(WithValidateOnBuild(true))
		mustRegister(t, c, newTestDatabase)
		require.Error(t, c.Build())

		mustRegister(t, c, newTestConfig)
		mustRegister(t, c, newTestLogger)
		assert.NoError(t, c.Build())
	})

	t.Run("circular dependency", func(t *testing.T) {
		c := New(WithValidateOnBuild(true))
		mustRegister(t, c, newTestCircA)
		mustRegister(t, c, newTestCircB)
		mustRegister(t, c, newTestCircC)

		err := c.Build()
		require.ErrorIs(t, err, ErrCircularDependency)
		assert.Contains(t, err.Error(), "->")

		var cycle *CircularDependencyError
		require.ErrorAs(t, err, &cycle)
		assert.Len(t, cycle.Chain, 4)
		assert.Equal(t, cycle.Chain[0], cycle.Chain[3])
	})

	t.Run("empty collection parameter is allowed", func(t *testing.T) {
		c := New(WithValidateOnBuild(true))
		mustRegister(t, c, func(svcs []testService) int { return len(svcs) })
		assert.NoError(t, c.Build())
	})

	t.Run("factories are leaves", func(t *testing.T) {
		c := New(WithValidateOnBuild(true))
		require.NoError(t, RegisterFunc(c, func(r Resolver) (*testConfig, error) {
			return &testConfig{}, nil
		}))
		mustRegister(t, c, newTestLogger)
		mustRegister(t, c, newTestDatabase)
		assert.NoError(t, c.Build())
	})

	t.Run("singleton depending on scoped with scope validation", func(t *testing.T) {
		c := New(WithValidateOnBuild(true), WithValidateScopes(true))
		mustRegister(t, c, newTestLogger, WithLifetime(Scoped))
		mustRegister(t, c, newTestOrderService)

		err := c.Build()
		assert.ErrorIs(t, err, ErrScopeValidation)
	})
}

func TestBuild_EagerSingletons(t *testing.T) {
	t.Run("singletons constructed during build", func(t *testing.T) {
		callCount := 0
		c := New(WithEagerSingletons(true))
		mustRegister(t, c, func() *testLogger {
			callCount++
			return &testLogger{Prefix: "app"}
		})
		mustRegister(t, c, newTestConfig, WithLifetime(Transient))
		mustBuild(t, c)
		assert.Equal(t, 1, callCount)

		_, err := Resolve[*testLogger](c)
		require.NoError(t, err)
		assert.Equal(t, 1, callCount)
	})

	t.Run("constructor error propagates", func(t *testing.T) {
		c := New(WithEagerSingletons(true))
		mustRegister(t, c, func() (*testConfig, error) {
			return nil, errors.New("connection failed")
		})

		err := c.Build()
		require.ErrorIs(t, err, ErrActivation)
		assert.Contains(t, err.Error(), "connection failed")
	})
}

// ---------------------------------------------------------------------------
// Shutdown
// ---------------------------------------------------------------------------

func TestShutdown(t *testing.T) {
	t.Run("before build returns ErrNotBuilt", func(t *testing.T) {
		c := New()
		assert.ErrorIs(t, c.Shutdown(context.Background()), ErrNotBuilt)
	})

	t.Run("closes singletons in reverse creation order", func(t *testing.T) {
		rec := &closeRecorder{}

		c := New()
		mustRegister(t, c, func() *testClosable { return &testClosable{Name: "first", rec: rec} })
		mustRegister(t, c, func(f *testClosable) *testDisposable {
			return &testDisposable{Name: "second", rec: rec}
		})
		mustBuild(t, c)

		_, err := Resolve[*testDisposable](c)
		require.NoError(t, err)

		require.NoError(t, c.Shutdown(context.Background()))
		assert.Equal(t, []string{"second", "first"}, rec.order())
	})

	t.Run("second call returns ErrAlreadyShutdown", func(t *testing.T) {
		c := New()
		mustBuild(t, c)
		require.NoError(t, c.Shutdown(context.Background()))
		assert.ErrorIs(t, c.Shutdown(context.Background()), ErrAlreadyShutdown)
	})

	t.Run("disposes open child scopes", func(t *testing.T) {
		c := New()
		mustRegister(t, c, func() *testDisposable { return &testDisposable{Name: "scoped"} }, WithLifetime(Scoped))
		mustBuild(t, c)

		s, err := c.NewScope()
		require.NoError(t, err)
		d, err := Resolve[*testDisposable](s)
		require.NoError(t, err)

		require.NoError(t, c.Shutdown(context.Background()))
		assert.True(t, d.Disposed)
		assert.ErrorIs(t, s.Dispose(), ErrScopeDisposed)
	})

	t.Run("rejects resolves and new scopes afterwards", func(t *testing.T) {
		c := New()
		mustRegister(t, c, newTestLogger)
		mustBuild(t, c)
		require.NoError(t, c.Shutdown(context.Background()))

		_, err := Resolve[*testLogger](c)
		assert.ErrorIs(t, err, ErrScopeDisposed)

		_, err = c.NewScope()
		assert.ErrorIs(t, err, ErrScopeDisposed)
	})

	t.Run("close errors are reported", func(t *testing.T) {
		c := New()
		mustRegister(t, c, func() *testFailCloser { return &testFailCloser{} })
		mustBuild(t, c)
		_, err := Resolve[*testFailCloser](c)
		require.NoError(t, err)

		err = c.Shutdown(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "close failed")

		var disposeErr *DisposeError
		assert.ErrorAs(t, err, &disposeErr)
	})

	t.Run("expired context skips remaining closers", func(t *testing.T) {
		c := New()
		mustRegister(t, c, func() *testClosable { return &testClosable{Name: "a"} })
		mustBuild(t, c)
		closable, err := Resolve[*testClosable](c)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()

		err = c.Shutdown(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, closable.Closed)
	})
}
