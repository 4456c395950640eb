package grove

import (
	"errors"
	"testing"
)

// Shared test types and constructors used across test files.

// mustProvide calls t.Fatal if registration fails.
func mustProvide(t *testing.T, c Container, constructor interface{}, opts ...Option) {
	t.Helper()
	if err := c.Provide(constructor, opts...); err != nil {
		t.Fatalf("Provide: %v", err)
	}
}

// mustRegister calls t.Fatal if registration fails.
func mustRegister(t *testing.T, c Container, key Key, d Descriptor, opts ...Option) {
	t.Helper()
	if err := c.Register(key, d, opts...); err != nil {
		t.Fatalf("Register(%v): %v", key, err)
	}
}

// mustRegisterOpen calls t.Fatal if open-generic registration fails.
func mustRegisterOpen(t *testing.T, c Container, g *Generic, tmpl Template, opts ...Option) {
	t.Helper()
	if err := c.RegisterOpenGeneric(g, tmpl, opts...); err != nil {
		t.Fatalf("RegisterOpenGeneric(%v): %v", g, err)
	}
}

// mustRegisterInstance calls t.Fatal if registration fails.
func mustRegisterInstance(t *testing.T, c Container, key Key, v any, opts ...Option) {
	t.Helper()
	if err := c.RegisterInstance(key, v, opts...); err != nil {
		t.Fatalf("RegisterInstance(%v): %v", key, err)
	}
}

// mustBuild calls t.Fatal if build fails.
func mustBuild(t *testing.T, c Container) {
	t.Helper()
	if err := c.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

// value returns a factory that always yields v.
func value(v any) Factory {
	return func(Args) (any, error) { return v, nil }
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

// testClosable is a singleton that implements io.Closer for shutdown tests.
type testClosable struct {
	Name   string
	Closed bool
	Order  *[]string // shared slice to record close order
}

func (c *testClosable) Close() error {
	c.Closed = true
	if c.Order != nil {
		*c.Order = append(*c.Order, c.Name)
	}
	return nil
}

// testFailCloser implements io.Closer but returns an error.
type testFailCloser struct{}

func (f *testFailCloser) Close() error {
	return errors.New("close failed")
}

// Fixtures for open-generic resolution: a Thing[T] tests a payload, a
// thingRunner[T] holds every Thing[T] and a thingHandler runs the
// magicPayload closure.

type magicPayload struct{ Value int }

type thing[T any] interface {
	TestThing(args T) bool
}

type realThing struct{}

func (*realThing) TestThing(args magicPayload) bool { return args.Value == 999 }

type evenThing struct{}

func (*evenThing) TestThing(args int) bool { return args%2 == 0 }

var errNoMatchingThing = errors.New("no matching thing")

type thingRunner[T any] struct {
	Things []thing[T]
}

func (r *thingRunner[T]) TestRunner(args T) error {
	for _, th := range r.Things {
		if th.TestThing(args) {
			return nil
		}
	}
	return errNoMatchingThing
}

type thingHandler struct {
	Runner *thingRunner[magicPayload]
}

func (h *thingHandler) RunHandler(v int) error {
	return h.Runner.TestRunner(magicPayload{Value: v})
}

var (
	thingOf    = NewGeneric("Thing", 1)
	runnerOf   = NewGeneric("ThingRunner", 1)
	payloadKey = KeyOf[magicPayload]()
)

func newThingRunner[T any](args Args) *thingRunner[T] {
	return &thingRunner[T]{Things: List[thing[T]](args, 0)}
}

// runnerTemplate closes thingRunner over the payload types used in tests.
func runnerTemplate() Template {
	return Template{
		Deps: []Key{ListOf(thingOf.Of(Param(0)))},
		New: func(typeArgs []Key, args Args) (any, error) {
			switch typeArgs[0] {
			case payloadKey:
				return newThingRunner[magicPayload](args), nil
			case KeyOf[int]():
				return newThingRunner[int](args), nil
			}
			return nil, errors.New("no runner for " + typeArgs[0].String())
		},
	}
}

func handlerDescriptor() Descriptor {
	return Descriptor{
		Deps: []Key{runnerOf.Of(payloadKey)},
		New: func(args Args) (any, error) {
			return &thingHandler{Runner: Arg[*thingRunner[magicPayload]](args, 0)}, nil
		},
	}
}

func realThingDescriptor() Descriptor {
	return Descriptor{
		Impl: KeyOf[*realThing](),
		New:  value(&realThing{}),
	}
}
