package grove_test

import (
	"fmt"

	"github.com/ARTM2000/grove"
)

// Types used in examples only.
type Logger struct{ Prefix string }
type Config struct{ DSN string }
type Database struct {
	Config *Config
	Logger *Logger
}

type Greeter interface {
	Greet() string
}
type englishGreeter struct{}

func (g *englishGreeter) Greet() string { return "hello" }

type spanishGreeter struct{}

func (g *spanishGreeter) Greet() string { return "hola" }

type Payload struct{ Value int }

type Check[T any] interface {
	Test(v T) bool
}

type magicCheck struct{}

func (magicCheck) Test(p Payload) bool { return p.Value == 999 }

type Runner[T any] struct {
	Checks []Check[T]
}

func (r *Runner[T]) Run(v T) bool {
	for _, c := range r.Checks {
		if c.Test(v) {
			return true
		}
	}
	return false
}

func ExampleNew() {
	c := grove.New()

	_ = c.Provide(func() *Logger { return &Logger{Prefix: "app"} })
	if err := c.Build(); err != nil {
		panic(err)
	}

	logger, _ := grove.Resolve[*Logger](c)
	fmt.Println(logger.Prefix)
	// Output: app
}

func ExampleWithLifetime() {
	c := grove.New()
	_ = c.Provide(
		func() *Logger { return &Logger{Prefix: "app"} },
		grove.WithLifetime(grove.Transient),
	)
	_ = c.Build()

	l1, _ := grove.Resolve[*Logger](c)
	l2, _ := grove.Resolve[*Logger](c)
	fmt.Println(l1 == l2)
	// Output: false
}

func ExampleResolve() {
	c := grove.New()
	_ = c.Provide(func() *Config { return &Config{DSN: "postgres://localhost"} })
	_ = c.Provide(func() *Logger { return &Logger{Prefix: "app"} })
	_ = c.Provide(func(cfg *Config, log *Logger) *Database {
		return &Database{Config: cfg, Logger: log}
	})
	_ = c.Build()

	db, err := grove.Resolve[*Database](c)
	if err != nil {
		panic(err)
	}
	fmt.Println(db.Config.DSN)
	fmt.Println(db.Logger.Prefix)
	// Output:
	// postgres://localhost
	// app
}

func ExampleResolveNamed() {
	c := grove.New()
	_ = c.Provide(func() Greeter { return &englishGreeter{} }, grove.Named("en"))
	_ = c.Provide(func() Greeter { return &spanishGreeter{} }, grove.Named("es"))
	_ = c.Build()

	en, _ := grove.ResolveNamed[Greeter](c, "en")
	es, _ := grove.ResolveNamed[Greeter](c, "es")
	fmt.Println(en.Greet())
	fmt.Println(es.Greet())
	// Output:
	// hello
	// hola
}

func ExampleResolveAll() {
	c := grove.New()
	_ = c.Provide(func() Greeter { return &englishGreeter{} })
	_ = c.Provide(func() Greeter { return &spanishGreeter{} })
	_ = c.Build()

	all, _ := grove.ResolveAll[Greeter](c, grove.KeyOf[Greeter]())
	for _, g := range all {
		fmt.Println(g.Greet())
	}
	// Output:
	// hello
	// hola
}

func ExampleContainer_RegisterOpenGeneric() {
	check := grove.NewGeneric("Check", 1)
	runner := grove.NewGeneric("Runner", 1)
	payload := grove.KeyOf[Payload]()

	c := grove.New()
	_ = c.RegisterOpenGeneric(runner, grove.Template{
		Deps: []grove.Key{grove.ListOf(check.Of(grove.Param(0)))},
		New: func(typeArgs []grove.Key, args grove.Args) (any, error) {
			if typeArgs[0] != payload {
				return nil, fmt.Errorf("no runner for %v", typeArgs[0])
			}
			return &Runner[Payload]{Checks: grove.List[Check[Payload]](args, 0)}, nil
		},
	})
	_ = c.RegisterInstance(check.Of(payload), magicCheck{})
	_ = c.Build()

	r, err := grove.ResolveKey[*Runner[Payload]](c, runner.Of(payload))
	if err != nil {
		panic(err)
	}
	fmt.Println(len(r.Checks))
	fmt.Println(r.Run(Payload{Value: 999}))
	fmt.Println(r.Run(Payload{Value: 1}))
	// Output:
	// 1
	// true
	// false
}
