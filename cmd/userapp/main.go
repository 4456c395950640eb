// Command userapp demonstrates how to wire a small layered application with
// grove, including an open-generic check pipeline. Run it with:
//
//	go run ./cmd/userapp user 42
//	go run ./cmd/userapp check 999
//	go run ./cmd/userapp graph | dot -Tsvg > graph.svg
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ARTM2000/grove"
)

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

type Config struct {
	DatabaseURL string
	LogLevel    string
}

type Database struct {
	URL    string
	Logger *zap.Logger
}

func (db *Database) Query(q string) string {
	db.Logger.Info("query", zap.String("sql", q))
	return "row-result"
}

func (db *Database) Close() error {
	db.Logger.Info("closing database", zap.String("url", db.URL))
	return nil
}

type UserRepository struct {
	DB *Database
}

func (r *UserRepository) FindByID(id int) string {
	return r.DB.Query(fmt.Sprintf("SELECT * FROM users WHERE id = %d", id))
}

type UserService struct {
	Repo   *UserRepository
	Logger *zap.Logger
}

func (s *UserService) GetUser(id int) string {
	s.Logger.Info("looking up user", zap.Int("id", id))
	return s.Repo.FindByID(id)
}

// Request is the payload every Check[Request] inspects.
type Request struct {
	Value int
}

type Check[T any] interface {
	Test(v T) bool
}

type magicCheck struct{}

func (magicCheck) Test(r Request) bool { return r.Value == 999 }

type Runner[T any] struct {
	Checks []Check[T]
}

func (r *Runner[T]) Run(v T) error {
	for _, c := range r.Checks {
		if c.Test(v) {
			return nil
		}
	}
	return fmt.Errorf("no check accepted %v", v)
}

type Handler struct {
	Runner *Runner[Request]
}

// App is wired through struct tags instead of a constructor.
type App struct {
	Users *UserService `grove:"inject"`
	Log   *zap.Logger  `grove:"inject"`
}

var (
	checkOf  = grove.NewGeneric("Check", 1)
	runnerOf = grove.NewGeneric("Runner", 1)
)

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func NewConfig() *Config {
	return &Config{
		DatabaseURL: env("DATABASE_URL", "postgres://localhost:5432/app"),
		LogLevel:    env("LOG_LEVEL", "info"),
	}
}

func NewDatabase(cfg *Config, log *zap.Logger) *Database {
	return &Database{URL: cfg.DatabaseURL, Logger: log.Named("db")}
}

func NewUserRepository(db *Database) *UserRepository {
	return &UserRepository{DB: db}
}

func NewUserService(repo *UserRepository, log *zap.Logger) *UserService {
	return &UserService{Repo: repo, Logger: log.Named("users")}
}

func runnerTemplate() grove.Template {
	return grove.Template{
		Deps: []grove.Key{grove.ListOf(checkOf.Of(grove.Param(0)))},
		New: func(typeArgs []grove.Key, args grove.Args) (any, error) {
			if typeArgs[0] != grove.KeyOf[Request]() {
				return nil, fmt.Errorf("no runner for %v", typeArgs[0])
			}
			return &Runner[Request]{Checks: grove.List[Check[Request]](args, 0)}, nil
		},
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ---------------------------------------------------------------------------
// Wiring
// ---------------------------------------------------------------------------

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(env("LOG_LEVEL", "info")); err == nil {
		cfg.Level = lvl
	}
	return cfg.Build()
}

func newContainer(log *zap.Logger) (grove.Container, error) {
	c := grove.New(grove.WithLogger(log))

	for _, ctor := range []any{
		NewConfig,
		NewDatabase,
		NewUserRepository,
		NewUserService,
	} {
		if err := c.Provide(ctor); err != nil {
			return nil, err
		}
	}
	if err := c.RegisterInstance(grove.KeyOf[*zap.Logger](), log); err != nil {
		return nil, err
	}
	if err := c.RegisterOpenGeneric(runnerOf, runnerTemplate(), grove.Named("requests")); err != nil {
		return nil, err
	}
	if err := c.RegisterInstance(checkOf.Of(grove.KeyOf[Request]()), magicCheck{}); err != nil {
		return nil, err
	}
	if err := c.Register(grove.KeyOf[*Handler](), grove.Descriptor{
		Deps: []grove.Key{runnerOf.Of(grove.KeyOf[Request]()).Named("requests")},
		New: func(args grove.Args) (any, error) {
			return &Handler{Runner: grove.Arg[*Runner[Request]](args, 0)}, nil
		},
	}); err != nil {
		return nil, err
	}

	if err := c.Build(); err != nil {
		return nil, err
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

var (
	envFile string
	verbose bool
)

func withContainer(fn func(c grove.Container) error) error {
	// a missing env file is fine, the defaults apply
	_ = godotenv.Load(envFile)

	log, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	c, err := newContainer(log)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Shutdown(context.Background()); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	return fn(c)
}

var rootCmd = &cobra.Command{
	Use:          "userapp",
	Short:        "Example application wired with grove",
	SilenceUsage: true,
}

var userCmd = &cobra.Command{
	Use:   "user <id>",
	Short: "Look up a user through the service layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}
		return withContainer(func(c grove.Container) error {
			app, err := grove.Resolve[*App](c)
			if err != nil {
				return err
			}
			app.Log.Debug("resolved app")
			fmt.Fprintln(cmd.OutOrStdout(), "result:", app.Users.GetUser(id))
			return nil
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <value>",
	Short: "Run a request through the registered checks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[0], err)
		}
		return withContainer(func(c grove.Container) error {
			h, err := grove.Resolve[*Handler](c)
			if err != nil {
				return err
			}
			if err := h.Runner.Run(Request{Value: v}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "accepted")
			return nil
		})
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the dependency graph in Graphviz format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(c grove.Container) error {
			return c.WriteDOT(cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with DATABASE_URL and LOG_LEVEL overrides")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging")
	rootCmd.AddCommand(userCmd, checkCmd, graphCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
