package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/hylla/taskdash/internal/adapters/server/common"
	"github.com/hylla/taskdash/internal/adapters/storage/sqlite"
	"github.com/hylla/taskdash/internal/adapters/tabledata/httpclient"
	"github.com/hylla/taskdash/internal/adapters/tabledata/local"
	"github.com/hylla/taskdash/internal/app"
	"github.com/hylla/taskdash/internal/config"
	"github.com/hylla/taskdash/internal/dashboard"
	"github.com/hylla/taskdash/internal/platform"
	"github.com/spf13/cobra"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// main handles main.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := fang.Execute(ctx, root, fang.WithVersion(version)); err != nil {
		stop()
		os.Exit(1)
	}
}

// run executes the command tree against explicit arguments and writers.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// rootOptions holds persistent flag values shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	stdout     io.Writer
	stderr     io.Writer
}

// runtimeEnv is the resolved state a command runs with.
type runtimeEnv struct {
	opts       *rootOptions
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
}

// tableSource is the table-data collaborator behind the dashboard.
type tableSource interface {
	dashboard.Fetcher
	dashboard.ActionPerformer
}

// newRootCmd builds the command tree.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	opts := &rootOptions{stdout: stdout, stderr: stderr}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TASKDASH_DEV_MODE"); ok {
		defaultDevMode = envDev
	}

	cmd := &cobra.Command{
		Use:           "taskdash",
		Short:         "Task dashboard TUI and table-data server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		Example: strings.TrimSpace(`
  # Open the dashboard
  taskdash

  # Serve the table-data API, MCP tools, and metrics
  taskdash serve --http 127.0.0.1:8080

  # Print one section payload
  taskdash fetch MY_WORK
`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML (env TASKDASH_CONFIG)")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database (env TASKDASH_DB_PATH)")
	flags.StringVar(&opts.appName, "app", envOr("TASKDASH_APP_NAME", platform.DefaultAppName), "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newFetchCmd(opts))
	cmd.AddCommand(newActionCmd(opts))
	cmd.AddCommand(newInitCmd(opts))
	cmd.AddCommand(newPathsCmd(opts))
	return cmd
}

// resolvePaths resolves platform paths and applies flag and env overrides.
func (o *rootOptions) resolvePaths() (platform.Paths, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
	if err != nil {
		return platform.Paths{}, err
	}
	configPath := o.configPath
	if strings.TrimSpace(configPath) == "" {
		configPath = os.Getenv("TASKDASH_CONFIG")
	}
	dbPath := o.dbPath
	if strings.TrimSpace(dbPath) == "" {
		dbPath = os.Getenv("TASKDASH_DB_PATH")
	}
	return paths.Override(configPath, dbPath), nil
}

// resolve loads config and configures the runtime logger for one command.
func (o *rootOptions) resolve(command string) (*runtimeEnv, error) {
	paths, err := o.resolvePaths()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(paths.ConfigPath, config.Default(paths.DBPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", paths.ConfigPath, err)
	}
	if strings.TrimSpace(o.dbPath) != "" || strings.TrimSpace(os.Getenv("TASKDASH_DB_PATH")) != "" {
		cfg.Database.Path = paths.DBPath
	}

	logger, err := newRuntimeLogger(o.stderr, o.appName, o.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	logger.Info("startup configuration resolved", "app", o.appName, "dev_mode", o.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", paths.ConfigPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}
	return &runtimeEnv{
		opts:       o,
		paths:      paths,
		configPath: paths.ConfigPath,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// close releases the runtime logger.
func (e *runtimeEnv) close() {
	if err := e.logger.Close(); err != nil && e.logger.shouldLogToSink(e.logger.consoleSink) {
		_, _ = fmt.Fprintf(e.opts.stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// openService opens the sqlite repository and builds the application service over it.
func (e *runtimeEnv) openService() (*app.Service, *sqlite.Repository, error) {
	e.logger.Info("opening sqlite repository", "db_path", e.cfg.Database.Path)
	repo, err := sqlite.Open(e.cfg.Database.Path)
	if err != nil {
		e.logger.Error("sqlite open failed", "db_path", e.cfg.Database.Path, "err", err)
		return nil, nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		MyWorkKey:          e.cfg.Dashboard.MyWorkKey,
		GroupedSectionType: e.cfg.Dashboard.GroupedSectionType,
		Assignee:           e.cfg.Dashboard.Assignee,
	})
	e.logger.Debug("application service initialized", "assignee", e.cfg.Dashboard.Assignee)
	return svc, repo, nil
}

// openSource returns the remote client when a backend is configured, otherwise the local database.
// Local sources seed the demo dataset into an empty store when seed is true.
func (e *runtimeEnv) openSource(ctx context.Context, seed bool) (tableSource, func(), error) {
	if baseURL := strings.TrimSpace(e.cfg.Backend.BaseURL); baseURL != "" {
		timeout, err := e.cfg.Backend.RequestTimeout()
		if err != nil {
			return nil, nil, err
		}
		client, err := httpclient.New(httpclient.Config{BaseURL: baseURL, Timeout: timeout})
		if err != nil {
			return nil, nil, fmt.Errorf("configure backend client: %w", err)
		}
		e.logger.Info("using remote table-data backend", "base_url", baseURL, "timeout", timeout)
		return client, func() {}, nil
	}

	svc, repo, err := e.openService()
	if err != nil {
		return nil, nil, err
	}
	closeRepo := func() {
		if closeErr := repo.Close(); closeErr != nil {
			e.logger.Warn("sqlite close failed", "db_path", e.cfg.Database.Path, "err", closeErr)
		}
	}
	if seed {
		seeded, err := svc.Seed(ctx)
		if err != nil {
			closeRepo()
			return nil, nil, fmt.Errorf("seed demo data: %w", err)
		}
		if seeded {
			e.logger.Info("seeded demo data", "db_path", e.cfg.Database.Path)
		}
	}
	return local.New(common.NewAppServiceAdapter(svc)), closeRepo, nil
}

// dashboardConfig maps persisted config into controller settings.
func dashboardConfig(cfg config.Config) dashboard.Config {
	return dashboard.Config{
		MyWorkKey:          cfg.Dashboard.MyWorkKey,
		GroupedSectionType: cfg.Dashboard.GroupedSectionType,
		DefaultTitle:       cfg.Dashboard.DefaultTitle,
	}
}
