package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hylla/taskdash/internal/adapters/server"
	"github.com/hylla/taskdash/internal/adapters/server/common"
	"github.com/hylla/taskdash/internal/config"
	"github.com/hylla/taskdash/internal/domain"
	"github.com/hylla/taskdash/internal/tui"
	"github.com/spf13/cobra"
)

// runTUI runs the dashboard program loop.
func runTUI(ctx context.Context, opts *rootOptions) error {
	env, err := opts.resolve("tui")
	if err != nil {
		return err
	}
	defer env.close()
	// Runtime logs stay in the dev-file sink while the dashboard owns the terminal.
	env.logger.SetConsoleEnabled(false)

	source, closeSource, err := env.openSource(ctx, true)
	if err != nil {
		env.logger.Error("table-data source unavailable", "err", err)
		return err
	}
	defer closeSource()

	m := tui.NewModel(tui.Dependencies{
		Fetcher:   source,
		Performer: source,
		Logger:    env.logger.Sink(),
		Config:    dashboardConfig(env.cfg),
	}, tui.WithPageSize(env.cfg.Dashboard.PageSize))
	env.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		env.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	env.logger.Info("command flow complete", "command", "tui")
	return nil
}

// newServeCmd builds the `serve` command.
func newServeCmd(opts *rootOptions) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the table-data REST API, MCP tools, health, and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.resolve("serve")
			if err != nil {
				return err
			}
			defer env.close()
			svc, repo, err := env.openService()
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := repo.Close(); closeErr != nil {
					env.logger.Warn("sqlite close failed", "db_path", env.cfg.Database.Path, "err", closeErr)
				}
			}()

			if bind == "" {
				bind = env.cfg.Server.HTTPBind
			}
			adapter := common.NewAppServiceAdapter(svc)
			env.logger.Info("starting server", "bind", bind, "api", env.cfg.Server.APIEndpoint, "mcp", env.cfg.Server.MCPEndpoint)
			err = server.Run(cmd.Context(), server.Config{
				HTTPBind:        bind,
				APIEndpoint:     env.cfg.Server.APIEndpoint,
				MCPEndpoint:     env.cfg.Server.MCPEndpoint,
				MetricsEndpoint: env.cfg.Server.MetricsEndpoint,
				ServerName:      opts.appName,
				ServerVersion:   version,
			}, server.Dependencies{
				Tables:  adapter,
				Configs: adapter,
				Ready:   repo,
				Logger:  env.logger.Sink(),
			})
			if err != nil {
				env.logger.Error("server terminated with error", "err", err)
				return fmt.Errorf("run server: %w", err)
			}
			env.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "http", "", "listen address (defaults to server.http_bind)")
	return cmd
}

// newSeedCmd builds the `seed` command.
func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Store the demo screen config and work items in an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.resolve("seed")
			if err != nil {
				return err
			}
			defer env.close()
			svc, repo, err := env.openService()
			if err != nil {
				return err
			}
			defer func() {
				_ = repo.Close()
			}()
			seeded, err := svc.Seed(cmd.Context())
			if err != nil {
				return fmt.Errorf("seed demo data: %w", err)
			}
			if !seeded {
				_, _ = fmt.Fprintln(opts.stdout, "database already has work items; nothing seeded")
				return nil
			}
			_, _ = fmt.Fprintf(opts.stdout, "seeded demo data into %s\n", env.cfg.Database.Path)
			return nil
		},
	}
}

// newFetchCmd builds the `fetch` command.
func newFetchCmd(opts *rootOptions) *cobra.Command {
	var grouped bool
	cmd := &cobra.Command{
		Use:   "fetch <key>",
		Short: "Print one section or group payload as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.resolve("fetch")
			if err != nil {
				return err
			}
			defer env.close()
			source, closeSource, err := env.openSource(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeSource()

			var resp domain.FetchResponse
			if grouped {
				resp, err = source.FetchGrouped(cmd.Context(), args[0])
			} else {
				resp, err = source.FetchSection(cmd.Context(), args[0])
			}
			if err != nil {
				return fmt.Errorf("fetch %q: %w", args[0], err)
			}
			return writeJSON(opts.stdout, resp)
		},
	}
	cmd.Flags().BoolVar(&grouped, "group", false, "treat key as a group name")
	return cmd
}

// newActionCmd builds the `action` command.
func newActionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "action <work-item-id> <approve|reject|claim|release>",
		Short: "Apply one workflow action to a work item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := domain.ParseWorkflowAction(args[1])
			if err != nil {
				return fmt.Errorf("parse action %q: %w", args[1], err)
			}
			env, err := opts.resolve("action")
			if err != nil {
				return err
			}
			defer env.close()
			source, closeSource, err := env.openSource(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeSource()

			res, err := source.PerformAction(cmd.Context(), args[0], action)
			if err != nil {
				return fmt.Errorf("apply %s to %q: %w", action, args[0], err)
			}
			return writeJSON(opts.stdout, res)
		},
	}
}

// newInitCmd builds the `init` command.
func newInitCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file at the resolved config path",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			if err := config.Write(paths.ConfigPath, config.Default(paths.DBPath), force); err != nil {
				if errors.Is(err, os.ErrExist) {
					return fmt.Errorf("config already exists at %s (use --force to overwrite)", paths.ConfigPath)
				}
				return fmt.Errorf("write config: %w", err)
			}
			_, _ = fmt.Fprintf(opts.stdout, "wrote config to %s\n", paths.ConfigPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

// newPathsCmd builds the `paths` command.
func newPathsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data, and database paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(opts.stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(opts.stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(opts.stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(opts.stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(opts.stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(opts.stdout, "log: %s\n", paths.LogPath)
			return nil
		},
	}
}

// writeJSON writes one indented JSON document.
func writeJSON(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	encoded = append(encoded, '\n')
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
