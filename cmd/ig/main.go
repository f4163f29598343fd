package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/infragenius/infragenius/internal/config"
	"github.com/infragenius/infragenius/internal/deploy"
	"github.com/infragenius/infragenius/internal/e2b"
	"github.com/infragenius/infragenius/internal/executor"
	"github.com/infragenius/infragenius/internal/health"
	"github.com/infragenius/infragenius/internal/sandbox"
	"github.com/infragenius/infragenius/internal/tools"
	"github.com/infragenius/infragenius/internal/tui"
)

func main() {
	root := &cobra.Command{
		Use:   "ig",
		Short: "Infragenius — deploy applications into cloud sandboxes",
		RunE:  runTUI,
	}

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(toolCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// core wires the deployment stack from config plus environment keys.
type core struct {
	sandboxes *sandbox.Registry
	executor  *executor.Executor
	pipeline  *deploy.Pipeline
	health    *health.Verifier
}

func buildCore(log *slog.Logger) (*core, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg := config.Default()
	if config.Exists(dir) {
		cfg, err = config.Load(dir)
		if err != nil {
			return nil, err
		}
	}

	key, err := cfg.RequireEnv()
	if err != nil {
		return nil, err
	}

	client := e2b.NewClient(e2b.Config{
		APIKey:         key,
		Domain:         cfg.Sandbox.Domain,
		Template:       cfg.Sandbox.Template,
		Port:           cfg.Sandbox.Port,
		TimeoutSeconds: cfg.Sandbox.TimeoutSeconds,
		Logger:         log,
	})

	exec := executor.New(client)
	return &core{
		sandboxes: sandbox.NewRegistry(client),
		executor:  exec,
		pipeline:  deploy.NewPipeline(exec, cfg.Sandbox.Port),
		health:    health.NewVerifier(),
	}, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Keep client debug logs off the alternate screen.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	c, err := buildCore(log)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.sandboxes.Close(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "teardown: %v\n", err)
		}
	}()

	return tui.Run(tui.Deps{
		Sandboxes: c.sandboxes,
		Executor:  c.executor,
		Pipeline:  c.pipeline,
		Health:    c.health,
	})
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter infragenius.yaml in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}

			if config.Exists(dir) {
				fmt.Println("Infragenius already initialized in this directory.")
				return nil
			}

			if err := config.Save(dir, config.Default()); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}

			fmt.Printf("Wrote %s\n", config.File)
			fmt.Printf("Set %s and your model provider key, then run `ig` or `ig serve`.\n", config.ProvisionerKeyEnv)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the deployment tools over HTTP for an agent runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))

			c, err := buildCore(log)
			if err != nil {
				return err
			}

			registry := tools.NewRegistry(tools.Deployment(tools.Deps{
				Sandboxes: c.sandboxes,
				Executor:  c.executor,
				Pipeline:  c.pipeline,
				Health:    c.health,
			})...)

			srv := &http.Server{
				Addr:    listen,
				Handler: tools.NewServer(registry, log).Handler(),
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info("tool server listening", "addr", listen)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("server shutdown", "error", err)
			}
			if err := c.sandboxes.Close(shutdownCtx); err != nil {
				log.Error("sandbox teardown", "error", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:7700", "address to serve the tool API on")
	return cmd
}

func toolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tool <name> [key=value ...]",
		Short: "Invoke a single deployment tool from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			c, err := buildCore(log)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := c.sandboxes.Close(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "teardown: %v\n", err)
				}
			}()

			registry := tools.NewRegistry(tools.Deployment(tools.Deps{
				Sandboxes: c.sandboxes,
				Executor:  c.executor,
				Pipeline:  c.pipeline,
				Health:    c.health,
			})...)

			toolArgs := tools.Args{}
			for _, arg := range args[1:] {
				key, value, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("argument %q is not key=value", arg)
				}
				toolArgs[key] = value
			}

			out, err := registry.Dispatch(cmd.Context(), args[0], toolArgs)
			if out != "" {
				fmt.Println(out)
			}
			if err != nil {
				var verr *tools.ValidationError
				if errors.As(err, &verr) {
					return fmt.Errorf("invalid call: %s", verr.Reason)
				}
				return err
			}
			return nil
		},
	}
}
