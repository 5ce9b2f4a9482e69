package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/harrisonrobin/taskbridge/pkg/asana"
	"github.com/harrisonrobin/taskbridge/pkg/auth"
	"github.com/harrisonrobin/taskbridge/pkg/config"
	"github.com/harrisonrobin/taskbridge/pkg/google"
	"github.com/harrisonrobin/taskbridge/pkg/store"
	"github.com/harrisonrobin/taskbridge/pkg/sync"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskbridge",
		Short: "Bidirectional sync between an Asana project and a Google Tasks list",
		Long: `taskbridge keeps a single Asana project and a single Google Tasks list
consistent: tasks created, edited, completed, or deleted on one side are
mirrored to the other on a fixed polling interval.

Run it once with 'taskbridge auth' to complete the Google consent flow,
then leave the default command running as a background process.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(cmd.Context())
		},
	}

	onceCmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single sync cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context())
		},
	}

	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Tasks, replacing any cached token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts := auth.Options{
				ClientSecretPath: cfg.ClientSecretPath,
				TokenCachePath:   cfg.TokenCachePath,
			}
			if err := auth.Authorize(cmd.Context(), opts); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			fmt.Printf("Authentication successful! Token saved to %s\n", cfg.TokenCachePath)
			return nil
		},
	}

	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(authCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runLoop(ctx context.Context) error {
	engine, cfg, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	log.Printf("Starting sync loop: project %s <-> tasklist %q every %s",
		cfg.AsanaProjectGID, cfg.GoogleTasklist, cfg.Interval)
	return sync.NewRunner(engine, cfg.Interval).Run(ctx)
}

func runOnce(ctx context.Context) error {
	engine, _, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	report, err := engine.RunCycle(ctx)
	if report != nil {
		log.Printf("Sync cycle: %s", report.Summary())
	}
	return err
}

func buildEngine(ctx context.Context) (*sync.Engine, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	httpClient, err := auth.NewClient(ctx, auth.Options{
		ClientSecretPath: cfg.ClientSecretPath,
		TokenCachePath:   cfg.TokenCachePath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("google authentication failed: %w", err)
	}

	googleClient, err := google.NewClient(ctx, httpClient, cfg.GoogleTasklist)
	if err != nil {
		return nil, nil, err
	}
	asanaClient := asana.NewClient(cfg.AsanaToken, cfg.AsanaProjectGID)
	correlations := store.New(cfg.StatePath)

	return sync.NewEngine(asanaClient, googleClient, correlations), cfg, nil
}
