// Command energylabel-logd is the ingestion server described by
// spec.md: an HTTP front door for telemetry runs, plus admin flags
// for bootstrapping and tearing down the warehouse.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"energylabel-log-server/internal/config"
	"energylabel-log-server/internal/httpapi"
	"energylabel-log-server/internal/schema"
	"energylabel-log-server/internal/warehouse"
)

func main() {
	root := &cobra.Command{
		Use:                "energylabel-logd",
		Short:              "Energy label telemetry ingestion server",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args)
		},
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Parse(args)
	if err != nil {
		switch e := err.(type) {
		case *config.UnknownFlagError:
			fmt.Fprintln(os.Stderr, e.Error())
			os.Exit(e.ExitCode())
		case *config.MissingValueError:
			fmt.Fprintln(os.Stderr, e.Error())
			os.Exit(e.ExitCode())
		default:
			// ConfigError: non-numeric --mariadb-port / --mariadb-conn-limit.
			// Spec.md §6: "fatal exception at startup".
			return err
		}
	}

	if cfg.Help {
		return cmd.Help()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wh, err := warehouse.New(ctx, cfg.WarehouseConfig())
	if err != nil {
		return err
	}
	defer wh.Close()

	switch {
	case cfg.MariaDBInit:
		return wh.Init(ctx)
	case cfg.MariaDBUnsafeDropTables:
		return wh.DropTables(ctx)
	case cfg.MariaDBInsertTestRun:
		return insertTestRuns(ctx, wh)
	default:
		return serve(ctx, cfg, wh)
	}
}

// insertTestRuns inserts the two fixture records spec.md §6 requires
// for --mariadb-insert-test-run.
func insertTestRuns(ctx context.Context, wh *warehouse.Warehouse) error {
	msg := "fixture run"
	records := []*schema.Record{
		{
			Score: 1, StatusCode: 200, ErrorMessage: &msg,
			PluginVersion: "0.0.1", PluginName: "TestPlugin",
			ExtensionVersion: "0.0.1",
			BrowserVersion:   "1.0", BrowserName: "TestBrowser",
			Path: "/test", URL: "https://example.com",
		},
		{
			Score: 2, StatusCode: 200,
			PluginVersion: "0.0.1", PluginName: "TestPlugin",
			ExtensionVersion: "0.0.1",
			BrowserVersion:   "1.0", BrowserName: "TestBrowser",
			Path: "/test2", URL: "https://example.com",
		},
	}
	return wh.InsertRuns(ctx, records)
}

func serve(ctx context.Context, cfg *config.Config, wh *warehouse.Warehouse) error {
	api := httpapi.New(wh, slog.Default())
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	srv := &http.Server{Addr: addr, Handler: api.Router()}
	slog.Info("listening", "addr", addr)

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
