package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"phototier/internal/blob"
	"phototier/internal/cache"
	"phototier/internal/config"
	"phototier/internal/fs/local"
	"phototier/internal/recon"
	"phototier/internal/store"
	"phototier/pkg/logger"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "phototier",
		Short:         "Reconciles photo assets across the local, relational and cloud storage tiers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to the yaml config file")

	root.AddCommand(
		importCmd(&configPath),
		exportCmd(&configPath),
		syncCmd(&configPath),
		verifyCmd(&configPath),
		runCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app bundles everything a command needs after wiring.
type app struct {
	cfg    *config.Config
	engine *recon.Engine
	close  func()
}

// setup loads .env and config, configures logging and connects the three
// tier gateways.
func setup(configPath string) (*app, error) {
	// Optional; credentials may come from the real environment instead.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logger.Setup(cfg.System.LogLevel, cfg.System.LogFile); err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	db, err := store.Open(cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	blobs, err := blob.NewS3Store(context.Background(), blob.S3Options{
		Bucket:          cfg.Storage.S3Bucket,
		Region:          cfg.Storage.S3Region,
		Endpoint:        cfg.Storage.S3Endpoint,
		AccessKeyID:     cfg.Storage.S3AccessKeyID,
		AccessKeySecret: cfg.Storage.S3AccessKeySecret,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	index, err := cache.OpenIndex(cfg.System.IndexPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open fingerprint index: %w", err)
	}

	engine := recon.NewEngine(&recon.Options{
		Records: db,
		Blobs:   blobs,
		Files:   local.NewAdapter(),
		Index:   index,
		Workers: cfg.Sync.MaxConcurrent,
	})

	return &app{
		cfg:    cfg,
		engine: engine,
		close: func() {
			index.Close()
			db.Close()
		},
	}, nil
}

func importCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import eligible files from the drop folder into the record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.engine.Import(cmd.Context(), recon.ImportOptions{
				Folder:         a.cfg.Import.Folder,
				ArchiveFolder:  a.cfg.Import.ArchiveFolder,
				Extensions:     a.cfg.Import.Extensions,
				DuplicateCheck: a.cfg.Import.DuplicateCheck,
				AutoArchive:    a.cfg.Import.AutoArchive,
				ImageSource:    a.cfg.Import.ImageSource,
			})
			if err != nil {
				return err
			}
			logItemErrors(res.Errors)
			return nil
		},
	}
}

func exportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write export-due records to the export folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.engine.Export(cmd.Context(), recon.ExportOptions{
				Folder:           a.cfg.Export.Folder,
				FilenameTemplate: a.cfg.Export.FilenameTemplate,
			})
			if err != nil {
				return err
			}
			logItemErrors(res.Errors)
			return nil
		},
	}
}

func syncCmd(configPath *string) *cobra.Command {
	var migrateAll bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upload sync-required payloads to the blob tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.engine.CloudSync(cmd.Context(), recon.SyncOptions{
				Policy:     recon.ParseTieringPolicy(a.cfg.Sync.Policy),
				MigrateAll: migrateAll,
			})
			if err != nil {
				return err
			}
			logItemErrors(res.Errors)
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrateAll, "all", false, "sweep every local-only record, not just flagged ones")
	return cmd
}

func verifyCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Audit records against the tier invariants",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.engine.Verify(cmd.Context())
			if err != nil {
				return err
			}
			logItemErrors(res.Errors)
			if res.Inconsistent > 0 || res.MissingBlobs > 0 {
				return fmt.Errorf("%d inconsistent record(s), %d missing blob(s)", res.Inconsistent, res.MissingBlobs)
			}
			return nil
		},
	}
}

// runCmd is the daemon mode: a cloud-sync pass on an interval with
// graceful shutdown on SIGINT/SIGTERM.
func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run periodic cloud-sync passes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			var wg sync.WaitGroup
			var running atomic.Bool

			runPass := func() {
				if !running.CompareAndSwap(false, true) {
					slog.Info("previous pass still running, skipping this tick")
					return
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer running.Store(false)

					res, err := a.engine.CloudSync(ctx, recon.SyncOptions{
						Policy: recon.ParseTieringPolicy(a.cfg.Sync.Policy),
					})
					if err != nil {
						if ctx.Err() != nil {
							slog.Warn("sync pass interrupted")
						} else {
							slog.Error("sync pass failed", "err", err)
						}
						return
					}
					logItemErrors(res.Errors)
				}()
			}

			slog.Info("daemon started", "interval", a.cfg.Sync.IntervalDuration)
			runPass()

			ticker := time.NewTicker(a.cfg.Sync.IntervalDuration)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					runPass()
				case sig := <-sigChan:
					slog.Info("shutting down", "signal", sig)
					cancel()
					wg.Wait()
					return nil
				case <-ctx.Done():
					wg.Wait()
					return nil
				}
			}
		},
	}
}

func logItemErrors(errs []recon.ItemError) {
	for _, ie := range errs {
		slog.Error("item failed", "code", ie.Code, "path", ie.Path, "err", ie.Err)
	}
}
