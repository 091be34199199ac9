package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fleetsync/fleetsync/internal/config"
	"github.com/fleetsync/fleetsync/internal/events"
	"github.com/fleetsync/fleetsync/internal/keylock"
	"github.com/fleetsync/fleetsync/internal/provider/aws"
	"github.com/fleetsync/fleetsync/internal/provider/kube"
	"github.com/fleetsync/fleetsync/internal/provider/paas"
	"github.com/fleetsync/fleetsync/internal/store"
	syncpkg "github.com/fleetsync/fleetsync/internal/sync"
)

// Serve returns the command running the reconciliation engine: the
// periodic scheduler, the event consumer and the metrics endpoint, until
// interrupted.
func Serve() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reconciliation engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "fleetsync.yaml", "Path to configuration file")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	log, err := buildLogger(debug)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting fleetsync", "version", version, "database", cfg.DatabasePath)

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open inventory store: %w", err)
	}
	defer st.Close()

	awsClient, err := aws.New(ctx, cfg.AWS.Region)
	if err != nil {
		return fmt.Errorf("failed to build aws client: %w", err)
	}
	kubeClient, err := kube.New(cfg.Kube.KubeconfigPath)
	if err != nil {
		return fmt.Errorf("failed to build kubernetes client: %w", err)
	}

	locks := keylock.New()
	ledger := syncpkg.NewLedger(st, locks, time.Now)
	retention := syncpkg.NewRetention(st, locks, cfg.MaxGenerations, time.Now)

	vm := syncpkg.NewVMHandler(st, locks, awsClient, log)
	ami := syncpkg.NewAMIHandler(st, locks, ledger, awsClient, log)
	codeDeploy := syncpkg.NewCodeDeployHandler(st, locks, ledger, awsClient, log)
	container := syncpkg.NewContainerHandler(st, locks, ledger, retention,
		kubeClient, awsClient, syncpkg.NoopTrigger{}, log)

	var apps syncpkg.AppQuerier
	if cfg.PaaS.Enabled() {
		apps = paas.NewClient(cfg.PaaS.Endpoint, cfg.PaaS.Token)
	}
	paasHandler := syncpkg.NewPaaSHandler(st, locks, ledger, apps, log)

	factory := syncpkg.NewFactory(vm, ami, codeDeploy, container, paasHandler)
	scheduler := syncpkg.NewScheduler(st, factory, cfg.SyncInterval, log)

	queue := events.NewQueue(cfg.QueueSize)
	consumer := events.NewConsumer(queue, st, factory, locks, log)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return scheduler.Run(ctx) })
	group.Go(func() error { return consumer.Run(ctx) })
	group.Go(func() error { return serveMetrics(ctx, cfg.MetricsAddr, log) })

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("fleetsync stopped")
	return nil
}

func buildLogger(debug bool) (logr.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if debug {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zl, err := zapCfg.Build()
	if err != nil {
		return logr.Logger{}, fmt.Errorf("failed to build logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

func serveMetrics(ctx context.Context, addr string, log logr.Logger) error {
	if addr == "" {
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.Info("metrics endpoint listening", "addr", addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
