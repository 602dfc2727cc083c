// cmd/dispatcherd/main.go
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"review-dispatch/internal/config"
	"review-dispatch/internal/dispatcher"
	"review-dispatch/internal/domain"
	"review-dispatch/internal/handlerregistry"
	"review-dispatch/internal/handlers"
	"review-dispatch/internal/infra/etcd"
	"review-dispatch/internal/infra/httpapi"
	"review-dispatch/internal/metrics"
	"review-dispatch/internal/partition"
	"review-dispatch/internal/publisher"
	"review-dispatch/internal/tracing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// corsMiddleware wraps an http.Handler with CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	instanceID := uuid.New().String()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("instance_id", instanceID)
	slog.SetDefault(logger)

	tracerShutdown, err := tracing.InitTracer("review-dispatch")
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tracerShutdown(context.Background()); err != nil {
			log.Printf("failed to shutdown tracer: %v", err)
		}
	}()

	log.Println("starting review dispatch service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupGracefulShutdown(cancel)

	etcdClient, err := etcd.NewClient(cfg.EtcdEndpoints, cfg.EtcdTimeout)
	if err != nil {
		log.Fatalf("failed to create etcd client: %v", err)
	}
	defer etcdClient.Close()
	log.Println("connected to etcd.")

	queueRepo := etcd.NewQueueRepository(etcdClient, cfg.Polling.BatchSize, logger)
	execRepo := etcd.NewExecutionRepository(etcdClient, logger)

	partitionRegistry := partition.New(logger)
	janitor, err := partition.NewJanitor(partitionRegistry, cfg.Dispatcher.LockSweepInterval, cfg.Dispatcher.LockTTL(), logger)
	if err != nil {
		log.Fatalf("failed to create partition janitor: %v", err)
	}
	janitor.Start()
	defer janitor.Stop()

	handlerRegistry := handlerregistry.MustNew(
		handlers.NewDefaultHandler(logger),
		handlers.NewTypeAHandler(logger),
		handlers.NewTypeBHandler(logger),
	)

	partitionKeyOf := func(item *domain.WorkItem) string { return item.PartitionKey() }

	pollingPub, err := publisher.NewPolling[*domain.WorkItem](
		func(ctx context.Context) ([]*domain.WorkItem, error) {
			return queueRepo.FetchBatch(ctx)
		},
		publisher.Config[*domain.WorkItem]{
			PollInterval:    cfg.Polling.Interval(),
			PartitionKeyOf:  partitionKeyOf,
			Locker:          partitionRegistry,
			ContinueOnError: cfg.Polling.ContinueOnError,
			ErrorObserver: func(err error) {
				logger.Error("polling fetch failed", "error", err)
			},
		},
		logger,
	)
	if err != nil {
		log.Fatalf("failed to create polling publisher: %v", err)
	}

	pushPub, err := publisher.NewPush[*domain.WorkItem](
		publisher.PushConfig[*domain.WorkItem]{
			PartitionKeyOf: partitionKeyOf,
			Locker:         partitionRegistry,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("failed to create push publisher: %v", err)
	}

	disp, err := dispatcher.New[*domain.WorkItem](
		dispatcher.Config[*domain.WorkItem]{
			AccountIDOf: func(item *domain.WorkItem) string { return item.AccountID },
			IsDownload:  func(item *domain.WorkItem) bool { return item.Operation.IsDownload() },
			Process: func(ctx context.Context, item *domain.WorkItem) error {
				handler, err := handlerRegistry.Lookup(item.TypeTag)
				if err != nil {
					return err
				}
				if err := handler.Handle(ctx, item.Payload, item.ClientID); err != nil {
					return err
				}
				return queueRepo.MarkProcessed(ctx, item.ID)
			},
			MaxConcurrency:  cfg.Dispatcher.MaxConcurrency,
			ContinueOnError: cfg.Dispatcher.ContinueOnError,
			PreObserver: func(item *domain.WorkItem) {
				metrics.InFlightHandlerInvocations.Inc()
			},
			SuccessObserver: func(item *domain.WorkItem) {
				metrics.InFlightHandlerInvocations.Dec()
				metrics.ItemsProcessedTotal.WithLabelValues(item.TypeTag, "success").Inc()
				recordExecution(rootCtx, execRepo, item, domain.ExecutionStatusSuccess, "", logger)
			},
			ErrorObserver: func(item *domain.WorkItem, err error) {
				metrics.InFlightHandlerInvocations.Dec()
				metrics.ItemsProcessedTotal.WithLabelValues(item.TypeTag, "failed").Inc()
				recordExecution(rootCtx, execRepo, item, domain.ExecutionStatusFailed, err.Error(), logger)
			},
		},
		logger,
	)
	if err != nil {
		log.Fatalf("failed to create dispatcher: %v", err)
	}

	pollingStream := pollingPub.Subscribe(rootCtx)
	pushStream := pushPub.Subscribe()
	disp.StartAsync(rootCtx, pollingStream, pushStream)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	httpapi.NewWebhookHandler(pushPub, logger).RegisterRoutes(mux)
	httpapi.NewStatsHandler(partitionRegistry, handlerRegistry).RegisterRoutes(mux)
	httpapi.NewHistoryHandler(execRepo, logger).RegisterRoutes(mux)

	log.Printf("starting HTTP API server on %s", cfg.HttpListenAddr)
	server := &http.Server{
		Addr:    cfg.HttpListenAddr,
		Handler: corsMiddleware(mux),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("shutting down application gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server shutdown failed: %v", err)
	}

	log.Println("application shut down.")
}

func recordExecution(ctx context.Context, execRepo domain.ExecutionRepository, item *domain.WorkItem, status domain.ExecutionStatus, errMsg string, logger *slog.Logger) {
	record := &domain.ExecutionRecord{
		ID:           item.ID,
		PartitionKey: item.PartitionKey(),
		ClientID:     item.ClientID,
		AccountID:    item.AccountID,
		TypeTag:      item.TypeTag,
		EndTime:      time.Now(),
		Status:       status,
		Error:        errMsg,
	}
	if err := execRepo.Save(ctx, record); err != nil {
		logger.Error("failed to save execution record", "item_id", item.ID, "error", err)
	}
}

func setupGracefulShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("received signal %v. initiating graceful shutdown...", sig)
		cancel()
	}()
}
