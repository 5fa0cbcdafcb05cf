package main

import (
	"context"
	"ephemeral-chat/auth"
	"ephemeral-chat/infrastructure/blob"
	"ephemeral-chat/infrastructure/grpc/server"
	"ephemeral-chat/infrastructure/storage"
	"ephemeral-chat/internal"
	"ephemeral-chat/observability"
	pb "ephemeral-chat/proto/chat"
	"ephemeral-chat/runtime"
	"ephemeral-chat/runtime/workers"
	"ephemeral-chat/services"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Returning instead of exiting lets every defer (database close first) run before the process ends.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	var schedule workers.Schedule = workers.IntervalSchedule{Every: config.CleanupInterval}
	if config.CleanupCron != "" {
		if schedule, err = workers.NewCronSchedule(config.CleanupCron); err != nil {
			return exitConfig, err
		}
	}

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blobs, err := blob.NewLocalStore(log, config.UploadDir, config.MaxUploadBytes)
	if err != nil {
		return exitRuntime, fmt.Errorf("upload directory: %w", err)
	}

	// 3. Repositories, hub and services
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	messageRepository := storage.NewMessageRepository(db, log)
	conversationRepository := storage.NewConversationRepository(db, log)
	userRepository := storage.NewUserRepository(db, log)
	hub := runtime.NewHub(log, metrics, config.BufferSize)

	messageService := services.NewMessageService(log, messageRepository, conversationRepository, userRepository, blobs, hub, metrics)
	conversationService := services.NewConversationService(log, conversationRepository, messageRepository, userRepository)
	groupService := services.NewGroupService(log, conversationRepository, blobs)
	cleanupService := services.NewCleanupService(log, messageRepository, metrics)

	// 4. Background workers
	cleanupTask := workers.NewPeriodicTask("cleanup_sweep", log, schedule, func(ctx context.Context, now time.Time) error {
		_, err := cleanupService.Sweep(ctx, now)
		return err
	})
	compactionTask := workers.NewPeriodicTask("compaction", log, workers.IntervalSchedule{Every: config.CompactionInterval},
		func(ctx context.Context, _ time.Time) error {
			_, err := cleanupService.Compact(ctx)
			return err
		})
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	supervisor.Add(workers.NewEventFanout(log, hub, metrics, config.SinkTimeout))

	// 5. gRPC server
	authenticator := auth.NewJWTAuthenticator(config.JWTSecret)
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(auth.UnaryInterceptor(authenticator)),
		grpc.StreamInterceptor(auth.StreamInterceptor(authenticator)),
	)
	pb.RegisterChatServiceServer(grpcServer, server.NewChatServer(log,
		messageService, conversationService, groupService, hub,
		config.ConnectionBufferSize, config.TypingRatePerSecond, config.TypingBurst))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	debugServer := internal.NewDebugServer(log, db, prometheus.DefaultGatherer, config.MetricsPort)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting gRPC server", "address", address, "at", time.Now().UTC())
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("Starting metrics server", "address", debugServer.Addr)
		if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		supervisor.Run(ctx)
		return nil
	})
	cleanupTask.Start(ctx)
	compactionTask.Start(ctx)

	// 7. Wait for a signal or the first failure, then stop everything
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down gracefully...")
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		// Open channels never end on their own.
		select {
		case <-stopped:
		case <-time.After(shutdownTimeout):
			grpcServer.Stop()
		}
		supervisor.Stop()
		// An in-flight sweep completes before Stop returns.
		cleanupTask.Stop()
		compactionTask.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return debugServer.Shutdown(shutdownCtx)
	})

	if err = g.Wait(); err != nil {
		return exitRuntime, err
	}
	log.Info("Program stopped cleanly", slog.Int("exit_code", exitOK))
	return exitOK, nil
}
