package main

import (
	"ephemeral-chat/internal"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
)

// Config of the viewer: only what is needed to read the store.
type Config struct {
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	MetricsPort    int    `env:"VIEWER_PORT,default=9091"`
}

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening while the server holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Start the debug server only, with an empty registry since no service runs here
	server := internal.NewDebugServer(logger, db, prometheus.NewRegistry(), config.MetricsPort)
	fmt.Printf("Viewer started at http://localhost:%d/inspect\n", config.MetricsPort)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Viewer stopped: %v", err)
	}
}
