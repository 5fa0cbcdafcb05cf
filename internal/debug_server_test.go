package internal

import (
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/infrastructure/storage"
	"ephemeral-chat/observability"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestDebugServer(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	req.NoError(err)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	metrics.MessagesRecalled.Inc()
	req.NoError(storage.NewUserRepository(db, log).SaveUser(chat.User{ID: uuid.NewString(), Username: "alice"}))

	handler := NewDebugServer(log, db, registry, 0).Handler

	// Given the store is open
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	req.Equal(http.StatusOK, rec.Code)

	// Then metrics are exposed
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	req.Equal(http.StatusOK, rec.Code)
	req.Contains(rec.Body.String(), "ephemeral_chat_messages_recalled_total 1")

	// And stored users can be inspected
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inspect?prefix=user:", nil))
	req.Equal(http.StatusOK, rec.Code)
	req.Contains(rec.Body.String(), "alice")

	// When the store is closed the health check fails
	req.NoError(db.Close())
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	req.Equal(http.StatusServiceUnavailable, rec.Code)
}
