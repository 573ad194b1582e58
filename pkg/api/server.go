// Package api exposes the settings and upstream proxy endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/edgeflare/etlm/pkg/httputil"
	mw "github.com/edgeflare/etlm/pkg/httputil/middleware"
	"github.com/edgeflare/etlm/pkg/kafka"
	"github.com/edgeflare/etlm/pkg/sequin"
	"github.com/edgeflare/etlm/pkg/settings"
	"go.uber.org/zap"
)

const WelcomeMessage = "Welcome to ETL Manager Backend"

// KafkaChecker is the subset of kafka.Client used by the handlers.
type KafkaChecker interface {
	Ping(ctx context.Context, addr string) bool
	EnsureTopic(ctx context.Context, addr, topic string) error
}

var _ KafkaChecker = (*kafka.Client)(nil)

// Server holds handler dependencies.
type Server struct {
	store        settings.Store
	sequin       *sequin.Client
	kafka        KafkaChecker
	logger       *zap.Logger
	ensureTopics bool
	now          func() time.Time
}

type Options struct {
	Logger *zap.Logger
	// EnsureTopics creates the Kafka topic of a sink before it is registered upstream.
	EnsureTopics bool
}

func NewServer(store settings.Store, sequinClient *sequin.Client, kafkaClient KafkaChecker, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:        store,
		sequin:       sequinClient,
		kafka:        kafkaClient,
		logger:       logger,
		ensureTopics: opts.EnsureTopics,
		now:          time.Now,
	}
}

// Register mounts the welcome route at the root and every other route under prefix.
func (s *Server) Register(r *httputil.Router, prefix string) {
	r.HandleFunc("GET /{$}", s.welcome)

	v1 := r.Group(prefix)

	v1.HandleFunc("GET /settings", s.getSettings)
	v1.HandleFunc("GET /settings/{$}", s.getSettings)
	v1.HandleFunc("POST /settings", s.updateSettings)
	v1.HandleFunc("POST /settings/{$}", s.updateSettings)
	v1.HandleFunc("POST /settings/test-connection", s.testSequinConnection)
	v1.HandleFunc("POST /settings/test-kafka", s.testKafkaConnection)

	v1.HandleFunc("GET /sequin/databases", s.listDatabases)
	v1.HandleFunc("GET /sequin/databases/{$}", s.listDatabases)
	v1.HandleFunc("POST /sequin/databases", s.createDatabase)
	v1.HandleFunc("POST /sequin/databases/{$}", s.createDatabase)
	v1.HandleFunc("POST /sequin/databases/test-connection", s.testDatabaseConnection)
	v1.HandleFunc("GET /sequin/databases/{id}", s.getDatabase)
	v1.HandleFunc("PUT /sequin/databases/{id}", s.updateDatabase)
	v1.HandleFunc("DELETE /sequin/databases/{id}", s.deleteDatabase)
	v1.HandleFunc("POST /sequin/databases/{id}/refresh-tables", s.refreshTables)

	v1.HandleFunc("GET /sequin/sinks", s.listSinks)
	v1.HandleFunc("GET /sequin/sinks/{$}", s.listSinks)
	v1.HandleFunc("POST /sequin/sinks", s.createSink)
	v1.HandleFunc("POST /sequin/sinks/{$}", s.createSink)
	v1.HandleFunc("POST /sequin/sinks/{id}/backfills", s.createBackfill)
}

func (s *Server) welcome(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"message": WelcomeMessage})
}

// writeError maps err to a status code and logs server-side failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := sequin.StatusCode(err)
	if errors.Is(err, sequin.ErrValidation) || errors.Is(err, settings.ErrInvalidPatch) {
		code = http.StatusUnprocessableEntity
	}

	logger := mw.LoggerFromContext(r.Context(), s.logger)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", code), zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.Int("status", code), zap.Error(err))
	}
	httputil.Error(w, code, err.Error())
}

// writeUpstream relays an upstream result; an empty body becomes 204.
func writeUpstream(w http.ResponseWriter, status int, body json.RawMessage) {
	if len(body) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.RawJSON(w, status, body)
}
