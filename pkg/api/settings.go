package api

import (
	"net/http"
	"time"

	"github.com/edgeflare/etlm/pkg/httputil"
	mw "github.com/edgeflare/etlm/pkg/httputil/middleware"
	"github.com/edgeflare/etlm/pkg/settings"
	"go.uber.org/zap"
)

// ConnectionStatus is the result of a reachability check.
type ConnectionStatus struct {
	CheckedAt time.Time `json:"checked_at"`
	Connected bool      `json:"connected"`
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, st)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if _, err := httputil.BindOptional(r, w, &patch); err != nil {
		return
	}
	if err := patch.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	st, err := s.store.Upsert(r.Context(), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, st)
}

func (s *Server) testSequinConnection(w http.ResponseWriter, r *http.Request) {
	ok := s.sequin.Ping(r.Context())
	s.recordReachability(r, settings.Patch{SequinReachable: &ok})
	httputil.JSON(w, http.StatusOK, ConnectionStatus{Connected: ok, CheckedAt: s.now().UTC().Truncate(time.Second)})
}

func (s *Server) testKafkaConnection(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok := s.kafka.Ping(r.Context(), st.KafkaURL)
	s.recordReachability(r, settings.Patch{KafkaReachable: &ok})
	httputil.JSON(w, http.StatusOK, ConnectionStatus{Connected: ok, CheckedAt: s.now().UTC().Truncate(time.Second)})
}

// recordReachability stores a check result. Failure to persist does not change the response.
func (s *Server) recordReachability(r *http.Request, p settings.Patch) {
	if err := settings.RecordReachability(r.Context(), s.store, p); err != nil {
		mw.LoggerFromContext(r.Context(), s.logger).Warn("failed to record reachability", zap.Error(err))
	}
}
