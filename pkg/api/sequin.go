package api

import (
	"net/http"

	"github.com/edgeflare/etlm/pkg/httputil"
	mw "github.com/edgeflare/etlm/pkg/httputil/middleware"
	"github.com/edgeflare/etlm/pkg/kafka"
	"github.com/edgeflare/etlm/pkg/sequin"
	"go.uber.org/zap"
)

func (s *Server) listDatabases(w http.ResponseWriter, r *http.Request) {
	body, err := s.sequin.ListDatabases(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeUpstream(w, http.StatusOK, body)
}

func (s *Server) getDatabase(w http.ResponseWriter, r *http.Request) {
	body, err := s.sequin.GetDatabase(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeUpstream(w, http.StatusOK, body)
}

func (s *Server) createDatabase(w http.ResponseWriter, r *http.Request) {
	var in sequin.DatabaseCreate
	if err := httputil.BindOrError(r, w, &in); err != nil {
		return
	}
	if err := in.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	body, err := s.sequin.CreateDatabase(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeUpstream(w, http.StatusCreated, body)
}

func (s *Server) updateDatabase(w http.ResponseWriter, r *http.Request) {
	var in sequin.DatabaseUpdate
	if _, err := httputil.BindOptional(r, w, &in); err != nil {
		return
	}

	body, err := s.sequin.UpdateDatabase(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeUpstream(w, http.StatusOK, body)
}

func (s *Server) deleteDatabase(w http.ResponseWriter, r *http.Request) {
	body, err := s.sequin.DeleteDatabase(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeUpstream(w, http.StatusOK, body)
}

func (s *Server) testDatabaseConnection(w http.ResponseWriter, r *http.Request) {
	var in sequin.DatabaseCreate
	present, err := httputil.BindOptional(r, w, &in)
	if err != nil {
		return
	}

	var cfg *sequin.DatabaseCreate
	if present {
		if err := in.Validate(); err != nil {
			s.writeError(w, r, err)
			return
		}
		cfg = &in
	}

	body, err := s.sequin.TestDatabaseConnection(r.Context(), cfg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeUpstream(w, http.StatusOK, body)
}

func (s *Server) refreshTables(w http.ResponseWriter, r *http.Request) {
	body, err := s.sequin.RefreshTables(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeUpstream(w, http.StatusOK, body)
}

func (s *Server) listSinks(w http.ResponseWriter, r *http.Request) {
	body, err := s.sequin.ListSinks(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeUpstream(w, http.StatusOK, body)
}

func (s *Server) createSink(w http.ResponseWriter, r *http.Request) {
	var sink map[string]any
	if err := httputil.BindOrError(r, w, &sink); err != nil {
		return
	}
	if sink == nil {
		httputil.Error(w, http.StatusUnprocessableEntity, "sink must be a JSON object")
		return
	}

	if s.ensureTopics {
		s.ensureSinkTopic(r, sink)
	}

	body, err := s.sequin.CreateSink(r.Context(), sink)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeUpstream(w, http.StatusOK, body)
}

// ensureSinkTopic provisions the topic of a Kafka sink. Failures are logged and the sink is
// still forwarded upstream, which performs its own validation.
func (s *Server) ensureSinkTopic(r *http.Request, sink map[string]any) {
	topic, ok := kafka.SinkTopic(sink)
	if !ok {
		return
	}
	logger := mw.LoggerFromContext(r.Context(), s.logger)

	st, err := s.store.Get(r.Context())
	if err != nil {
		logger.Warn("failed to load settings for topic provisioning", zap.Error(err))
		return
	}
	if err := s.kafka.EnsureTopic(r.Context(), st.KafkaURL, topic); err != nil {
		logger.Warn("failed to ensure kafka topic", zap.String("topic", topic), zap.Error(err))
	}
}

func (s *Server) createBackfill(w http.ResponseWriter, r *http.Request) {
	var backfill map[string]any
	if err := httputil.BindOrError(r, w, &backfill); err != nil {
		return
	}
	if backfill == nil {
		httputil.Error(w, http.StatusUnprocessableEntity, "backfill must be a JSON object")
		return
	}

	body, err := s.sequin.CreateBackfill(r.Context(), r.PathValue("id"), backfill)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeUpstream(w, http.StatusOK, body)
}
