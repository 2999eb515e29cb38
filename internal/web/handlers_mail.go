package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/roster/internal/audit"
	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/JonMunkholm/roster/internal/mail"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

type mailStatusResponse struct {
	BatchID string       `json:"batch_id"`
	Status  string       `json:"status"`
	Summary string       `json:"summary,omitempty"`
	Result  *mail.Result `json:"result,omitempty"`
}

// handleSendMail starts a batch over the selected rows and answers with
// its ID. Progress is polled through handleMailStatus.
func (s *Server) handleSendMail(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !s.mail.Configured() {
		respondError(w, r, mail.ErrRelayNotConfigured, http.StatusServiceUnavailable)
		return
	}

	headers, rows := sess.SelectedRows()
	batch, err := mail.BuildBatch(headers, rows, s.tmpl)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	id, err := s.mail.Start(sess.ID, batch)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	logging.FromContext(r.Context()).Info("mail batch queued",
		"session_id", sess.ID, "batch_id", id, "messages", len(batch.Messages))

	writeJSON(w, http.StatusAccepted, mailStatusResponse{BatchID: id, Status: "running"})
}

func (s *Server) handleMailStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "batchID")
	res, done, err := s.mail.Get(id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if !done {
		writeJSON(w, http.StatusOK, mailStatusResponse{BatchID: id, Status: "running"})
		return
	}
	writeJSON(w, http.StatusOK, mailStatusResponse{
		BatchID: id,
		Status:  "done",
		Summary: res.Summary(),
		Result:  &res,
	})
}

// handleMailHistory lists recorded batches, newest first.
func (s *Server) handleMailHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, r, errBadLimit, http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	batches, err := s.audit.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if batches == nil {
		batches = []audit.BatchSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
}
