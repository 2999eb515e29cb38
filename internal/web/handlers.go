package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/logging"
	"github.com/JonMunkholm/roster/internal/sheet"
	"github.com/JonMunkholm/roster/internal/web/templates"
)

// SessionCookie holds the browser's session ID for the HTML page.
const SessionCookie = "roster_session"

// rowView is one table row in the JSON snapshot.
type rowView struct {
	ID       core.RowID            `json:"id"`
	Selected bool                  `json:"selected"`
	Cells    map[string]core.Value `json:"cells"`
}

// snapshotResponse is the JSON form of core.Snapshot.
type snapshotResponse struct {
	SessionID  string             `json:"session_id"`
	FileName   string             `json:"file_name,omitempty"`
	Headers    []string           `json:"headers"`
	Rows       []rowView          `json:"rows"`
	View       core.ViewState     `json:"view"`
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
	TotalRows  int                `json:"total_rows"`
	HasPrev    bool               `json:"has_prev"`
	HasNext    bool               `json:"has_next"`
	PageInfo   string             `json:"page_info"`
	SelectAll  core.Tristate      `json:"select_all"`
	Selected   int                `json:"selected_count"`
	Options    core.FilterOptions `json:"options"`
}

func newSnapshotResponse(sess *core.Session, snap core.Snapshot) snapshotResponse {
	rows := make([]rowView, len(snap.Page.Rows))
	for i, r := range snap.Page.Rows {
		rows[i] = rowView{ID: r.ID, Selected: snap.Selected[r.ID], Cells: r.Cells}
	}
	headers := snap.Headers
	if headers == nil {
		headers = []string{}
	}
	return snapshotResponse{
		SessionID:  sess.ID,
		FileName:   sess.FileName(),
		Headers:    headers,
		Rows:       rows,
		View:       snap.View,
		Page:       snap.Page.Page,
		TotalPages: snap.Page.TotalPages,
		TotalRows:  snap.Page.TotalRows,
		HasPrev:    snap.Page.HasPrev(),
		HasNext:    snap.Page.HasNext(),
		PageInfo:   snap.PageInfo(),
		SelectAll:  snap.Tristate,
		Selected:   snap.Selection,
		Options:    snap.Options,
	}
}

// respondSnapshot answers with the table fragment for page scripts and
// with JSON for API clients.
func (s *Server) respondSnapshot(w http.ResponseWriter, r *http.Request, sess *core.Session, snap core.Snapshot) {
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.TablePartial(s.tableParams(sess, snap)).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(sess, snap))
}

func (s *Server) tableParams(sess *core.Session, snap core.Snapshot) templates.TableParams {
	return templates.TableParams{
		SessionID:   sess.ID,
		FileName:    sess.FileName(),
		MailEnabled: s.mail.Configured(),
		Snapshot:    snap,
	}
}

// session resolves {sessionID}, answering 404 itself when it is unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*core.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

// handleIndex serves the page, reusing the session named by the cookie or
// starting a new one.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var sess *core.Session
	if c, err := r.Cookie(SessionCookie); err == nil {
		sess, _ = s.sessions.Get(c.Value)
	}
	if sess == nil {
		sess = s.sessions.Create()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.Page(s.tableParams(sess, sess.Snapshot())).Render(r.Context(), w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
		"parser":   s.parser.Status(),
		"mail":     s.mail.Configured(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

// handleUpload parses the uploaded sheet and replaces the session's
// dataset. A sheet without data leaves the session untouched.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if r.ContentLength > s.cfg.Upload.MaxFileSize {
		respondError(w, r, fmt.Errorf("file too large: %d bytes", r.ContentLength), http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("file too large: %w", err), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	log := logging.WithFields(r.Context(), "session_id", sess.ID, "file", header.Filename)

	var ds core.Dataset
	err = s.parser.Do(r.Context(), func() error {
		head, records, err := sheet.Parse(header.Filename, data)
		if err != nil {
			return err
		}
		ds, err = core.BuildDataset(head, records)
		return err
	})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	snap := sess.Load(header.Filename, ds)
	log.Info("sheet loaded", "rows", len(ds.Rows), "columns", len(ds.Headers), "bytes", len(data))
	s.respondSnapshot(w, r, sess, snap)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(sess, sess.Snapshot()))
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.TablePartial(s.tableParams(sess, sess.Snapshot())).Render(r.Context(), w)
}

// decodeBody fills v from a JSON body, or from form values when the
// request is not JSON.
func decodeBody(r *http.Request, v any, form func(get func(string) string)) error {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("invalid request body: %w", err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form: %w", err)
	}
	form(r.FormValue)
	return nil
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var ev core.Event
	err := decodeBody(r, &ev, func(get func(string) string) {
		ev = core.Event{Type: core.EventType(get("type")), Value: get("value")}
	})
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	snap, err := sess.Apply(ev)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.respondSnapshot(w, r, sess, snap)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	raw := chi.URLParam(r, "rowID")
	id, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %q", core.ErrRowNotFound, raw), http.StatusNotFound)
		return
	}

	snap, err := sess.Toggle(core.RowID(id))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.respondSnapshot(w, r, sess, snap)
}

func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Checked bool `json:"checked"`
	}
	err := decodeBody(r, &body, func(get func(string) string) {
		body.Checked, _ = strconv.ParseBool(get("checked"))
	})
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	s.respondSnapshot(w, r, sess, sess.SetAllVisible(body.Checked))
}

// handleExport downloads the selected rows, or the whole filtered result
// when nothing is selected.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	out, n, err := sess.Export()
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	logging.FromContext(r.Context()).Info("export", "session_id", sess.ID, "rows", n)

	w.Header().Set("Content-Type", core.ExportContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", core.ExportFileName))
	io.WriteString(w, out)
}
