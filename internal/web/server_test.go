package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/mail"
)

const rosterCSV = "Name,Email,Branch,Year,Interests\n" +
	"Amy,amy@example.com,CS,2,Go;AI\n" +
	"Bo,bo@example.com,EE,3rd,AI\n" +
	"Cy,,CS,first,Art\n"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second},
		View:   config.ViewConfig{RowsPerPage: 10, SelectAllScope: "filtered"},
	}
}

type recordingRelay struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingRelay) Send(_ context.Context, _, _ string, vars map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, vars["to_email"])
	return nil
}

func newTestServer(t *testing.T, cfg *config.Config, relay mail.Relay) *Server {
	t.Helper()
	d := Deps{Sessions: core.NewSessionManager(cfg.View.RowsPerPage, core.ParseSelectScope(cfg.View.SelectAllScope))}
	if relay != nil {
		d.Mail = mail.NewDispatcher(relay, nil, mail.DispatcherConfig{ServiceID: "svc", TemplateID: "tpl"})
	}
	s := NewServer(cfg, d)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, s *Server) string {
	t.Helper()
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, want %d", rec.Code, http.StatusCreated)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body["session_id"]
}

func uploadRequest(t *testing.T, sessionID, name, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func loadRoster(t *testing.T, s *Server) string {
	t.Helper()
	id := createSession(t, s)
	rec := do(t, s, uploadRequest(t, id, "roster.csv", rosterCSV))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	return id
}

// snapshotBody mirrors snapshotResponse with cells decoded as strings.
type snapshotBody struct {
	FileName string `json:"file_name"`
	Rows     []struct {
		ID       int               `json:"id"`
		Selected bool              `json:"selected"`
		Cells    map[string]string `json:"cells"`
	} `json:"rows"`
	View      core.ViewState     `json:"view"`
	TotalRows int                `json:"total_rows"`
	SelectAll core.Tristate      `json:"select_all"`
	Selected  int                `json:"selected_count"`
	Options   core.FilterOptions `json:"options"`
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) snapshotBody {
	t.Helper()
	var snap snapshotBody
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestIndex_SessionCookie(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookie {
		t.Fatalf("cookies = %v, want one %s cookie", cookies, SessionCookie)
	}
	if s.sessions.Count() != 1 {
		t.Errorf("sessions = %d, want 1", s.sessions.Count())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = do(t, s, req)
	if len(rec.Result().Cookies()) != 0 {
		t.Error("existing session should not get a new cookie")
	}
	if s.sessions.Count() != 1 {
		t.Errorf("sessions = %d, want 1 after revisit", s.sessions.Count())
	}
	if !strings.Contains(rec.Body.String(), cookies[0].Value) {
		t.Error("page does not carry the session ID")
	}
}

func TestUpload(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	id := createSession(t, s)

	rec := do(t, s, uploadRequest(t, id, "roster.csv", rosterCSV))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	snap := decodeSnapshot(t, rec)
	if snap.TotalRows != 3 {
		t.Errorf("total_rows = %d, want 3", snap.TotalRows)
	}
	if snap.FileName != "roster.csv" {
		t.Errorf("file_name = %q, want roster.csv", snap.FileName)
	}
	if got := strings.Join(snap.Options.Branches, ","); got != "CS,EE" {
		t.Errorf("branches = %q, want CS,EE", got)
	}
	if snap.SelectAll != core.TriNone {
		t.Errorf("select_all = %q, want %q", snap.SelectAll, core.TriNone)
	}
}

func TestUpload_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 1024
	s := newTestServer(t, cfg, nil)
	id := loadRoster(t, s)

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
		wantErr  string
	}{
		{"header only", uploadRequest(t, id, "r.csv", "Name,Email\n"), http.StatusUnprocessableEntity, "FILE005"},
		{"empty", uploadRequest(t, id, "r.csv", ""), http.StatusUnprocessableEntity, "FILE005"},
		{"corrupt xlsx", uploadRequest(t, id, "r.xlsx", "not a workbook"), http.StatusBadRequest, "FILE003"},
		{"too large", uploadRequest(t, id, "r.csv", strings.Repeat("a,b\n", 400)), http.StatusRequestEntityTooLarge, "FILE001"},
		{"no file", jsonRequest(http.MethodPost, "/api/sessions/"+id+"/upload", "{}"), http.StatusBadRequest, "FILE004"},
		{"unknown session", uploadRequest(t, "nope", "r.csv", rosterCSV), http.StatusNotFound, "SES001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.req)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if e := decodeError(t, rec); e.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", e.Code, tt.wantErr)
			}
		})
	}

	// Failed uploads leave the loaded roster alone.
	snap := decodeSnapshot(t, do(t, s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/view", nil)))
	if snap.TotalRows != 3 || snap.FileName != "roster.csv" {
		t.Errorf("after failed uploads: rows = %d, file = %q", snap.TotalRows, snap.FileName)
	}
}

func TestEvents(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	id := loadRoster(t, s)
	events := "/api/sessions/" + id + "/events"

	rec := do(t, s, jsonRequest(http.MethodPost, events, `{"type":"branch","value":"CS"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if snap := decodeSnapshot(t, rec); snap.TotalRows != 2 || snap.View.Criteria.Branch != "CS" {
		t.Errorf("branch filter: rows = %d, criteria = %+v", snap.TotalRows, snap.View.Criteria)
	}

	form := url.Values{"type": {"sort"}, "value": {"Name"}}
	req := httptest.NewRequest(http.MethodPost, events, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	snap := decodeSnapshot(t, do(t, s, req))
	if snap.View.Sort.Column != "Name" || !snap.View.Sort.Ascending {
		t.Errorf("sort = %+v, want Name ascending", snap.View.Sort)
	}
	if len(snap.Rows) != 2 || snap.Rows[0].Cells["Name"] != "Amy" {
		t.Errorf("rows = %+v", snap.Rows)
	}

	rec = do(t, s, jsonRequest(http.MethodPost, events, `{"type":"sort","value":"Missing"}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown column status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if e := decodeError(t, rec); e.Code != "VIEW001" {
		t.Errorf("code = %q, want VIEW001", e.Code)
	}

	rec = do(t, s, jsonRequest(http.MethodPost, events, `{"type":"explode"}`))
	if e := decodeError(t, rec); e.Code != "VIEW002" {
		t.Errorf("code = %q, want VIEW002", e.Code)
	}

	rec = do(t, s, jsonRequest(http.MethodPost, events, `{not json`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestToggleAndExport(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	id := loadRoster(t, s)
	base := "/api/sessions/" + id

	rec := do(t, s, httptest.NewRequest(http.MethodPost, base+"/rows/2/toggle", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d: %s", rec.Code, rec.Body.String())
	}
	if snap := decodeSnapshot(t, rec); snap.Selected != 1 || snap.SelectAll != core.TriSome {
		t.Errorf("selected = %d, select_all = %q", snap.Selected, snap.SelectAll)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, base+"/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != core.ExportContentType {
		t.Errorf("Content-Type = %q, want %q", ct, core.ExportContentType)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, core.ExportFileName) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body := rec.Body.String()
	want := "\"Name\",\"Email\",\"Branch\",\"Year\",\"Interests\"\r\n\"Bo\",\"bo@example.com\",\"EE\",\"3\",\"AI\""
	if body != want {
		t.Errorf("export = %q, want %q", body, want)
	}

	for _, path := range []string{base + "/rows/99/toggle", base + "/rows/x/toggle"} {
		rec = do(t, s, httptest.NewRequest(http.MethodPost, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want %d", path, rec.Code, http.StatusNotFound)
		}
	}
}

func TestExport_Empty(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	id := createSession(t, s)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/export", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if e := decodeError(t, rec); e.Code != "EXP001" {
		t.Errorf("code = %q, want EXP001", e.Code)
	}
}

func TestSelectAll_HTMX(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	id := loadRoster(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/select-all", strings.NewReader("checked=true"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rec := do(t, s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), `data-tristate="all"`) {
		t.Errorf("fragment missing checked select-all: %s", rec.Body.String())
	}
}

func TestSendMail_NotConfigured(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	id := loadRoster(t, s)
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/mail", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if e := decodeError(t, rec); e.Code != "MAIL004" {
		t.Errorf("code = %q, want MAIL004", e.Code)
	}
}

func TestSendMail(t *testing.T) {
	relay := &recordingRelay{}
	s := newTestServer(t, testConfig(), relay)
	id := loadRoster(t, s)
	base := "/api/sessions/" + id

	rec := do(t, s, httptest.NewRequest(http.MethodPost, base+"/mail", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("no selection status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if e := decodeError(t, rec); e.Code != "MAIL002" {
		t.Errorf("code = %q, want MAIL002", e.Code)
	}

	do(t, s, jsonRequest(http.MethodPost, base+"/select-all", `{"checked":true}`))

	rec = do(t, s, httptest.NewRequest(http.MethodPost, base+"/mail", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	var started mailStatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&started); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.mail.Wait(ctx, started.BatchID); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/mail/"+started.BatchID, nil))
	var status mailStatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "done" {
		t.Fatalf("status = %q, want done", status.Status)
	}
	if status.Summary != "Done: sent 2, skipped 1, failed 0" {
		t.Errorf("summary = %q", status.Summary)
	}
	if len(relay.sent) != 2 {
		t.Errorf("relay sends = %d, want 2", len(relay.sent))
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/mail/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown batch status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMailHistory(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/mail", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"batches":[]}` {
		t.Errorf("body = %s", got)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/mail?limit=-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDeleteSession(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	id := createSession(t, s)

	rec := do(t, s, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id+"/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/view", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("view after delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}
	s := newTestServer(t, cfg, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("X-API-Key", "k1")
	if rec := do(t, s, req); rec.Code != http.StatusCreated {
		t.Errorf("with key status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()

	now := time.Now()
	if !rl.allow("a", now) || !rl.allow("a", now) {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a", now) {
		t.Error("third request in window should be limited")
	}
	if !rl.allow("b", now) {
		t.Error("other clients have their own window")
	}
	if !rl.allow("a", now.Add(time.Minute)) {
		t.Error("new window should reset the count")
	}
}
