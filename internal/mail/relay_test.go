package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEmailJS_Send(t *testing.T) {
	var got emailJSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := NewEmailJS("pub", "priv", 0)
	c.Endpoint = srv.URL

	vars := map[string]string{"to_email": "amy@example.com", "name": "Amy"}
	if err := c.Send(context.Background(), "svc", "tpl", vars); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got.ServiceID != "svc" || got.TemplateID != "tpl" || got.UserID != "pub" || got.AccessToken != "priv" {
		t.Errorf("request = %+v", got)
	}
	if got.TemplateParams["to_email"] != "amy@example.com" {
		t.Errorf("template_params = %v", got.TemplateParams)
	}
}

func TestEmailJS_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("The template ID is invalid"))
	}))
	defer srv.Close()

	c := NewEmailJS("pub", "", 0)
	c.Endpoint = srv.URL

	err := c.Send(context.Background(), "svc", "bad", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 400") || !strings.Contains(err.Error(), "template ID is invalid") {
		t.Errorf("error = %v", err)
	}
}
