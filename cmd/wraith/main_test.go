package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/storage"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"flags after text are moved first", []string{"reset webex password", "-session", "alice"}, []string{"-session", "alice", "reset webex password"}},
		{"flags first returns unchanged", []string{"-session", "alice", "hi"}, []string{"-session", "alice", "hi"}},
		{"text only returns unchanged", []string{"hello"}, []string{"hello"}},
		{"empty args returns unchanged", []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := argsReorder(tt.args); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestJoinArgs(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"cucm"}, "cucm"},
		{[]string{"cucm", "upgrade"}, "cucm upgrade"},
		{[]string{"  ", " "}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := joinArgs(tt.args); got != tt.want {
			t.Errorf("joinArgs(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestLoadConfig_explicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wraith.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path || cfg.Server.Port != 9191 {
		t.Errorf("resolved=%s port=%d", resolved, cfg.Server.Port)
	}
}

func TestTurnResponse(t *testing.T) {
	ok := turnResponse("s", "hello", nil)
	if ok.ErrorKind != "" || ok.Reply != "hello" {
		t.Errorf("ok response = %+v", ok)
	}
	failed := turnResponse("s", "", apperr.New(apperr.StoreUnavailable, "session_load", errors.New("down")))
	if failed.ErrorKind != "store_unavailable" || failed.Reply != apperr.MsgStoreUnavailable {
		t.Errorf("failed response = %+v", failed)
	}
}

func TestChatViaHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat" {
			http.NotFound(w, r)
			return
		}
		var req models.TurnRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.Text == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(models.TurnResponse{SessionID: req.SessionID, Reply: apperr.MsgEmptyQuery, ErrorKind: "invalid_input"})
			return
		}
		_ = json.NewEncoder(w).Encode(models.TurnResponse{SessionID: req.SessionID, Reply: "echo: " + req.Text})
	}))
	defer srv.Close()

	resp, err := chatViaHTTP(srv.URL+"/", &models.TurnRequest{SessionID: "s", Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reply != "echo: hi" {
		t.Errorf("reply = %q", resp.Reply)
	}

	resp, err = chatViaHTTP(srv.URL, &models.TurnRequest{SessionID: "s"})
	if err != nil {
		t.Fatalf("400 with a reply body should decode: %v", err)
	}
	if resp.ErrorKind != "invalid_input" {
		t.Errorf("error kind = %q", resp.ErrorKind)
	}
}

func TestStatusViaHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(storage.Stats{Backend: "local", Chunks: 4, Threads: 2})
	}))
	defer srv.Close()
	st, err := statusViaHTTP(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if st.Threads != 2 || st.Chunks != 4 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRetrieveViaHTTP_errorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"down"}`))
	}))
	defer srv.Close()
	if _, err := retrieveViaHTTP(srv.URL, &models.RetrieveRequest{Query: "x"}); err == nil {
		t.Error("expected error for 503")
	}
}
