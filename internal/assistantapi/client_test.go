package assistantapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateSession(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":0,"message":"ok","data":{"id":"sess-1"}}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL).CreateSession(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if id != "sess-1" {
		t.Fatalf("expected sess-1, got %q", id)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/sessions" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
}

func TestCreateSessionLegacyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"sessionId":"sess-2"}}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL).CreateSession(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if id != "sess-2" {
		t.Fatalf("expected sess-2, got %q", id)
	}
}

func TestCreateSessionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).CreateSession(context.Background()); err == nil {
		t.Fatalf("expected an error on 500")
	}
}

func TestCreateSessionMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).CreateSession(context.Background()); err == nil {
		t.Fatalf("expected an error when the id is missing")
	}
}

func TestCreateSessionContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewClient(srv.URL).CreateSession(ctx); err == nil {
		t.Fatalf("expected an error for a canceled context")
	}
}
