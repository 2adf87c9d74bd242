package adminhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/duskwire/secchan/obs/sessionstore"
)

func newTestRouter(t *testing.T) (http.Handler, *sessionstore.Store) {
	t.Helper()
	store, err := sessionstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("sessionstore.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewRouter(store, time.Now().Add(-time.Minute)), store
}

func TestHealthzReportsOK(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %v, want ok", body["status"])
	}
}

func TestStatsListsAllSessions(t *testing.T) {
	router, store := newTestRouter(t)
	store.Put(sessionstore.Stat{ID: "a"})
	store.Put(sessionstore.Stat{ID: "b"})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var stats []sessionstore.Stat
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("len(stats) = %d, want 2", len(stats))
	}
}

func TestStatsByIDReturnsSingleSession(t *testing.T) {
	router, store := newTestRouter(t)
	store.Put(sessionstore.Stat{ID: "target", BytesIn: 42})

	req := httptest.NewRequest(http.MethodGet, "/stats/target", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var stat sessionstore.Stat
	if err := json.Unmarshal(rec.Body.Bytes(), &stat); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if stat.BytesIn != 42 {
		t.Fatalf("stat.BytesIn = %d, want 42", stat.BytesIn)
	}
}

func TestStatsByIDMissingReturns404(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/stats/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
