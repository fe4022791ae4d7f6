package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search/authors.json":
			if r.URL.Query().Get("q") != "Karel Capek" {
				_, _ = w.Write([]byte(`{"numFound":0,"docs":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"numFound":2,"docs":[{"name":"Josef Čapek"},{"name":"Karel Čapek"}]}`))
		case "/search.json":
			_, _ = w.Write([]byte(`{"numFound":1,"docs":[{"title":"Válka s mloky","author_name":["Karel Čapek"]}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSuggestAuthor(t *testing.T) {
	client := New(newServer(t).URL, time.Second, nil)
	got, ok := client.SuggestAuthor(context.Background(), "Capek.Karel")
	if !ok || got != "Karel Čapek" {
		t.Fatalf("SuggestAuthor = %q, %v", got, ok)
	}
	if _, ok := client.SuggestAuthor(context.Background(), "Nobody.Here"); ok {
		t.Fatal("expected no suggestion")
	}
}

func TestSuggestTitle(t *testing.T) {
	client := New(newServer(t).URL, time.Second, nil)
	got, ok := client.SuggestTitle(context.Background(), "Capek.Karel", "valka s mloky")
	if !ok || got != "Válka s mloky" {
		t.Fatalf("SuggestTitle = %q, %v", got, ok)
	}
	if _, ok := client.SuggestTitle(context.Background(), "Capek.Karel", "Totally Different Book"); ok {
		t.Fatal("low-confidence match must be rejected")
	}
}

func TestLookupFailuresYieldNoSuggestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	if _, ok := client.SuggestAuthor(context.Background(), "Anyone"); ok {
		t.Fatal("server error must yield no suggestion")
	}

	unreachable := New("http://127.0.0.1:1", 200*time.Millisecond, nil)
	if _, ok := unreachable.SuggestTitle(context.Background(), "A", "B"); ok {
		t.Fatal("unreachable server must yield no suggestion")
	}
}
