package places_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/places"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

func TestClient_FetchReviews_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("reviews_sort"); got != "newest" {
			t.Errorf("reviews_sort = %q, want newest", got)
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "OK",
				"result": map[string]any{
					"reviews": []map[string]any{
						{"author_name": "Ana", "text": "Great food", "time": 1000.0},
					},
				},
			})
		}
	}))
	defer ts.Close()

	cl, err := places.New(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := cl.FetchReviews(ctx, "place-1", domain.SortNewest)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0]["author_name"] != "Ana" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_FetchReviews_ProviderDenied(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":        "OVER_QUERY_LIMIT",
			"error_message": "quota exhausted",
		})
	}))
	defer ts.Close()

	cl, err := places.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cl.FetchReviews(ctx, "place-1", domain.SortMostRelevant)
	if !errors.Is(err, domain.ErrExternalAPI) {
		t.Fatalf("expected ErrExternalAPI, got %v", err)
	}
}

func TestClient_FetchReviews_ZeroResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ZERO_RESULTS"})
	}))
	defer ts.Close()

	cl, _ := places.New(ts.URL, "test-key", 100)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := cl.FetchReviews(ctx, "place-1", domain.SortNewest)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}
