package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
)

func listingPage(n, offset int) []RemoteModelSummary {
	page := make([]RemoteModelSummary, n)
	for i := range page {
		page[i] = RemoteModelSummary{Identifier: fmt.Sprintf("org/m-%d", offset+i), PipelineTag: "text-generation"}
	}
	return page
}

func TestFetchListingPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit != 2 {
			t.Errorf("limit=%d, want 2", limit)
		}
		switch skip {
		case 0, 2:
			json.NewEncoder(w).Encode(listingPage(2, skip))
		default:
			json.NewEncoder(w).Encode([]RemoteModelSummary{})
		}
	}))
	defer srv.Close()

	c := newTestClassifier(srv)
	opts := testOpts()
	opts.PageSize = 2
	got, limited, err := c.fetchListing(context.Background(), opts)
	if err != nil {
		t.Fatalf("fetchListing: %v", err)
	}
	if limited {
		t.Fatal("unexpected rate-limited flag")
	}
	if len(got) != 4 || got[0].Identifier != "org/m-0" || got[3].Identifier != "org/m-3" {
		t.Fatalf("got %d entries: %+v", len(got), got)
	}
}

func TestFetchListingStopsAtMaxListingSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		json.NewEncoder(w).Encode(listingPage(10, skip))
	}))
	defer srv.Close()

	c := newTestClassifier(srv)
	opts := testOpts()
	opts.PageSize = 10
	opts.MaxListingSize = 25
	got, _, err := c.fetchListing(context.Background(), opts)
	if err != nil {
		t.Fatalf("fetchListing: %v", err)
	}
	if len(got) != 25 {
		t.Fatalf("got %d entries, want 25", len(got))
	}
}

func TestFetchListingPartialOnLaterPageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		if skip == 0 {
			json.NewEncoder(w).Encode(listingPage(2, 0))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClassifier(srv)
	opts := testOpts()
	opts.PageSize = 2
	got, _, err := c.fetchListing(context.Background(), opts)
	if err != nil {
		t.Fatalf("partial listing should not be an error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
}

func TestFetchListingFatalWhenNothingCollected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClassifier(srv)
	if _, _, err := c.fetchListing(context.Background(), testOpts()); err == nil {
		t.Fatal("expected a fatal listing error")
	}
}

func TestFetchListingRetries429AndFlags(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		if skip == 0 && atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if skip == 0 {
			json.NewEncoder(w).Encode(listingPage(1, 0))
			return
		}
		json.NewEncoder(w).Encode([]RemoteModelSummary{})
	}))
	defer srv.Close()

	c := newTestClassifier(srv)
	opts := testOpts()
	opts.PageSize = 1
	opts.MaxListingSize = 1
	got, limited, err := c.fetchListing(context.Background(), opts)
	if err != nil {
		t.Fatalf("fetchListing: %v", err)
	}
	if !limited {
		t.Fatal("rate-limited flag should be set")
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
}
