package movie

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestTMDB(t *testing.T, handler http.Handler) *TMDBClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewTMDBClient("test-key")
	c.baseURL = srv.URL
	return c
}

func TestDiscoverQuery(t *testing.T) {
	var gotQuery map[string]string
	c := newTestTMDB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/discover/movie" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`{"results":[{"id":5,"title":"Perfect Days","release_date":"2024-05-10","poster_path":"/pd.jpg"}]}`))
	}))

	movies, err := c.Discover(context.Background(), DiscoverParams{
		StartDate: "2024-05-10",
		EndDate:   "2024-06-09",
		Region:    "ID",
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := map[string]string{
		"api_key":                  "test-key",
		"sort_by":                  "release_date.asc",
		"primary_release_date.gte": "2024-05-10",
		"primary_release_date.lte": "2024-06-09",
		"region":                   "ID",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}

	if len(movies) != 1 || movies[0].Title != "Perfect Days" || movies[0].ID != 5 {
		t.Errorf("movies = %+v", movies)
	}
}

func TestDetailsMergesCredits(t *testing.T) {
	c := newTestTMDB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/603":
			w.Write([]byte(`{"id":603,"title":"The Matrix","runtime":136,"overview":"o","homepage":"h","poster_path":"/m.jpg"}`))
		case "/movie/603/credits":
			w.Write([]byte(`{"crew":[{"name":"Lana Wachowski","job":"Director"}]}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
		}
	}))

	details, err := c.Details(context.Background(), 603)
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if details.Title != "The Matrix" || details.Runtime != 136 {
		t.Errorf("details = %+v", details)
	}
	if len(details.Crew) != 1 || details.Crew[0].Job != "Director" {
		t.Errorf("crew = %+v", details.Crew)
	}
}

func TestDetailsErrorStatus(t *testing.T) {
	c := newTestTMDB(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))

	if _, err := c.Details(context.Background(), 1); err == nil {
		t.Error("Details succeeded on a 401 response")
	}
}
