// Package movie composes the cinema content: what is showing around
// town right now, what is coming to theaters, and per-movie detail
// cards. Listings come from scraped venue pages, everything else from
// TMDB.
package movie

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

// DiscoverMovie is one entry of a TMDB discover result.
type DiscoverMovie struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path"`
}

// CrewMember is one crew credit on a movie.
type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// MovieDetails merges a movie's metadata with its credits.
type MovieDetails struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Runtime    int    `json:"runtime"`
	Overview   string `json:"overview"`
	Homepage   string `json:"homepage"`
	PosterPath string `json:"poster_path"`
	Crew       []CrewMember
}

// Catalog is the movie metadata source the composer draws from.
type Catalog interface {
	Discover(ctx context.Context, p DiscoverParams) ([]DiscoverMovie, error)
	Details(ctx context.Context, id int64) (*MovieDetails, error)
}

// TMDBClient talks to the TMDB v3 API.
type TMDBClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewTMDBClient(apiKey string) *TMDBClient {
	return &TMDBClient{
		apiKey:  apiKey,
		baseURL: tmdbBaseURL,
		http:    &http.Client{},
	}
}

// Discover lists movies releasing in the given date window and region,
// sorted by ascending release date.
func (c *TMDBClient) Discover(ctx context.Context, p DiscoverParams) ([]DiscoverMovie, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("sort_by", "release_date.asc")
	if p.StartDate != "" {
		q.Set("primary_release_date.gte", p.StartDate)
	}
	if p.EndDate != "" {
		q.Set("primary_release_date.lte", p.EndDate)
	}
	if p.Region != "" {
		q.Set("region", p.Region)
	}

	var payload struct {
		Results []DiscoverMovie `json:"results"`
	}
	if err := c.getJSON(ctx, "/discover/movie", q, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// Details fetches a movie's metadata and its credit list in two calls
// and merges them.
func (c *TMDBClient) Details(ctx context.Context, id int64) (*MovieDetails, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)

	var details MovieDetails
	if err := c.getJSON(ctx, "/movie/"+strconv.FormatInt(id, 10), q, &details); err != nil {
		return nil, err
	}

	var credits struct {
		Crew []CrewMember `json:"crew"`
	}
	if err := c.getJSON(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/credits", q, &credits); err != nil {
		return nil, err
	}
	details.Crew = credits.Crew
	return &details, nil
}

func (c *TMDBClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build tmdb request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb request %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb request %s: status %d", path, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode tmdb response %s: %w", path, err)
	}
	return nil
}
