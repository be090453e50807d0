package movie

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"samantha/pkg/logger"
)

type fakeCatalog struct {
	discovered    []DiscoverMovie
	details       map[int64]*MovieDetails
	err           error
	discoverCalls int
	detailsCalls  int
}

func (f *fakeCatalog) Discover(context.Context, DiscoverParams) ([]DiscoverMovie, error) {
	f.discoverCalls++
	return f.discovered, f.err
}

func (f *fakeCatalog) Details(_ context.Context, id int64) (*MovieDetails, error) {
	f.detailsCalls++
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.details[id]
	if !ok {
		return nil, errors.New("no such movie")
	}
	return d, nil
}

type fakeVenue struct {
	listings []Listing
	err      error
	calls    int
}

func (f *fakeVenue) List(context.Context) ([]Listing, error) {
	f.calls++
	return f.listings, f.err
}

func newMovieComposer(t *testing.T, catalog Catalog, venues ...VenueLister) *Composer {
	t.Helper()
	log, err := logger.New(logger.DefaultConfig())
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	c := NewComposer(catalog, venues, log)
	c.now = func() time.Time {
		return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	}
	return c
}

func TestFetchNowShowingMergesAcrossVenues(t *testing.T) {
	xxi := &fakeVenue{listings: []Listing{
		{Title: "A", Venue: "X", Showtimes: []string{"10:00"}},
	}}
	cgv := &fakeVenue{listings: []Listing{
		{Title: "a", Venue: "Y", Showtimes: []string{"12:00"}},
	}}
	c := newMovieComposer(t, &fakeCatalog{}, xxi, cgv)

	movies := c.fetchNowShowing(context.Background())
	if len(movies) != 1 {
		t.Fatalf("got %d movies, want 1 merged entry", len(movies))
	}
	if len(movies[0].Venues) != 2 {
		t.Fatalf("got %d venues, want 2", len(movies[0].Venues))
	}
	if movies[0].Venues[0].Venue != "X" || movies[0].Venues[1].Venue != "Y" {
		t.Errorf("venue order = %v, want first-sighted order", movies[0].Venues)
	}
	if movies[0].Venues[1].Showtimes[0] != "12:00" {
		t.Errorf("second venue showtimes = %v", movies[0].Venues[1].Showtimes)
	}
}

func TestFetchNowShowingSortsAlphabetically(t *testing.T) {
	venue := &fakeVenue{listings: []Listing{
		{Title: "ZOOTOPIA", Venue: "X"},
		{Title: "ARRIVAL", Venue: "X"},
		{Title: "MOANA", Venue: "X"},
	}}
	c := newMovieComposer(t, &fakeCatalog{}, venue)

	movies := c.fetchNowShowing(context.Background())
	want := []string{"ARRIVAL", "MOANA", "ZOOTOPIA"}
	for i, w := range want {
		if movies[i].Title != w {
			t.Errorf("movies[%d] = %q, want %q", i, movies[i].Title, w)
		}
	}
}

func TestFetchNowShowingSkipsFailedVenue(t *testing.T) {
	broken := &fakeVenue{err: errors.New("boom")}
	ok := &fakeVenue{listings: []Listing{{Title: "A", Venue: "Y"}}}
	c := newMovieComposer(t, &fakeCatalog{}, broken, ok)

	movies := c.fetchNowShowing(context.Background())
	if len(movies) != 1 || movies[0].Title != "A" {
		t.Fatalf("movies = %+v, want the healthy venue's single entry", movies)
	}
}

func TestNowShowingPaginatesThreePerBubble(t *testing.T) {
	var listings []Listing
	for i := 0; i < 7; i++ {
		listings = append(listings, Listing{
			Title: fmt.Sprintf("MOVIE %02d", i),
			Venue: "X",
		})
	}
	c := newMovieComposer(t, &fakeCatalog{}, &fakeVenue{listings: listings})

	bubbles := c.NowShowing(context.Background())
	if len(bubbles) != 3 {
		t.Fatalf("got %d bubbles, want 3 for 7 movies", len(bubbles))
	}

	// Header + (separator, title, venues) per movie.
	if got := len(bubbles[0].Body.Contents); got != 1+3*3 {
		t.Errorf("first bubble has %d components, want %d", got, 1+3*3)
	}
	if got := len(bubbles[2].Body.Contents); got != 1+1*3 {
		t.Errorf("last bubble has %d components, want %d", got, 1+1*3)
	}

	header, ok := bubbles[0].Body.Contents[0].(*messaging_api.FlexText)
	if !ok || header.Text != "NOW SHOWING\n (Fri, 10 May)" {
		t.Errorf("header = %#v", bubbles[0].Body.Contents[0])
	}
}

func TestNowShowingMemoizedAndEmptyNotCached(t *testing.T) {
	venue := &fakeVenue{err: errors.New("down")}
	c := newMovieComposer(t, &fakeCatalog{}, venue)

	if got := c.NowShowing(context.Background()); got != nil {
		t.Fatalf("got %d bubbles from a dead venue, want none", len(got))
	}

	// Outage results are not cached; recovery is picked up immediately.
	venue.err = nil
	venue.listings = []Listing{{Title: "A", Venue: "X"}}
	if got := c.NowShowing(context.Background()); len(got) != 1 {
		t.Fatalf("got %d bubbles after recovery, want 1", len(got))
	}

	calls := venue.calls
	c.NowShowing(context.Background())
	if venue.calls != calls {
		t.Errorf("venue fetched again within TTL")
	}
}

func TestUpcomingCapsAtTenBubbles(t *testing.T) {
	var movies []DiscoverMovie
	for i := 0; i < 14; i++ {
		movies = append(movies, DiscoverMovie{
			ID:          int64(i),
			Title:       fmt.Sprintf("Movie %d", i),
			ReleaseDate: "2024-06-01",
			PosterPath:  "/p.jpg",
		})
	}
	catalog := &fakeCatalog{discovered: movies}
	c := newMovieComposer(t, catalog)

	p := DiscoverParams{StartDate: "2024-05-10", EndDate: "2024-06-09", Region: "ID"}
	bubbles := c.Upcoming(context.Background(), p)
	if len(bubbles) != 10 {
		t.Fatalf("got %d bubbles, want 10", len(bubbles))
	}

	// Same params hit the cache, different params do not.
	c.Upcoming(context.Background(), p)
	if catalog.discoverCalls != 1 {
		t.Errorf("discover called %d times, want 1", catalog.discoverCalls)
	}
	p.Region = "US"
	c.Upcoming(context.Background(), p)
	if catalog.discoverCalls != 2 {
		t.Errorf("discover called %d times, want 2", catalog.discoverCalls)
	}
}

func TestUpcomingBubbleLayout(t *testing.T) {
	bubble := upcomingBubble(DiscoverMovie{
		ID:          603,
		Title:       "The Matrix",
		ReleaseDate: "1999-03-31",
		PosterPath:  "/matrix.jpg",
	})

	hero := bubble.Hero.(*messaging_api.FlexImage)
	if hero.Url != posterBaseURL+"/matrix.jpg" {
		t.Errorf("poster url = %q", hero.Url)
	}

	info := bubble.Body.Contents[0].(*messaging_api.FlexBox)
	release := info.Contents[1].(*messaging_api.FlexText)
	if release.Text != "31 Mar 1999" {
		t.Errorf("release date = %q", release.Text)
	}

	button := bubble.Footer.Contents[0].(*messaging_api.FlexButton)
	action := button.Action.(*messaging_api.UriAction)
	if action.Uri != tmdbMovieURL+"603" {
		t.Errorf("details uri = %q", action.Uri)
	}
}

func TestDetailsBubbleSections(t *testing.T) {
	catalog := &fakeCatalog{details: map[int64]*MovieDetails{
		603: {
			ID:         603,
			Title:      "The Matrix",
			Runtime:    136,
			Overview:   "A hacker learns the truth.",
			PosterPath: "/matrix.jpg",
			Crew: []CrewMember{
				{Name: "Lana Wachowski", Job: "Director"},
				{Name: "Lilly Wachowski", Job: "Director"},
				{Name: "Lana Wachowski", Job: "Screenplay"},
				{Name: "Someone Else", Job: "Producer"},
			},
		},
	}}
	c := newMovieComposer(t, catalog)

	bubble, ok := c.Details(context.Background(), 603)
	if !ok {
		t.Fatal("Details reported failure")
	}

	info := bubble.Body.Contents[0].(*messaging_api.FlexBox)
	// title, runtime, director row, script row, overview
	if len(info.Contents) != 5 {
		t.Fatalf("got %d info components, want 5", len(info.Contents))
	}

	runtime := info.Contents[1].(*messaging_api.FlexText)
	if runtime.Text != "136 minutes" {
		t.Errorf("runtime = %q", runtime.Text)
	}

	directors := info.Contents[2].(*messaging_api.FlexBox).Contents[1].(*messaging_api.FlexText)
	if directors.Text != "Lana Wachowski, Lilly Wachowski" {
		t.Errorf("directors = %q", directors.Text)
	}

	writers := info.Contents[3].(*messaging_api.FlexBox).Contents[1].(*messaging_api.FlexText)
	if writers.Text != "Lana Wachowski" {
		t.Errorf("writers = %q", writers.Text)
	}

	// Memoized per id.
	c.Details(context.Background(), 603)
	if catalog.detailsCalls != 1 {
		t.Errorf("details called %d times, want 1", catalog.detailsCalls)
	}
}

func TestDetailsBubbleOmitsAbsentSections(t *testing.T) {
	bubble := detailsBubble(&MovieDetails{Title: "Mystery"})

	info := bubble.Body.Contents[0].(*messaging_api.FlexBox)
	// title + overview placeholder only
	if len(info.Contents) != 2 {
		t.Fatalf("got %d info components, want 2", len(info.Contents))
	}
	overview := info.Contents[1].(*messaging_api.FlexText)
	if overview.Text != "-" {
		t.Errorf("overview placeholder = %q", overview.Text)
	}
}

func TestDetailsFailureNotCached(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("tmdb down")}
	c := newMovieComposer(t, catalog)

	if _, ok := c.Details(context.Background(), 1); ok {
		t.Fatal("Details reported success for a failed lookup")
	}

	catalog.err = nil
	catalog.details = map[int64]*MovieDetails{1: {Title: "Recovered"}}
	if _, ok := c.Details(context.Background(), 1); !ok {
		t.Fatal("Details still failing after catalog recovered")
	}
}
