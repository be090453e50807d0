package movie

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"go.uber.org/zap"

	"samantha/pkg/flexmsg"
	"samantha/pkg/logger"
	"samantha/pkg/ttlcache"
)

const (
	nowShowingTTL = 4 * time.Hour
	discoverTTL   = time.Hour
	detailsTTL    = 4 * time.Hour

	nowShowingKey   = "now-showing"
	moviesPerBubble = 3

	posterBaseURL = "https://image.tmdb.org/t/p/w500"
	tmdbMovieURL  = "https://www.themoviedb.org/movie/"
	tmdbLogoURL   = "https://www.themoviedb.org/assets/2/v4/logos/293x302-powered-by-square-blue-ee05c47ab249273a6f9f1dcafec63daba386ca30544567629deb1809395d8516.png"
)

// VenueShowtimes is one venue's schedule for a movie.
type VenueShowtimes struct {
	Venue     string
	Showtimes []string
}

// Movie is a now-showing entry merged across venues. Venues keep the
// order they were first sighted in.
type Movie struct {
	Title  string
	Venues []VenueShowtimes
}

// Composer builds movie flex messages, memoizing each view for its own
// lifetime.
type Composer struct {
	catalog Catalog
	venues  []VenueLister
	log     *logger.Logger

	nowShowingCache *ttlcache.Cache[string, []messaging_api.FlexBubble]
	discoverCache   *ttlcache.Cache[string, []messaging_api.FlexBubble]
	detailsCache    *ttlcache.Cache[int64, messaging_api.FlexBubble]

	now func() time.Time
}

func NewComposer(catalog Catalog, venues []VenueLister, log *logger.Logger) *Composer {
	return &Composer{
		catalog:         catalog,
		venues:          venues,
		log:             log,
		nowShowingCache: ttlcache.New[string, []messaging_api.FlexBubble](nowShowingTTL),
		discoverCache:   ttlcache.New[string, []messaging_api.FlexBubble](discoverTTL),
		detailsCache:    ttlcache.New[int64, messaging_api.FlexBubble](detailsTTL),
		now:             time.Now,
	}
}

// NowShowing merges all venue listings into a sorted carousel of
// three-movie bubbles. Empty results (every venue down or empty) yield
// nil and are not cached, so an outage does not stick for the full TTL.
func (c *Composer) NowShowing(ctx context.Context) []messaging_api.FlexBubble {
	if bubbles, ok := c.nowShowingCache.Get(nowShowingKey); ok {
		return bubbles
	}

	movies := c.fetchNowShowing(ctx)
	if len(movies) == 0 {
		return nil
	}

	bubbles := c.buildNowShowing(movies)
	c.nowShowingCache.Set(nowShowingKey, bubbles)
	return bubbles
}

func (c *Composer) fetchNowShowing(ctx context.Context) []Movie {
	var movies []Movie
	index := make(map[string]int)

	for _, venue := range c.venues {
		listings, err := venue.List(ctx)
		if err != nil {
			c.log.Warn("venue listing failed", zap.Error(err))
			continue
		}
		for _, l := range listings {
			key := strings.ToUpper(l.Title)
			i, seen := index[key]
			if !seen {
				index[key] = len(movies)
				movies = append(movies, Movie{
					Title:  l.Title,
					Venues: []VenueShowtimes{{Venue: l.Venue, Showtimes: l.Showtimes}},
				})
				continue
			}

			replaced := false
			for vi := range movies[i].Venues {
				if movies[i].Venues[vi].Venue == l.Venue {
					movies[i].Venues[vi].Showtimes = l.Showtimes
					replaced = true
					break
				}
			}
			if !replaced {
				movies[i].Venues = append(movies[i].Venues, VenueShowtimes{Venue: l.Venue, Showtimes: l.Showtimes})
			}
		}
	}

	sort.Slice(movies, func(i, j int) bool { return movies[i].Title < movies[j].Title })
	return movies
}

func (c *Composer) buildNowShowing(movies []Movie) []messaging_api.FlexBubble {
	header := func() messaging_api.FlexComponentInterface {
		return &messaging_api.FlexText{
			Text:   c.now().Format("NOW SHOWING\n (Mon, 02 Jan)"),
			Weight: messaging_api.FlexTextWEIGHT_BOLD,
			Wrap:   true,
			Size:   "sm",
			Align:  messaging_api.FlexTextALIGN_CENTER,
		}
	}

	var bubbles []messaging_api.FlexBubble
	section := []messaging_api.FlexComponentInterface{header()}
	inSection := 0

	flush := func() {
		bubbles = append(bubbles, messaging_api.FlexBubble{
			Body: &messaging_api.FlexBox{
				Layout:   messaging_api.FlexBoxLAYOUT_VERTICAL,
				Spacing:  "md",
				Contents: section,
			},
		})
		section = []messaging_api.FlexComponentInterface{header()}
		inSection = 0
	}

	for _, movie := range movies {
		if len(bubbles) == flexmsg.MaxBubblesPerCarousel {
			break
		}

		var rows []messaging_api.FlexComponentInterface
		for _, vs := range movie.Venues {
			rows = append(rows, venueRow(vs))
		}

		section = append(section,
			&messaging_api.FlexSeparator{},
			&messaging_api.FlexText{
				Text:   movie.Title,
				Wrap:   true,
				Weight: messaging_api.FlexTextWEIGHT_BOLD,
				Size:   "sm",
			},
			&messaging_api.FlexBox{
				Layout:   messaging_api.FlexBoxLAYOUT_VERTICAL,
				Spacing:  "md",
				Contents: rows,
			},
		)
		inSection++
		if inSection == moviesPerBubble {
			flush()
		}
	}
	if inSection > 0 && len(bubbles) < flexmsg.MaxBubblesPerCarousel {
		flush()
	}
	return bubbles
}

func venueRow(vs VenueShowtimes) *messaging_api.FlexBox {
	return &messaging_api.FlexBox{
		Layout: messaging_api.FlexBoxLAYOUT_HORIZONTAL,
		Contents: []messaging_api.FlexComponentInterface{
			&messaging_api.FlexText{
				Text:    vs.Venue,
				Wrap:    true,
				Gravity: messaging_api.FlexTextGRAVITY_CENTER,
				Size:    "sm",
				Color:   "#444444",
				Flex:    2,
			},
			&messaging_api.FlexText{
				Text:    strings.Join(vs.Showtimes, " "),
				Wrap:    true,
				Gravity: messaging_api.FlexTextGRAVITY_CENTER,
				Size:    "xs",
				Flex:    4,
			},
		},
	}
}

// Upcoming renders a discover query as up to ten poster bubbles,
// memoized per parameter combination.
func (c *Composer) Upcoming(ctx context.Context, p DiscoverParams) []messaging_api.FlexBubble {
	key := p.StartDate + "|" + p.EndDate + "|" + p.Region
	if bubbles, ok := c.discoverCache.Get(key); ok {
		return bubbles
	}

	movies, err := c.catalog.Discover(ctx, p)
	if err != nil {
		c.log.Warn("discover failed", zap.Error(err))
		return nil
	}
	if len(movies) == 0 {
		return nil
	}

	var bubbles []messaging_api.FlexBubble
	for _, movie := range movies {
		if len(bubbles) == flexmsg.MaxBubblesPerCarousel {
			break
		}
		bubbles = append(bubbles, upcomingBubble(movie))
	}
	c.discoverCache.Set(key, bubbles)
	return bubbles
}

func upcomingBubble(movie DiscoverMovie) messaging_api.FlexBubble {
	release := movie.ReleaseDate
	if t, err := time.Parse(dateFormat, movie.ReleaseDate); err == nil {
		release = t.Format("02 Jan 2006")
	}

	info := []messaging_api.FlexComponentInterface{
		&messaging_api.FlexText{
			Text:   movie.Title,
			Weight: messaging_api.FlexTextWEIGHT_BOLD,
			Size:   "sm",
			Wrap:   true,
		},
		&messaging_api.FlexText{
			Text: release,
			Size: "xs",
		},
	}

	bubble := posterBubble(movie.PosterPath, info)
	bubble.Footer = &messaging_api.FlexBox{
		Layout: messaging_api.FlexBoxLAYOUT_HORIZONTAL,
		Contents: []messaging_api.FlexComponentInterface{
			&messaging_api.FlexButton{
				Height: messaging_api.FlexButtonHEIGHT_SM,
				Style:  messaging_api.FlexButtonSTYLE_SECONDARY,
				Color:  "#F1F1F1",
				Flex:   2,
				Action: &messaging_api.UriAction{
					Label: "Details..",
					Uri:   tmdbMovieURL + strconv.FormatInt(movie.ID, 10),
				},
			},
		},
	}
	return bubble
}

// Details renders a movie's detail card, memoized per id. ok is false
// when the catalog lookup failed.
func (c *Composer) Details(ctx context.Context, id int64) (messaging_api.FlexBubble, bool) {
	if bubble, ok := c.detailsCache.Get(id); ok {
		return bubble, true
	}

	details, err := c.catalog.Details(ctx, id)
	if err != nil {
		c.log.Warn("movie details failed", zap.Int64("movie_id", id), zap.Error(err))
		return messaging_api.FlexBubble{}, false
	}

	bubble := detailsBubble(details)
	c.detailsCache.Set(id, bubble)
	return bubble, true
}

func detailsBubble(movie *MovieDetails) messaging_api.FlexBubble {
	contents := []messaging_api.FlexComponentInterface{
		&messaging_api.FlexText{
			Text:   movie.Title,
			Weight: messaging_api.FlexTextWEIGHT_BOLD,
			Size:   "sm",
			Wrap:   true,
		},
	}

	if movie.Runtime > 0 {
		contents = append(contents, &messaging_api.FlexText{
			Text: strconv.Itoa(movie.Runtime) + " minutes",
			Size: "xs",
		})
	}

	var directors, writers []string
	for _, person := range movie.Crew {
		switch person.Job {
		case "Director":
			directors = append(directors, person.Name)
		case "Script", "Writer", "Screenplay":
			writers = append(writers, person.Name)
		}
	}
	if len(directors) > 0 {
		contents = append(contents, crewRow("Director:", directors))
	}
	if len(writers) > 0 {
		contents = append(contents, crewRow("Script:", writers))
	}

	overview := movie.Overview
	if overview == "" {
		overview = "-"
	}
	contents = append(contents, &messaging_api.FlexText{
		Text: overview,
		Wrap: true,
		Size: "xs",
	})

	if movie.Homepage != "" {
		contents = append(contents, &messaging_api.FlexText{
			Text: movie.Homepage,
			Size: "xxs",
		})
	}

	return posterBubble(movie.PosterPath, contents)
}

func crewRow(label string, names []string) *messaging_api.FlexBox {
	return &messaging_api.FlexBox{
		Layout:  messaging_api.FlexBoxLAYOUT_HORIZONTAL,
		Spacing: "xs",
		Contents: []messaging_api.FlexComponentInterface{
			&messaging_api.FlexText{
				Text: label,
				Wrap: true,
				Flex: 1,
				Size: "xxs",
			},
			&messaging_api.FlexText{
				Text:   strings.Join(names, ", "),
				Wrap:   true,
				Flex:   3,
				Size:   "xxs",
				Weight: messaging_api.FlexTextWEIGHT_BOLD,
			},
		},
	}
}

// posterBubble is the shared layout of the upcoming and details cards:
// poster hero, info column, TMDB attribution logo.
func posterBubble(posterPath string, info []messaging_api.FlexComponentInterface) messaging_api.FlexBubble {
	return messaging_api.FlexBubble{
		Hero: &messaging_api.FlexImage{
			Url:         posterBaseURL + posterPath,
			Size:        "full",
			AspectRatio: "1:1.33",
			AspectMode:  messaging_api.FlexImageASPECT_MODE_COVER,
		},
		Body: &messaging_api.FlexBox{
			Layout: messaging_api.FlexBoxLAYOUT_HORIZONTAL,
			Contents: []messaging_api.FlexComponentInterface{
				&messaging_api.FlexBox{
					Layout:   messaging_api.FlexBoxLAYOUT_VERTICAL,
					Flex:     4,
					Spacing:  "sm",
					Contents: info,
				},
				&messaging_api.FlexImage{
					Url:        tmdbLogoURL,
					Flex:       1,
					Size:       "xxs",
					AspectMode: messaging_api.FlexImageASPECT_MODE_FIT,
				},
			},
		},
	}
}
