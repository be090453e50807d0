package movie

import (
	"strings"
	"time"
)

const dateFormat = "2006-01-02"

// DiscoverParams filter a discover query. Dates are inclusive
// YYYY-MM-DD bounds on the primary release date.
type DiscoverParams struct {
	StartDate string
	EndDate   string
	Region    string
}

var regionWords = map[string]string{
	"indonesia": "ID",
	"id":        "ID",
	"amerika":   "US",
	"us":        "US",
	"jepang":    "JP",
	"jp":        "JP",
	"korea":     "KR",
	"kr":        "KR",
}

// ParseDiscoverParams extracts a release window and region from
// free-text command arguments. Recognized phrases pick a relative
// window, a known region word picks the region, and everything else is
// ignored. Defaults are the next 30 days in Indonesia.
func ParseDiscoverParams(args []string, now time.Time) DiscoverParams {
	words := make(map[string]bool, len(args))
	for _, a := range args {
		words[strings.ToLower(a)] = true
	}

	start := now
	end := now.AddDate(0, 0, 30)
	switch {
	case words["bulan"] && words["depan"]:
		start = now.AddDate(0, 0, 30)
		end = start.AddDate(0, 0, 30)
	case words["minggu"] && words["ini"]:
		end = start.AddDate(0, 0, 7)
	case words["minggu"] && words["depan"]:
		start = now.AddDate(0, 0, 7)
		end = start.AddDate(0, 0, 7)
	}

	region := "ID"
	for _, a := range args {
		if code, ok := regionWords[strings.ToLower(a)]; ok {
			region = code
			break
		}
	}

	return DiscoverParams{
		StartDate: start.Format(dateFormat),
		EndDate:   end.Format(dateFormat),
		Region:    region,
	}
}
