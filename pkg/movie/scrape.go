package movie

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Listing is one movie on one venue's schedule page.
type Listing struct {
	Title     string
	Venue     string
	Showtimes []string
}

// VenueLister scrapes one cinema's schedule page.
type VenueLister interface {
	List(ctx context.Context) ([]Listing, error)
}

// XXILister scrapes a 21cineplex theater page. Titles live in h3
// elements inside .col-9 blocks of the regular-screen tab, showtimes in
// the anchors below each title.
type XXILister struct {
	VenueName string
	URL       string

	http *http.Client

	insecureOnce sync.Once
	insecure     *http.Client
}

func NewXXILister(venueName, pageURL string) *XXILister {
	return &XXILister{
		VenueName: venueName,
		URL:       pageURL,
		http:      &http.Client{},
	}
}

func (x *XXILister) List(ctx context.Context) ([]Listing, error) {
	doc, err := fetchDocument(ctx, x.http, x.URL)
	if err != nil {
		// The 21cineplex site serves a certificate chain some hosts
		// cannot verify; retry without verification.
		x.insecureOnce.Do(func() {
			x.insecure = &http.Client{
				Transport: &http.Transport{
					TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
				},
			}
		})
		doc, err = fetchDocument(ctx, x.insecure, x.URL)
		if err != nil {
			return nil, err
		}
	}

	pane := findByClass(doc, "panel-reguler")
	if pane == nil {
		return nil, fmt.Errorf("xxi page %s: no regular-screen pane", x.URL)
	}

	var listings []Listing
	for _, block := range findAllByClass(pane, "col-9") {
		title := strings.TrimSpace(nodeText(findElement(block, "h3")))
		if title == "" {
			continue
		}

		var showtimes []string
		for _, a := range findAllElements(block, "a") {
			if t := strings.TrimSpace(nodeText(a)); t != "" {
				showtimes = append(showtimes, t)
			}
		}

		listings = append(listings, Listing{
			Title:     strings.ToUpper(title),
			Venue:     x.VenueName,
			Showtimes: showtimes,
		})
	}
	return listings, nil
}

// CGVLister scrapes a cgv.id schedule page. Each list item under
// .schedule-lists holds the title in its first anchor and the showtimes
// in a .showtime-lists block.
type CGVLister struct {
	VenueName string
	URL       string

	http *http.Client
}

func NewCGVLister(venueName, pageURL string) *CGVLister {
	return &CGVLister{
		VenueName: venueName,
		URL:       pageURL,
		http:      &http.Client{},
	}
}

func (c *CGVLister) List(ctx context.Context) ([]Listing, error) {
	doc, err := fetchDocument(ctx, c.http, c.URL)
	if err != nil {
		return nil, err
	}

	container := findByClass(doc, "schedule-lists")
	if container == nil {
		return nil, fmt.Errorf("cgv page %s: no schedule list", c.URL)
	}
	list := findElement(container, "ul")
	if list == nil {
		return nil, fmt.Errorf("cgv page %s: no schedule items", c.URL)
	}

	var listings []Listing
	for item := list.FirstChild; item != nil; item = item.NextSibling {
		if item.Type != html.ElementNode || item.Data != "li" {
			continue
		}

		titleAnchor := findElement(findElement(item, "div"), "a")
		title := strings.TrimSpace(nodeText(titleAnchor))
		if title == "" {
			continue
		}

		var showtimes []string
		if sched := findByClass(item, "showtime-lists"); sched != nil {
			showtimes = strings.Fields(nodeText(sched))
		}

		listings = append(listings, Listing{
			Title:     strings.ToUpper(title),
			Venue:     c.VenueName,
			Showtimes: showtimes,
		})
	}
	return listings, nil
}

func fetchDocument(ctx context.Context, client *http.Client, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", pageURL, err)
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, res.StatusCode)
	}

	doc, err := html.Parse(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func findByClass(n *html.Node, class string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findByClass(child, class); found != nil {
			return found
		}
	}
	return nil
}

func findAllByClass(n *html.Node, class string) []*html.Node {
	if n == nil {
		return nil
	}
	var found []*html.Node
	if n.Type == html.ElementNode && hasClass(n, class) {
		found = append(found, n)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		found = append(found, findAllByClass(child, class)...)
	}
	return found
}

func findElement(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func findAllElements(n *html.Node, tag string) []*html.Node {
	if n == nil {
		return nil
	}
	var found []*html.Node
	if n.Type == html.ElementNode && n.Data == tag {
		found = append(found, n)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		found = append(found, findAllElements(child, tag)...)
	}
	return found
}

func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}
