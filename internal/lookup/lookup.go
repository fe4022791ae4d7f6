// Package lookup queries OpenLibrary for canonical author names and book
// titles. Every failure degrades to "no suggestion".
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"audiomason/internal/logging"
	"audiomason/internal/textutil"
)

const (
	userAgent = "audiomason/1.0"
	// minConfidence is the token cosine similarity a candidate needs before
	// it is offered.
	minConfidence = 0.5
	searchLimit   = "5"
)

// Client is an OpenLibrary search client.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New returns a client for baseURL with the given request timeout.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logging.NewComponentLogger(logger, "lookup"),
	}
}

type authorSearch struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Name string `json:"name"`
	} `json:"docs"`
}

type bookSearch struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Title      string   `json:"title"`
		AuthorName []string `json:"author_name"`
	} `json:"docs"`
}

// SuggestAuthor returns the closest OpenLibrary author name for name.
func (c *Client) SuggestAuthor(ctx context.Context, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	var result authorSearch
	if err := c.get(ctx, "/search/authors.json", url.Values{"q": {queryName(name)}, "limit": {searchLimit}}, &result); err != nil {
		c.logger.Debug("author lookup failed", logging.String("query", name), logging.Error(err))
		return "", false
	}
	candidates := make([]string, 0, len(result.Docs))
	for _, doc := range result.Docs {
		candidates = append(candidates, doc.Name)
	}
	return best(name, candidates)
}

// SuggestTitle returns the closest OpenLibrary title for a book by author.
func (c *Client) SuggestTitle(ctx context.Context, author, title string) (string, bool) {
	author, title = strings.TrimSpace(author), strings.TrimSpace(title)
	if author == "" || title == "" {
		return "", false
	}
	params := url.Values{
		"title":  {title},
		"author": {queryName(author)},
		"limit":  {searchLimit},
		"fields": {"key,title,author_name,first_publish_year"},
	}
	var result bookSearch
	if err := c.get(ctx, "/search.json", params, &result); err != nil {
		c.logger.Debug("title lookup failed", logging.String("query", title), logging.Error(err))
		return "", false
	}
	candidates := make([]string, 0, len(result.Docs))
	for _, doc := range result.Docs {
		candidates = append(candidates, doc.Title)
	}
	return best(title, candidates)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openlibrary %s: http %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// queryName turns the library's "Last.First" author form into words.
func queryName(name string) string {
	if last, first, ok := strings.Cut(name, "."); ok && !strings.Contains(name, " ") {
		return strings.TrimSpace(first + " " + last)
	}
	return name
}

func best(query string, candidates []string) (string, bool) {
	var (
		top      string
		topScore float64
	)
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if score := textutil.Similarity(query, candidate); score > topScore {
			top, topScore = candidate, score
		}
	}
	if topScore < minConfidence {
		return "", false
	}
	return top, true
}
