// Package search provides the web-search fallback used when no documents
// are stored.
package search

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultBaseURL = "https://html.duckduckgo.com/html"

// Client scrapes the DuckDuckGo HTML endpoint for result snippets.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 8 * time.Second},
	}
}

// Search returns up to maxResults snippet bodies, in result order. An empty
// slice means the search yielded nothing; transport failures return an error.
func (c *Client) Search(query string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	searchURL := c.baseURL + "/?q=" + url.QueryEscape(query)
	req, err := http.NewRequest("GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var results []string
	// DuckDuckGo structure can change — keep selector conservative.
	doc.Find(".result__body").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxResults {
			return false
		}
		title := strings.TrimSpace(s.Find(".result__a").Text())
		snippet := strings.TrimSpace(s.Find(".result__snippet").Text())
		if title == "" && snippet == "" {
			return true // continue
		}
		results = append(results, strings.TrimSpace(fmt.Sprintf("%s: %s", title, snippet)))
		return true
	})

	return results, nil
}
