package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/ksmt/ava/internal/models"
)

type ProviderConfig struct {
	BaseURL     string // instant answer API endpoint
	HTMLBaseURL string // HTML results endpoint, used as fallback
	RateLimit   float64
	MaxResults  int
	Timeout     time.Duration
}

// Provider performs web searches against DuckDuckGo. The instant
// answer API is tried first; when it yields nothing the HTML results
// page is scraped. Empty results and network failures both come back
// as an empty slice plus the error, so callers can treat them
// uniformly as "no answer".
type Provider struct {
	config  ProviderConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config ProviderConfig) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.duckduckgo.com"
	}
	if config.HTMLBaseURL == "" {
		config.HTMLBaseURL = "https://html.duckduckgo.com/html"
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	if config.MaxResults == 0 {
		config.MaxResults = 5
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

var queryCleaner = regexp.MustCompile(`[^\w\s\-\+]`)

// sanitizeQuery strips special characters and caps the query length.
func sanitizeQuery(query string) string {
	clean := queryCleaner.ReplaceAllString(strings.TrimSpace(query), "")
	clean = strings.Join(strings.Fields(clean), " ")
	if len(clean) > 200 {
		clean = clean[:200]
	}
	return clean
}

// Search returns ranked snippets for the query.
func (p *Provider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	clean := sanitizeQuery(query)
	if clean == "" {
		return nil, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	results, err := p.searchInstantAnswers(ctx, clean)
	if err == nil && len(results) > 0 {
		return results, nil
	}
	if err != nil {
		return nil, fmt.Errorf("instant answer search failed: %v", err)
	}

	return p.searchHTML(ctx, clean)
}

// instantAnswer mirrors the fields we use from the DDG API response.
type instantAnswer struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

func (p *Provider) searchInstantAnswers(ctx context.Context, query string) ([]models.SearchResult, error) {
	reqURL := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		p.config.BaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d", resp.StatusCode)
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, err
	}

	var results []models.SearchResult

	if answer.AbstractText != "" {
		title := answer.Heading
		if title == "" {
			title = "DuckDuckGo Instant Answer"
		}
		results = append(results, models.SearchResult{
			Title:   title,
			Snippet: answer.AbstractText,
			URL:     answer.AbstractURL,
		})
	}

	for _, topic := range answer.RelatedTopics {
		if len(results) >= p.config.MaxResults {
			break
		}
		if topic.Text == "" {
			continue
		}
		results = append(results, models.SearchResult{
			Title:   topicTitle(topic.FirstURL),
			Snippet: topic.Text,
			URL:     topic.FirstURL,
		})
	}

	return results, nil
}

// topicTitle derives a readable title from a related-topic URL.
func topicTitle(firstURL string) string {
	parts := strings.Split(firstURL, "/")
	last := parts[len(parts)-1]
	return strings.ReplaceAll(last, "_", " ")
}

func (p *Provider) searchHTML(ctx context.Context, query string) ([]models.SearchResult, error) {
	reqURL := fmt.Sprintf("%s/?q=%s", p.config.HTMLBaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ava/1.0)")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var results []models.SearchResult
	doc.Find(".result").Each(func(_ int, selection *goquery.Selection) {
		if len(results) >= p.config.MaxResults {
			return
		}

		link := selection.Find(".result__title a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(selection.Find(".result__snippet").First().Text())

		if title == "" {
			return
		}
		if snippet == "" {
			snippet = "No description available"
		}

		results = append(results, models.SearchResult{
			Title:   title,
			Snippet: snippet,
			URL:     href,
		})
	})

	return results, nil
}
