package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidISBN = errors.New("invalid ISBN")
	ErrNotFound    = errors.New("ISBN not found")
)

const userAgent = "Bookshare/1.0 (+https://github.com/mrlokans/bookshare)"

// OpenLibraryClient looks up book details on the Open Library API.
type OpenLibraryClient struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

// wait blocks until the next call is allowed or ctx is done.
func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if since := time.Since(r.lastCall); since < r.interval {
		timer := time.NewTimer(r.interval - since)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	r.lastCall = time.Now()
	return nil
}

// NewOpenLibraryClient creates a client for baseURL, allowing one request per second.
func NewOpenLibraryClient(baseURL string) *OpenLibraryClient {
	if baseURL == "" {
		baseURL = "https://openlibrary.org"
	}
	return &OpenLibraryClient{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: newRateLimiter(time.Second),
	}
}

// LookupISBN fetches the edition for isbn and its first author's name.
func (c *OpenLibraryClient) LookupISBN(ctx context.Context, isbn string) (*BookDetails, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return nil, ErrInvalidISBN
	}

	var edition openLibraryEdition
	if err := c.getJSON(ctx, fmt.Sprintf("/isbn/%s.json", isbn), &edition); err != nil {
		return nil, fmt.Errorf("fetch ISBN %s: %w", isbn, err)
	}

	details := edition.toDetails(isbn)
	if len(edition.Authors) > 0 {
		var author struct {
			Name string `json:"name"`
		}
		// The edition is still useful without an author name.
		if err := c.getJSON(ctx, edition.Authors[0].Key+".json", &author); err == nil {
			details.Author = author.Name
		}
	}
	return details, nil
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, path string, out any) error {
	if err := c.rateLimiter.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type openLibraryEdition struct {
	Key           string      `json:"key"`
	Title         string      `json:"title"`
	Subtitle      string      `json:"subtitle"`
	Authors       []authorRef `json:"authors"`
	Publishers    []string    `json:"publishers"`
	PublishDate   string      `json:"publish_date"`
	NumberOfPages int         `json:"number_of_pages"`
	Description   any         `json:"description"` // string or {type, value}
	Subjects      []string    `json:"subjects"`
	Languages     []authorRef `json:"languages"`
}

type authorRef struct {
	Key string `json:"key"`
}

func (e *openLibraryEdition) toDetails(isbn string) *BookDetails {
	d := &BookDetails{
		Title:    strings.TrimSpace(e.Title),
		ISBN:     isbn,
		Pages:    e.NumberOfPages,
		Subjects: e.Subjects,
		Genre:    GenreForSubjects(e.Subjects),
	}
	if e.Subtitle != "" {
		d.Title += ": " + strings.TrimSpace(e.Subtitle)
	}
	if len(e.Publishers) > 0 {
		d.Publisher = e.Publishers[0]
	}
	if len(e.Languages) > 0 {
		d.Language = languageName(e.Languages[0].Key)
	}
	d.PublicationDate = parsePublishDate(e.PublishDate)

	switch v := e.Description.(type) {
	case string:
		d.Description = v
	case map[string]any:
		if val, ok := v["value"].(string); ok {
			d.Description = val
		}
	}
	return d
}

// NormalizeISBN strips hyphens and spaces. It returns "" unless the result has
// 10 or 13 characters.
func NormalizeISBN(isbn string) string {
	isbn = strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}
	return isbn
}

// parsePublishDate reads Open Library's free-form dates. A bare year becomes
// January 1 of that year.
func parsePublishDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if len(raw) < 4 {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "January 2, 2006", "Jan 2, 2006", "January 2006", "Jan 2006", "2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	// Last resort: the first plausible four-digit year
	for i := 0; i+4 <= len(raw); i++ {
		var year int
		if _, err := fmt.Sscanf(raw[i:i+4], "%4d", &year); err == nil && year > 1000 && year < 3000 {
			t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}

var languageNames = map[string]string{
	"eng": "English",
	"fre": "French",
	"ger": "German",
	"spa": "Spanish",
	"ita": "Italian",
	"rus": "Russian",
	"por": "Portuguese",
	"dut": "Dutch",
}

func languageName(key string) string {
	code := key[strings.LastIndex(key, "/")+1:]
	return languageNames[code]
}
