package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenLibraryClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewOpenLibraryClient(server.URL + "/")
	client.rateLimiter = newRateLimiter(0)
	return client
}

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"978-0-13-468599-1", "9780134685991"},
		{"0-13-468599-6", "0134685996"},
		{"978 0 13 468599 1", "9780134685991"},
		{"  978-0-13-468599-1  ", "9780134685991"},
		{"123", ""},
		{"12345678901234", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeISBN(tt.input), tt.input)
	}
}

func TestParsePublishDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2020", "2020-01-01"},
		{"January 15, 2019", "2019-01-15"},
		{"Jan 15, 2019", "2019-01-15"},
		{"2021-06-15", "2021-06-15"},
		{"March 2018", "2018-03-01"},
		{"Published in 1999", "1999-01-01"},
	}
	for _, tt := range tests {
		got := parsePublishDate(tt.input)
		require.NotNil(t, got, tt.input)
		assert.Equal(t, tt.want, got.Format("2006-01-02"), tt.input)
	}

	assert.Nil(t, parsePublishDate(""))
	assert.Nil(t, parsePublishDate("no year here"))
}

func TestLookupISBN(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Bookshare")
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/isbn/9780441013593.json":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"key":             "/books/OL1M",
				"title":           "Dune",
				"publishers":      []string{"Ace"},
				"publish_date":    "August 2, 2005",
				"number_of_pages": 528,
				"authors":         []map[string]string{{"key": "/authors/OL2A"}},
				"languages":       []map[string]string{{"key": "/languages/eng"}},
				"subjects":        []string{"Fiction, science fiction, general"},
				"description":     map[string]string{"type": "/type/text", "value": "Desert planet."},
			})
		case "/authors/OL2A.json":
			_ = json.NewEncoder(w).Encode(map[string]string{"name": "Frank Herbert"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	details, err := client.LookupISBN(context.Background(), "978-0-441-01359-3")
	require.NoError(t, err)

	assert.Equal(t, "Dune", details.Title)
	assert.Equal(t, "Frank Herbert", details.Author)
	assert.Equal(t, "9780441013593", details.ISBN)
	assert.Equal(t, "Ace", details.Publisher)
	assert.Equal(t, 528, details.Pages)
	assert.Equal(t, "English", details.Language)
	assert.Equal(t, "Desert planet.", details.Description)
	assert.Equal(t, "sci-fi", details.Genre)
	require.NotNil(t, details.PublicationDate)
	assert.Equal(t, "2005-08-02", details.PublicationDate.Format("2006-01-02"))
}

func TestLookupISBN_AuthorFailureKeepsEdition(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/isbn/0134685996.json" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"title":   "Effective Java",
				"authors": []map[string]string{{"key": "/authors/OL9A"}},
			})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	details, err := client.LookupISBN(context.Background(), "0134685996")
	require.NoError(t, err)
	assert.Equal(t, "Effective Java", details.Title)
	assert.Empty(t, details.Author)
}

func TestLookupISBN_Errors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.LookupISBN(context.Background(), "0000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.LookupISBN(context.Background(), "invalid")
	assert.ErrorIs(t, err, ErrInvalidISBN)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(50 * time.Millisecond)

	start := time.Now()
	require.NoError(t, rl.wait(context.Background()))
	require.NoError(t, rl.wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rl.wait(ctx), context.Canceled)
}

func TestBookDetails_FormValues(t *testing.T) {
	published := time.Date(1965, time.August, 1, 0, 0, 0, 0, time.UTC)
	d := &BookDetails{
		Title:           "Dune",
		Author:          "Frank Herbert",
		ISBN:            "9780441013593",
		Pages:           412,
		PublicationDate: &published,
		Genre:           "sci-fi",
	}

	values := d.FormValues()
	assert.Equal(t, "Dune", values["title"])
	assert.Equal(t, "Frank Herbert", values["original_author"])
	assert.Equal(t, "412", values["pages"])
	assert.Equal(t, "1965-08-01", values["publication_date"])
	assert.Equal(t, "sci-fi", values["genre"])
	assert.NotContains(t, values, "publisher")
}

func TestGenreForSubjects(t *testing.T) {
	assert.Equal(t, "sci-fi", GenreForSubjects([]string{"Fiction", "Science fiction"}))
	assert.Equal(t, "children", GenreForSubjects([]string{"Juvenile fiction"}))
	assert.Equal(t, "fiction", GenreForSubjects([]string{"Fiction, general"}))
	assert.Empty(t, GenreForSubjects([]string{"Cooking"}))
	assert.Empty(t, GenreForSubjects(nil))
}
