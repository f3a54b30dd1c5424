package metadata

import (
	"strconv"
	"strings"
	"time"
)

// BookDetails is what a lookup knows about an edition.
type BookDetails struct {
	Title           string     `json:"title,omitempty"`
	Author          string     `json:"author,omitempty"`
	ISBN            string     `json:"isbn"`
	Publisher       string     `json:"publisher,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	Pages           int        `json:"pages,omitempty"`
	Language        string     `json:"language,omitempty"`
	Description     string     `json:"description,omitempty"`
	Subjects        []string   `json:"subjects,omitempty"`
	Genre           string     `json:"genre,omitempty"` // catalog genre key, empty when no subject matched
}

// FormValues returns the book form fields the details can fill.
func (d *BookDetails) FormValues() map[string]string {
	values := map[string]string{"isbn": d.ISBN}
	set := func(key, value string) {
		if value != "" {
			values[key] = value
		}
	}
	set("title", d.Title)
	set("original_author", d.Author)
	set("publisher", d.Publisher)
	set("language", d.Language)
	set("description", d.Description)
	set("genre", d.Genre)
	if d.Pages > 0 {
		values["pages"] = strconv.Itoa(d.Pages)
	}
	if d.PublicationDate != nil {
		values["publication_date"] = d.PublicationDate.Format("2006-01-02")
	}
	return values
}

// subjectGenres maps subject keywords to genre keys. Earlier entries win.
var subjectGenres = []struct {
	keyword string
	genre   string
}{
	{"science fiction", "sci-fi"},
	{"fantasy", "fantasy"},
	{"mystery", "mystery"},
	{"detective", "mystery"},
	{"thriller", "thriller"},
	{"suspense", "thriller"},
	{"horror", "horror"},
	{"romance", "romance"},
	{"love stories", "romance"},
	{"biography", "biography"},
	{"autobiography", "biography"},
	{"history", "history"},
	{"self-help", "self-help"},
	{"poetry", "poetry"},
	{"juvenile", "children"},
	{"children", "children"},
	{"young adult", "young-adult"},
	{"textbook", "educational"},
	{"study and teaching", "educational"},
	{"fiction", "fiction"},
}

// GenreForSubjects picks a catalog genre from Open Library subjects.
func GenreForSubjects(subjects []string) string {
	for _, m := range subjectGenres {
		for _, s := range subjects {
			if strings.Contains(strings.ToLower(s), m.keyword) {
				return m.genre
			}
		}
	}
	return ""
}
