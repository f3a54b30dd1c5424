package books

import (
	"strings"

	"github.com/mrlokans/bookshare/internal/entities"
)

const DefaultPageSize = 12

// SortOptions maps the accepted sort keys to ORDER BY clauses.
var SortOptions = map[string]string{
	"-created_at":       "created_at DESC",
	"title":             "title ASC",
	"-title":            "title DESC",
	"publication_date":  "publication_date ASC",
	"-publication_date": "publication_date DESC",
}

// SearchFilter narrows the approved catalog.
type SearchFilter struct {
	Query        string
	Genres       []string
	Availability []entities.Availability
	Language     string
	Sort         string
	Page         int
	PageSize     int
}

// SearchResult is one page of matching books.
type SearchResult struct {
	Books    []entities.Book `json:"books"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	Pages    int             `json:"pages"`
	PageSize int             `json:"page_size"`
}

func (f *SearchFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if _, ok := SortOptions[f.Sort]; !ok {
		f.Sort = "-created_at"
	}
}

// Search returns approved books matching the filter.
func (r *Repository) Search(filter SearchFilter) (*SearchResult, error) {
	filter.normalize()

	query := r.withoutBlob().Model(&entities.Book{}).Where("status = ?", entities.BookStatusApproved)

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(original_author) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if len(filter.Genres) > 0 {
		query = query.Where("genre IN ?", filter.Genres)
	}
	if len(filter.Availability) > 0 {
		query = query.Where("availability IN ?", filter.Availability)
	}
	if lang := strings.TrimSpace(filter.Language); lang != "" {
		query = query.Where("LOWER(language) LIKE ?", "%"+strings.ToLower(lang)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var books []entities.Book
	err := query.Preload("Author").
		Order(SortOptions[filter.Sort]).
		Limit(filter.PageSize).
		Offset((filter.Page - 1) * filter.PageSize).
		Find(&books).Error
	if err != nil {
		return nil, err
	}

	pages := int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	if pages == 0 {
		pages = 1
	}

	return &SearchResult{
		Books:    books,
		Total:    total,
		Page:     filter.Page,
		Pages:    pages,
		PageSize: filter.PageSize,
	}, nil
}
