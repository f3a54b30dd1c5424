package books

import (
	"bytes"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/mrlokans/bookshare/internal/apperr"
)

const (
	MimePDF  = "application/pdf"
	MimeEPUB = "application/epub+zip"
)

// Upload is a book file received from a form.
type Upload struct {
	Name        string
	ContentType string // as declared by the client
	Data        []byte
}

// DetectMime resolves the upload to PDF or EPUB. The extension wins,
// then the sniffed content, then the declared content type.
func DetectMime(u *Upload) (string, error) {
	switch strings.ToLower(filepath.Ext(u.Name)) {
	case ".pdf":
		return MimePDF, nil
	case ".epub":
		return MimeEPUB, nil
	}

	sniffed := mimetype.Detect(u.Data)
	switch {
	case sniffed.Is(MimePDF):
		return MimePDF, nil
	case sniffed.Is(MimeEPUB):
		return MimeEPUB, nil
	}

	declared := strings.ToLower(u.ContentType)
	switch {
	case strings.Contains(declared, "pdf"):
		return MimePDF, nil
	case strings.Contains(declared, "epub"):
		return MimeEPUB, nil
	}

	return "", apperr.Validation("Only PDF or EPUB files are allowed.")
}

// CountPDFPages returns the page count of a PDF document.
func CountPDFPages(data []byte) (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	return r.NumPage(), nil
}

// pdfPages is CountPDFPages with failures logged and reported as zero.
// The reader panics on some malformed files.
func pdfPages(name string, data []byte) (pages int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[BOOKS] Could not read page count from %s: %v", name, r)
			pages = 0
		}
	}()
	n, err := CountPDFPages(data)
	if err != nil {
		log.Printf("[BOOKS] Could not read page count from %s: %v", name, err)
		return 0
	}
	return n
}
