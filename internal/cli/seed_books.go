package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshare/internal/books"
	"github.com/mrlokans/bookshare/internal/config"
	"github.com/mrlokans/bookshare/internal/database"
	booksdb "github.com/mrlokans/bookshare/internal/database/books"
	"github.com/mrlokans/bookshare/internal/database/users"
	"github.com/mrlokans/bookshare/internal/entities"
	"github.com/mrlokans/bookshare/internal/notify"
	"github.com/mrlokans/bookshare/internal/storage"
	"github.com/mrlokans/bookshare/internal/utils"
)

// SeedBooksCommand adds every PDF and EPUB in a directory to the catalog
// under an existing author.
type SeedBooksCommand struct {
	Dir          string
	Author       string
	Genre        string
	Availability string
	Approve      bool
	DryRun       bool

	cfg *config.Config
	out io.Writer
}

// SeedResult counts what a seed run did.
type SeedResult struct {
	Added   int
	Skipped int
	Failed  []string
}

func NewSeedBooksCommand(cfg *config.Config) *SeedBooksCommand {
	return &SeedBooksCommand{cfg: cfg, out: os.Stdout}
}

func (cmd *SeedBooksCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed-books", flag.ExitOnError)

	fs.StringVar(&cmd.Dir, "dir", "", "Directory with PDF or EPUB files (required)")
	fs.StringVar(&cmd.Author, "author", "", "Username of the author who owns the books (required)")
	fs.StringVar(&cmd.Genre, "genre", "other", "Genre key for every book")
	fs.StringVar(&cmd.Availability, "availability", string(entities.AvailabilityBorrow), "borrow, download, both or unavailable")
	fs.BoolVar(&cmd.Approve, "approve", false, "Publish the books instead of queueing them for moderation")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "List the files without adding them")
	fs.StringVar(&cmd.cfg.Database.Path, "db", cmd.cfg.Database.Path, "Path to the sqlite database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed-books -dir <path> -author <username> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Add book files from a directory to the catalog. Titles come from file names.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s seed-books -dir ./library -author alice -availability both -approve\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Dir == "" {
		return fmt.Errorf("required flag -dir not provided")
	}
	if cmd.Author == "" {
		return fmt.Errorf("required flag -author not provided")
	}
	if !entities.Availability(cmd.Availability).Valid() {
		return fmt.Errorf("unknown availability %q", cmd.Availability)
	}
	if !entities.IsValidGenre(cmd.Genre) {
		return fmt.Errorf("unknown genre %q", cmd.Genre)
	}
	return nil
}

func (cmd *SeedBooksCommand) Run() error {
	paths, err := bookFiles(cmd.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "Found %d book files in %s\n", len(paths), cmd.Dir)
	if cmd.DryRun {
		for _, f := range paths {
			fmt.Fprintf(cmd.out, "  %s -> %q\n", filepath.Base(f), utils.TitleFromFilename(f))
		}
		return nil
	}

	db, err := database.NewDatabase(cmd.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	fileStore, err := storage.New(cmd.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize file storage: %w", err)
	}

	repo := booksdb.NewRepository(db.DB)
	svc := books.NewService(repo, fileStore, notify.Discard{}, cmd.cfg.Storage.MaxUpload)
	result, err := cmd.seed(context.Background(), users.NewRepository(db.DB), svc, repo, paths)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.out, "\nAdded %d, skipped %d, failed %d\n", result.Added, result.Skipped, len(result.Failed))
	for _, msg := range result.Failed {
		fmt.Fprintf(cmd.out, "  [ERROR] %s\n", msg)
	}
	return nil
}

// BookPublisher publishes a seeded book without an admin account.
type BookPublisher interface {
	SetStatus(id uint, status entities.BookStatus, reason string) error
}

// AuthorLookup finds the seeding author.
type AuthorLookup interface {
	GetUserByUsername(username string) (*entities.User, error)
}

func (cmd *SeedBooksCommand) seed(ctx context.Context, accounts AuthorLookup, svc *books.Service, publisher BookPublisher, paths []string) (SeedResult, error) {
	var result SeedResult

	author, err := accounts.GetUserByUsername(cmd.Author)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return result, fmt.Errorf("author %q not found", cmd.Author)
	}
	if err != nil {
		return result, fmt.Errorf("failed to load author: %w", err)
	}
	if !author.CanPublish() {
		return result, fmt.Errorf("user %q is a %s and cannot publish books", author.Username, author.Role)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			result.Failed = append(result.Failed, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			continue
		}
		if len(data) == 0 {
			result.Skipped++
			continue
		}

		in := books.Input{
			Title:        utils.TitleFromFilename(path),
			Genre:        cmd.Genre,
			Availability: entities.Availability(cmd.Availability),
		}
		book, err := svc.Submit(ctx, author, in, &books.Upload{Name: filepath.Base(path), Data: data})
		if err != nil {
			result.Failed = append(result.Failed, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			continue
		}
		if cmd.Approve {
			if err := publisher.SetStatus(book.ID, entities.BookStatusApproved, ""); err != nil {
				result.Failed = append(result.Failed, fmt.Sprintf("%s: publish: %v", filepath.Base(path), err))
				continue
			}
		}
		result.Added++
		fmt.Fprintf(cmd.out, "  [OK] %q (id %d)\n", book.Title, book.ID)
	}
	return result, nil
}

// bookFiles lists the PDF and EPUB files directly inside dir, sorted by name.
func bookFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && utils.IsBookFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
