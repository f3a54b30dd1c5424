package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mrlokans/bookshare/internal/auth"
	"github.com/mrlokans/bookshare/internal/config"
	"github.com/mrlokans/bookshare/internal/database"
	"github.com/mrlokans/bookshare/internal/entities"
)

// CreateAdminCommand creates an approved administrator account.
type CreateAdminCommand struct {
	Username string
	Email    string
	Password string // read from the terminal when empty

	cfg    *config.Config
	prompt func(label string) (string, error)
	out    io.Writer
}

func NewCreateAdminCommand(cfg *config.Config) *CreateAdminCommand {
	return &CreateAdminCommand{
		cfg:    cfg,
		prompt: readPassword,
		out:    os.Stdout,
	}
}

func (cmd *CreateAdminCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "admin", "Username of the new administrator")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.cfg.Database.Path, "db", cmd.cfg.Database.Path, "Path to the sqlite database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-admin -email <address> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an administrator account. The password is read from the terminal.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd.Username = strings.TrimSpace(cmd.Username)
	cmd.Email = strings.TrimSpace(cmd.Email)
	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}
	return nil
}

func (cmd *CreateAdminCommand) Run() error {
	if cmd.Password == "" {
		password, err := cmd.prompt("Password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		confirm, err := cmd.prompt("Confirm password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if password != confirm {
			return auth.ErrPasswordsDontMatch
		}
		cmd.Password = password
	}
	if err := auth.CheckPasswordStrength(cmd.Password); err != nil {
		return err
	}

	db, err := database.NewDatabase(cmd.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	return cmd.create(auth.NewService(db.DB, cmd.cfg.Auth))
}

func (cmd *CreateAdminCommand) create(svc *auth.Service) error {
	user, err := svc.CreateUser(cmd.Username, cmd.Email, cmd.Password, entities.UserRoleAdmin)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "Created administrator %q (id %d)\n", user.Username, user.ID)
	return nil
}

// readPassword reads a line from the terminal without echo. Piped input is
// read as a plain line.
func readPassword(label string) (string, error) {
	fmt.Print(label)
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
