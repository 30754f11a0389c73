package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iliyamo/warranty-manager/internal/config"
	"github.com/iliyamo/warranty-manager/internal/database"
	"github.com/iliyamo/warranty-manager/internal/lifecycle"
	"github.com/iliyamo/warranty-manager/internal/observability/logging"
	"github.com/iliyamo/warranty-manager/internal/queue"
	"github.com/iliyamo/warranty-manager/internal/repository"
	"github.com/iliyamo/warranty-manager/internal/service"
	"github.com/iliyamo/warranty-manager/internal/storage"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every command needs: config, a logger and an open database.
// The caller must defer close().
type env struct {
	cfg config.Config
	log *slog.Logger
	db  *sql.DB
}

func (e *env) close() { _ = e.db.Close() }

func newEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &env{cfg: cfg, log: logging.New(cfg.Log), db: db}, nil
}

func (e *env) users() (*service.UserService, error) {
	files, err := storage.New(context.Background(), e.cfg.Storage)
	if err != nil {
		return nil, err
	}
	clock := lifecycle.RealClock{}
	audit := service.NewAuditRecorder(e.log, repository.NewAuditRepo(e.db), clock)
	return service.NewUserService(e.log, repository.NewUserRepo(e.db), audit, clock, files, e.cfg.Auth.BcryptCost), nil
}

var rootCmd = &cobra.Command{
	Use:          "warrantyctl",
	Short:        "Warranty manager maintenance commands",
	SilenceUsage: true,
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()
		return database.MigrateUp(cmd.Context(), e.db, e.log)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()
		if err := database.MigrateDown(cmd.Context(), e.db); err != nil {
			return err
		}
		fmt.Println("Rolled back one migration.")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		statuses, err := database.MigrationStatus(cmd.Context(), e.db)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tSOURCE")
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
		}
		return w.Flush()
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default admin and user accounts if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		users, err := e.users()
		if err != nil {
			return err
		}
		n, err := users.Seed(cmd.Context(), service.DefaultSeedAccounts)
		if err != nil {
			return err
		}
		fmt.Printf("Created %d account(s).\n", n)
		return nil
	},
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account, or promote an existing one",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")

		password, err := readPassword()
		if err != nil {
			return err
		}

		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		users, err := e.users()
		if err != nil {
			return err
		}
		created, err := users.EnsureAdmin(cmd.Context(), name, email, password)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("Created admin %s\n", email)
		} else {
			fmt.Printf("Promoted %s to admin and reset the password\n", email)
		}
		return nil
	},
}

// readPassword prompts twice on a terminal, or reads one line from a pipe.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		var line string
		if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

var refreshStatusCmd = &cobra.Command{
	Use:   "refresh-status",
	Short: "Recompute every warranty status against today's date",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()

		files, err := storage.New(cmd.Context(), e.cfg.Storage)
		if err != nil {
			return err
		}
		clock := lifecycle.RealClock{}
		audit := service.NewAuditRecorder(e.log, repository.NewAuditRepo(e.db), clock)
		warranties := service.NewWarrantyService(e.log,
			repository.NewWarrantyRepo(e.db), repository.NewProductRepo(e.db),
			audit, clock, files, queue.NopPublisher{}, e.cfg.Storage.MaxFileSize)

		n, err := warranties.RefreshStatuses(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Updated %d warranty status(es).\n", n)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)

	createAdminCmd.Flags().String("email", "", "admin email address")
	createAdminCmd.Flags().String("name", "Administrator", "display name")
	_ = createAdminCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(migrateCmd, seedCmd, createAdminCmd, refreshStatusCmd)
}
