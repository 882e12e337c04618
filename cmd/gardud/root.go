package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gorm.io/gorm"

	"gardu-monitor-backend/config"
	"gardu-monitor-backend/internal/db"
	"gardu-monitor-backend/internal/importer"
	"gardu-monitor-backend/internal/model"
	"gardu-monitor-backend/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "gardud",
	Short: "Backend for substation load measurements",
	Long: `gardud serves the substation measurement API and keeps an audit trail of
every unbalance correction.

Running gardud without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the notification workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gormDB, err := db.Init(&cfg.Database)
		if err != nil {
			return err
		}
		return db.Close(gormDB)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Import substations and readings from a YAML document",
	Long: `Import substations and readings from a YAML document.

Substations are matched by code. Readings whose (period, row, month) already
has an ACTIVE measurement are skipped, so a seed file can be applied twice.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open seed file: %w", err)
		}
		defer f.Close()

		return withStore(func(s store.Store) error {
			stats, err := importer.Run(cmd.Context(), s, f)
			if err != nil {
				return err
			}
			fmt.Printf("substations: %d, inserted: %d, skipped: %d\n", stats.Substations, stats.Inserted, stats.Skipped)
			return nil
		})
	},
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminPassword string
var adminRole string

var adminCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an admin account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := adminPassword
		if password == "" {
			var err error
			if password, err = promptPassword(); err != nil {
				return err
			}
		}
		if len(password) < 8 {
			return errors.New("password must be at least 8 characters")
		}
		return withStore(func(s store.Store) error {
			user := model.AdminUser{Username: strings.TrimSpace(args[0]), Role: adminRole}
			if err := s.CreateAdminUser(cmd.Context(), &user, password); err != nil {
				return err
			}
			fmt.Printf("created %s user %q (id %d)\n", user.Role, user.Username, user.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default $CONFIG_PATH or ./config/config.yaml)")

	adminCreateCmd.Flags().StringVarP(&adminPassword, "password", "p", "", "password for the new account (prompted when omitted)")
	adminCreateCmd.Flags().StringVar(&adminRole, "role", "admin", "role for the new account")
	adminCmd.AddCommand(adminCreateCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(adminCmd)
}

// loadConfig resolves the config path from the flag, then CONFIG_PATH, then
// the local default. A missing default file falls back to built-in defaults.
func loadConfig() (*config.Config, error) {
	path := configPath
	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path == "" {
		path = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			logger.Printf("no configuration at %s, using defaults", path)
			return config.Default(), nil
		}
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	logger.Printf("configuration loaded successfully from %s", path)
	return cfg, nil
}

// promptPassword reads a password twice from the terminal without echo.
func promptPassword() (string, error) {
	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	if string(password) != string(confirm) {
		return "", errors.New("passwords do not match")
	}
	return string(password), nil
}

// withStore opens and migrates the database, runs fn and closes it again.
func withStore(fn func(store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return err
	}
	defer func(g *gorm.DB) {
		if err := db.Close(g); err != nil {
			logger.Printf("failed to close database: %v", err)
		}
	}(gormDB)
	return fn(store.NewGormStore(gormDB))
}
