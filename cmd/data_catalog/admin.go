package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/haimhm/datacatalog/catalog/auth"
	"github.com/haimhm/datacatalog/catalog/config"
	"github.com/haimhm/datacatalog/catalog/schema"
	"github.com/haimhm/datacatalog/catalog/seed"
	"github.com/haimhm/datacatalog/utils/logging"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	seedReplace     bool
	seedSyncOptions bool

	newUserPassword string
	newUserRole     string
	resetPassword   bool
)

func init() {
	seedCmd.Flags().BoolVar(&seedReplace, "replace", false, "Delete every existing product before importing")
	seedCmd.Flags().BoolVar(&seedSyncOptions, "sync-options", false, "Rebuild dropdown options from the products already in the catalog")

	createUserCmd.Flags().StringVar(&newUserPassword, "password", "", "Password for the user, prompted for when omitted")
	createUserCmd.Flags().StringVar(&newUserRole, "role", schema.StandardRole, "Role of the user, 'admin' or 'standard'")
	createUserCmd.Flags().BoolVar(&resetPassword, "reset", false, "Overwrite the password of an existing user")
}

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Import products and dropdown options from a yaml file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !seedSyncOptions {
			return fmt.Errorf("a seed file is required unless --sync-options is set")
		}

		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}

		db, err := openDb(cfg)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			doc, err := seed.ParseFile(args[0])
			if err != nil {
				return err
			}

			res, err := seed.Import(db, doc, seedReplace)
			if err != nil {
				return err
			}
			fmt.Printf("created %d products, updated %d products, added %d options\n", res.ProductsCreated, res.ProductsUpdated, res.OptionsAdded)
		}

		if seedSyncOptions {
			added, err := seed.SyncOptions(db)
			if err != nil {
				return err
			}
			slog.Info("synced column options", "added", added, "code", logging.CATALOG_SEED)
			fmt.Printf("added %d options\n", added)
		}

		return nil
	},
}

func readPassword(username string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("--password is required when stdin is not a terminal")
	}

	fmt.Fprintf(os.Stderr, "Password for %v: ", username)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(password), nil
}

var createUserCmd = &cobra.Command{
	Use:   "create-user <username>",
	Short: "Create a user or reset the password of an existing one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := strings.TrimSpace(args[0])
		if !auth.ValidUsername(username) {
			return auth.ErrInvalidUsername
		}
		if !auth.ValidRole(newUserRole) {
			return auth.ErrInvalidRole
		}

		password := newUserPassword
		if password == "" {
			var err error
			if password, err = readPassword(username); err != nil {
				return err
			}
		}

		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}

		db, err := openDb(cfg)
		if err != nil {
			return err
		}

		if resetPassword {
			if err := auth.SetPassword(db, username, password); err != nil {
				return fmt.Errorf("error resetting password for %v: %w", username, err)
			}
			fmt.Printf("password updated for %v\n", username)
			return nil
		}

		created, err := auth.EnsureUser(db, username, password, newUserRole)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("user %v already exists, use --reset to change the password", username)
		}

		slog.Info("created user", "username", username, "role", newUserRole, "code", logging.AUTH_USERS)
		fmt.Printf("created %v user %v\n", newUserRole, username)
		return nil
	},
}
