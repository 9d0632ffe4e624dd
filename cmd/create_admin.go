package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/clydetadiwa/folio/internal/config"
	"github.com/clydetadiwa/folio/internal/storage"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	Long:  "Create an admin account for the CMS. The password is stored as a bcrypt hash.",
	RunE:  runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().String("username", "", "admin username")
	createAdminCmd.Flags().String("password", "", "admin password")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("password")
}

func runCreateAdmin(cmd *cobra.Command, _ []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, _, err := storage.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	admin := &storage.Admin{Username: username, PasswordHash: string(hash)}
	if err := storage.NewSQLiteAdminStore(db).Create(cmd.Context(), admin); err != nil {
		if errors.Is(err, storage.ErrDuplicateUsername) {
			return fmt.Errorf("admin %q already exists", username)
		}
		return fmt.Errorf("creating admin: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "admin %q created\n", username)
	return nil
}
