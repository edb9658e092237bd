package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/keydash/keydash/internal/datastore"
	"github.com/keydash/keydash/internal/service"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin users",
		Long:  "Create and list the admin accounts that can sign in to the dashboard.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin user",
		Example: `  keydash admin create --username alice --password secret123
  keydash admin create --username alice  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(cmd.Context(), username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Admin username (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runAdminCreate(ctx context.Context, username, password string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Prompt for password if not provided
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	tree, authSvc, _, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer tree.Close()

	admin, err := authSvc.CreateAdmin(ctx, username, password)
	if errors.Is(err, service.ErrUsernameTaken) {
		return fmt.Errorf("an admin named %q already exists", username)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Created admin user %q\n", admin.Username)
	fmt.Printf("  ID: %s\n", admin.ID)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(ctx context.Context, jsonOutput bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	tree, authSvc, _, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer tree.Close()

	admins, err := authSvc.ListAdmins(ctx)
	if err != nil && !errors.Is(err, datastore.ErrNotFound) {
		return fmt.Errorf("list admins: %w", err)
	}

	type adminRow struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	rows := make([]adminRow, 0, len(admins))
	for _, a := range admins {
		rows = append(rows, adminRow{ID: a.ID, Username: a.Username})
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No admin users configured. Use 'keydash admin create' to create one.")
		return nil
	}

	fmt.Printf("%-38s %-24s\n", "ID", "USERNAME")
	fmt.Printf("%-38s %-24s\n", "--", "--------")
	for _, a := range rows {
		fmt.Printf("%-38s %-24s\n", a.ID, a.Username)
	}

	return nil
}
