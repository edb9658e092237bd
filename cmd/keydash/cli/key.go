package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keydash/keydash/internal/datastore"
	"github.com/keydash/keydash/internal/service"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, and deactivate the API keys stored under an admin account.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyDeactivateCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var adminID string

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a new API key for an admin",
		Example: `  keydash key create --admin 0190f1c2-7a4b-7c3d-9e2f-0a1b2c3d4e5f`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(cmd.Context(), adminID)
		},
	}

	cmd.Flags().StringVar(&adminID, "admin", "", "Admin ID that owns the key (required)")
	cmd.MarkFlagRequired("admin")

	return cmd
}

func runKeyCreate(ctx context.Context, adminID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	tree, _, keySvc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer tree.Close()

	key, err := keySvc.Create(ctx, adminID)
	if errors.Is(err, service.ErrUnknownAdmin) {
		return fmt.Errorf("admin %q not found (see 'keydash admin list')", adminID)
	}
	if err != nil {
		return err
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  ID:      %s\n", key.ID)
	fmt.Printf("  Key:     %s\n", key.Key)
	fmt.Printf("  Created: %v\n", key.CreatedAt)
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		adminID    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the API keys of an admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(cmd.Context(), adminID, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&adminID, "admin", "", "Admin ID whose keys to list (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.MarkFlagRequired("admin")

	return cmd
}

func runKeyList(ctx context.Context, adminID string, jsonOutput bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	tree, _, keySvc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer tree.Close()

	keys, err := keySvc.List(ctx, adminID)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(keys)
	}

	if len(keys) == 0 {
		fmt.Println("No API keys found. Use 'keydash key create' to create one.")
		return nil
	}

	fmt.Printf("%-38s %-20s %-26s %-8s\n", "ID", "KEY", "CREATED", "ACTIVE")
	fmt.Printf("%-38s %-20s %-26s %-8s\n", "--", "---", "-------", "------")
	for _, k := range keys {
		active := "yes"
		if !k.Active {
			active = "no"
		}
		fmt.Printf("%-38s %-20s %-26v %-8s\n", k.ID, maskKey(k.Key), k.CreatedAt, active)
	}

	return nil
}

// maskKey shortens a key for table output.
func maskKey(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:11] + "..."
}

// ---------- key deactivate ----------

func newKeyDeactivateCmd() *cobra.Command {
	var adminID string

	cmd := &cobra.Command{
		Use:     "deactivate <key-id>",
		Aliases: []string{"revoke"},
		Short:   "Deactivate an API key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyDeactivate(cmd.Context(), adminID, args[0])
		},
	}

	cmd.Flags().StringVar(&adminID, "admin", "", "Admin ID that owns the key (required)")
	cmd.MarkFlagRequired("admin")

	return cmd
}

func runKeyDeactivate(ctx context.Context, adminID, keyID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	tree, _, keySvc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer tree.Close()

	if err := keySvc.SetActive(ctx, adminID, keyID, false); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return fmt.Errorf("api key %q not found for admin %q", keyID, adminID)
		}
		return fmt.Errorf("deactivate api key: %w", err)
	}

	fmt.Printf("API key %s deactivated\n", keyID)
	return nil
}
