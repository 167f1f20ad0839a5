// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cppypanda/geocoding/keys"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage provider credential keys",
}

var keysUserID int64

var keysAddCmd = &cobra.Command{
	Use:   "add <provider> <key>",
	Short: "Add a key to the pool",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		provider, value := args[0], args[1]

		db, store, err := openKeyStore()
		if err != nil {
			return err
		}
		defer db.Close()

		owner := keys.OwnerSystem
		if keysUserID != 0 {
			owner = keys.OwnerUser
		}

		if err := store.Insert(&keys.Key{
			Value:    value,
			Provider: provider,
			Owner:    owner,
			UserID:   keysUserID,
			Status:   keys.StatusActive,
		}); err != nil {
			return fmt.Errorf("adding key: %w", err)
		}

		fmt.Printf("✅ Added %s key for %s\n", owner, provider)

		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list <provider>",
	Short: "List keys and their health for a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		db, store, err := openKeyStore()
		if err != nil {
			return err
		}
		defer db.Close()

		all, err := store.ListByProvider(args[0])
		if err != nil {
			return fmt.Errorf("listing keys: %w", err)
		}

		if len(all) == 0 {
			fmt.Printf("No keys for %s.\n", args[0])

			return nil
		}

		a, b, c, d := strings.Repeat("─", 20), strings.Repeat("─", 6), strings.Repeat("─", 14), strings.Repeat("─", 20)
		fmt.Printf("╭─%-20s─┬─%-6s─┬─%-14s─┬─%-20s╮\n", a, b, c, d)
		fmt.Printf("│ %-20s │ %-6s │ %-14s │ %-20s│\n", "Key", "Owner", "Status", "Cooldown until")
		fmt.Printf("├─%-20s─┼─%-6s─┼─%-14s─┼─%-20s┤\n", a, b, c, d)

		for _, k := range all {
			cooldown := ""
			if k.CooldownUntil != nil {
				cooldown = k.CooldownUntil.UTC().Format(time.RFC3339)
			}

			fmt.Printf("│ %-20s │ %-6s │ %-14s │ %-20s│\n",
				maskKey(k.Value), k.Owner, k.Status, cooldown)
		}

		fmt.Printf("╰─%-20s─┴─%-6s─┴─%-14s─┴─%-20s╯\n", a, b, c, d)

		return nil
	},
}

// maskKey keeps listings safe to paste into issues.
func maskKey(value string) string {
	if len(value) <= 8 {
		return value
	}

	return value[:4] + "…" + value[len(value)-4:]
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysAddCmd)
	keysCmd.AddCommand(keysListCmd)
	keysAddCmd.PersistentFlags().Int64Var(
		&keysUserID,
		"user",
		0,
		"Owner user id; 0 adds a shared system key",
	)
}
