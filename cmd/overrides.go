package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/identity-cli/internal/mapping"
	"github.com/sells-group/identity-cli/internal/model"
)

var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "Validate and manage static override tiers",
}

var overridesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse the configured override files and report tier sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := mapping.LoadOverrides(cfg.Overrides.Files)
		if err != nil {
			return err
		}

		for _, tier := range set.Tiers() {
			fmt.Printf("%s: %d entries\n", tier.Name, tier.Entries)
		}
		if len(set.Tiers()) == 0 {
			fmt.Println("no override files configured")
		}
		return nil
	},
}

var overridesInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Delete override-derived entries from the mapping cache",
	Long:  "Removes cached mappings whose source tier is override. Run after dropping entries from an override file; cached derivatives of removed overrides are not retracted automatically.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.store.Invalidate(ctx, model.TierOverride)
		if err != nil {
			return err
		}
		fmt.Printf("invalidated %d cached override-derived mappings\n", n)
		return nil
	},
}

func init() {
	overridesCmd.AddCommand(overridesCheckCmd, overridesInvalidateCmd)
	rootCmd.AddCommand(overridesCmd)
}
