package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fentz26/archivist/internal/config"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the classification policy sent to the backend",
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current policy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := config.LoadRules(cfg.RulesPath)
		if err != nil {
			return err
		}
		fmt.Println(rules)
		return nil
	},
}

var rulesEditCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Replace the policy with the contents of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := config.SaveRules(cfg.RulesPath, string(data)); err != nil {
			return err
		}
		fmt.Printf("Policy saved to %s\n", cfg.RulesPath)
		return nil
	},
}

var rulesResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in policy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ResetRules(cfg.RulesPath); err != nil {
			return err
		}
		fmt.Printf("Policy reset in %s\n", cfg.RulesPath)
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.AddCommand(rulesEditCmd)
	rulesCmd.AddCommand(rulesResetCmd)
}
