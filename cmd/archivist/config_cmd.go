package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fentz26/archivist/internal/config"
	"github.com/fentz26/archivist/internal/oracle"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with keys masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n", configPath)
		_, err = os.Stdout.Write(data)
		return err
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [backend] [key]",
	Short: "Store the API key for a backend",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editConfig(func(c *config.Config) error {
			return c.SetCredential(oracle.Backend(args[0]), args[1])
		})
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use [backend]",
	Short: "Select the default backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editConfig(func(c *config.Config) error {
			c.Backend = oracle.Backend(args[0])
			return nil
		})
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configUseCmd)
}

// editConfig applies fn to the file contents, ignoring environment
// overrides, and saves the result.
func editConfig(fn func(*config.Config) error) error {
	c, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	if err := config.SaveConfig(configPath, c); err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", configPath)
	return nil
}
