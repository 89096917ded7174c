package cmd

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/talent-scout/internal/secrets"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the AI provider API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the API key with owner-only permissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := keyFile()
		if path == "" {
			return fmt.Errorf("no key file location; set ai.gemini.api-key-file or SCOUT_API_KEY_FILE")
		}

		prompt := promptui.Prompt{
			Label: "Gemini API key",
			Mask:  '*',
			Validate: func(input string) error {
				_, err := secrets.Validate("api key", input)
				return err
			},
		}

		value, err := prompt.Run()
		if err != nil {
			return err
		}

		if err := secrets.Save(path, value); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "api key saved to %s\n", path)
		return nil
	},
}

var keyCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that a usable API key is configured",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: viper.GetString("ai.gemini.api-key"),
			File:  keyFile(),
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "api key configured: %s\n", maskSecret(key))
		return nil
	},
}

func keyFile() string {
	return strings.TrimSpace(viper.GetString("ai.gemini.api-key-file"))
}

// maskSecret keeps the last four characters.
func maskSecret(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyCheckCmd)
	rootCmd.AddCommand(keyCmd)
}
