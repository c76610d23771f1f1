package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
	Long:  `Display the effective configuration from all sources (config file, environment variables, flags). PIN hashes and S3 credentials are redacted.`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View current configuration",
	RunE:  runConfigView,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			fmt.Println(cfgFile)
			return nil
		}
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Println(used)
			return nil
		}
		fmt.Println("none found (defaults in effect)")
		return nil
	},
}

func runConfigView(cmd *cobra.Command, args []string) error {
	settings := viper.AllSettings()
	redactSensitive(settings)

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}

	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Printf("# config file: %s\n", used)
	} else {
		fmt.Println("# config file: none found")
	}
	_, err = os.Stdout.Write(out)
	return err
}

// redactSensitive masks values whose keys suggest credentials.
func redactSensitive(settings map[string]interface{}) {
	for key, value := range settings {
		if nested, ok := value.(map[string]interface{}); ok {
			redactSensitive(nested)
			continue
		}
		if isSensitiveKey(key) {
			if s, ok := value.(string); ok && s != "" {
				settings[key] = "***REDACTED***"
			}
		}
	}
}

func isSensitiveKey(name string) bool {
	sensitive := []string{"pin", "hash", "secret", "key", "password", "passphrase", "token"}
	lower := strings.ToLower(name)
	for _, s := range sensitive {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func init() {
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
