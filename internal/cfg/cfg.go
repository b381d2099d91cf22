// Package cfg provides configuration and command-line interface setup for CoomerDL.
package cfg

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/keys"
)

// execKey signals that the root command actually ran, as opposed to help or
// completion output.
const execKey = "execute"

var rootCmd = &cobra.Command{
	Use:   "coomerdl [urls...]",
	Short: "CoomerDL is a queued gallery and media downloading tool.",
	Args:  cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.IsSet(keys.ConfigFile) {
			configFile := viper.GetString(keys.ConfigFile)

			cInfo, err := os.Stat(configFile)
			if err != nil {
				return fmt.Errorf("failed check for config file path: %w", err)
			}
			if cInfo.IsDir() {
				return fmt.Errorf("config file %q is a directory, should be a file", configFile)
			}

			if err := loadConfigFile(configFile); err != nil {
				return fmt.Errorf("failed loading config file: %w", err)
			}
		}
		return validateSettings()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Lookup("help").Changed {
			return nil
		}
		if len(args) > 0 {
			urls := append(viper.GetStringSlice(keys.URLs), args...)
			viper.Set(keys.URLs, urls)
		}
		viper.Set(execKey, true)
		return nil
	},
}

// InitCommands initializes the root command and its flags.
func InitCommands() error {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("_", "-")) // Convert "download_dir" to "download-dir"

	if err := initProgramFlags(rootCmd); err != nil {
		return err
	}
	if err := initQueueFlags(rootCmd); err != nil {
		return err
	}
	if err := initNetworkFlags(rootCmd); err != nil {
		return err
	}
	if err := initFilterFlags(rootCmd); err != nil {
		return err
	}
	if err := initEngineFlags(rootCmd); err != nil {
		return err
	}
	return initObserverFlags(rootCmd)
}

// Execute parses flags and runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ShouldRun reports whether the invocation asks for a real run rather than
// help output.
func ShouldRun() bool {
	return viper.GetBool(execKey)
}

// loadConfigFile loads settings from any Viper-supported config file format.
func loadConfigFile(path string) error {
	viper.SetConfigFile(path)
	return viper.ReadInConfig()
}
