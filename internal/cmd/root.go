package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/techspeque/specstudio/internal/config"
	"github.com/techspeque/specstudio/internal/errors"
)

var rootCmd = &cobra.Command{
	Use:   "specstudio",
	Short: "Streaming process backend for spec-driven development",
	Long: `SpecStudio runs AI code generation and project build tools as supervised
child processes and streams their output, exit status and injected input
as events, either to this terminal or to a connected GUI frontend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/specstudio/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SPECSTUDIO")
	// e.g., SPECSTUDIO_GHOST_DELAY_MS for ghost.delay_ms
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// exitError carries a child's exit status out of a command so main can
// exit with the same code.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.code)
}

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.code < 0 || ee.code > 255 {
			return 1
		}
		return ee.code
	}
	return 1
}

// IsExitStatus reports whether err only carries a child's exit status,
// which has already been shown to the user.
func IsExitStatus(err error) bool {
	var ee *exitError
	return errors.As(err, &ee)
}
