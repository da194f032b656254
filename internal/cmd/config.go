package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/techspeque/specstudio/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify SpecStudio configuration",
	Long: `View or modify SpecStudio configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  specstudio config set ghost.mode pattern
  specstudio config set shell.read_buffer_size 4096
  specstudio config set tools.claude /opt/claude/bin/claude

Valid keys:
  shell.read_buffer_size     - Bytes per output read (256-65536)
  shell.pty_cols             - PTY width in columns
  shell.pty_rows             - PTY height in rows
  shell.temp_dir             - Directory for prompt files
  tools.claude               - Claude CLI binary name or path
  tools.npm                  - npm binary name or path
  ghost.enabled              - Dismiss the permission dialog automatically (true/false)
  ghost.mode                 - When to dismiss it. Options: timer, pattern
  ghost.delay_ms             - Timer mode delay in milliseconds
  ghost.key_interval_ms      - Pause between injected keys in milliseconds
  ghost.prompt_pattern       - Text that marks the dialog in pattern mode
  ghost.pattern_timeout_ms   - How long pattern mode waits for the dialog
  logging.enabled            - Write the log file (true/false)
  logging.level              - Options: debug, info, warn, error
  logging.dir                - Log directory
  server.addr                - Websocket listen address`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/specstudio/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// settableKeys maps each key accepted by 'config set' to its value type
var settableKeys = map[string]string{
	"shell.read_buffer_size":   "int",
	"shell.pty_cols":           "int",
	"shell.pty_rows":           "int",
	"shell.temp_dir":           "string",
	"tools.claude":             "string",
	"tools.npm":                "string",
	"ghost.enabled":            "bool",
	"ghost.mode":               "string",
	"ghost.delay_ms":           "int",
	"ghost.key_interval_ms":    "int",
	"ghost.prompt_pattern":     "string",
	"ghost.pattern_timeout_ms": "int",
	"logging.enabled":          "bool",
	"logging.level":            "string",
	"logging.dir":              "string",
	"server.addr":              "string",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(out, "%s %v\n\n", warningStyle.Render("Configuration is invalid, showing defaults:"), err)
		cfg = config.Default()
	}

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "# Config file: (none - using defaults)\n")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'specstudio config set --help' to see valid keys", key)
	}

	typedValue, err := parseConfigValue(key, keyType, value)
	if err != nil {
		return err
	}

	// Validate the whole configuration with the new value in place
	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)

	return nil
}

func parseConfigValue(key, keyType, value string) (any, error) {
	switch keyType {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		return intVal, nil
	default:
		if key == "logging.level" {
			value = strings.ToLower(value)
		}
		return value, nil
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'specstudio config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	content := "# SpecStudio configuration\n# Every key can also be set with SPECSTUDIO_<SECTION>_<KEY>.\n\n" + string(data)

	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize SpecStudio's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: SPECSTUDIO_* (e.g., SPECSTUDIO_GHOST_DELAY_MS)")

	return nil
}
