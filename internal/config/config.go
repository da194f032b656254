package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete specstudio configuration
type Config struct {
	Shell   ShellConfig   `mapstructure:"shell" yaml:"shell"`
	Tools   ToolsConfig   `mapstructure:"tools" yaml:"tools"`
	Ghost   GhostConfig   `mapstructure:"ghost" yaml:"ghost"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// ShellConfig controls how child processes are spawned and streamed
type ShellConfig struct {
	// ReadBufferSize is the size in bytes of each output read (default: 1024, min: 256, max: 65536)
	ReadBufferSize int `mapstructure:"read_buffer_size" yaml:"read_buffer_size"`
	// PTYActions lists the actions that run attached to a pseudo-terminal.
	// All other actions use plain pipes.
	PTYActions []string `mapstructure:"pty_actions" yaml:"pty_actions"`
	// PTYCols and PTYRows set the initial terminal size for PTY runs
	PTYCols int `mapstructure:"pty_cols" yaml:"pty_cols"`
	PTYRows int `mapstructure:"pty_rows" yaml:"pty_rows"`
	// TempDir is where prompt files are written (default: OS temp dir)
	TempDir string `mapstructure:"temp_dir" yaml:"temp_dir"`
}

// ToolsConfig names the external binaries specstudio drives
type ToolsConfig struct {
	// Claude is the AI CLI binary name or absolute path (default: "claude")
	Claude string `mapstructure:"claude" yaml:"claude"`
	// NPM is the build tool binary name or absolute path (default: "npm")
	NPM string `mapstructure:"npm" yaml:"npm"`
	// ExtraSearchDirs are probed before the built-in install locations
	ExtraSearchDirs []string `mapstructure:"extra_search_dirs" yaml:"extra_search_dirs"`
}

// GhostConfig controls automatic dismissal of the AI CLI's permission prompt
type GhostConfig struct {
	// Enabled turns ghost input on for PTY runs (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Mode selects when keys are sent.
	// Options: "timer" (after DelayMs), "pattern" (when PromptPattern appears in output)
	Mode string `mapstructure:"mode" yaml:"mode"`
	// DelayMs is how long timer mode waits before the first key
	DelayMs int `mapstructure:"delay_ms" yaml:"delay_ms"`
	// KeyIntervalMs is the pause between consecutive keys
	KeyIntervalMs int `mapstructure:"key_interval_ms" yaml:"key_interval_ms"`
	// Keys is the ordered key sequence, by name (see KeyNames)
	Keys []string `mapstructure:"keys" yaml:"keys"`
	// PromptPattern is the text pattern mode waits for, matched after ANSI stripping
	PromptPattern string `mapstructure:"prompt_pattern" yaml:"prompt_pattern"`
	// PatternTimeoutMs bounds how long pattern mode watches before giving up
	PatternTimeoutMs int `mapstructure:"pattern_timeout_ms" yaml:"pattern_timeout_ms"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is active (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level sets the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the directory holding specstudio.log (default: <config dir>/logs)
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// ServerConfig controls the websocket bridge used by the GUI
type ServerConfig struct {
	// Addr is the listen address (default: "127.0.0.1:7419")
	Addr string `mapstructure:"addr" yaml:"addr"`
	// AllowedOrigins are host patterns accepted during the websocket handshake
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Shell: ShellConfig{
			ReadBufferSize: 1024,
			PTYActions:     []string{"create_code", "gen_tests", "run_tool"},
			PTYCols:        120,
			PTYRows:        40,
			TempDir:        "",
		},
		Tools: ToolsConfig{
			Claude:          "claude",
			NPM:             "npm",
			ExtraSearchDirs: []string{},
		},
		Ghost: GhostConfig{
			Enabled:          true,
			Mode:             GhostModeTimer,
			DelayMs:          2500,
			KeyIntervalMs:    150,
			Keys:             []string{"down", "enter"},
			PromptPattern:    "Bypass Permissions mode",
			PatternTimeoutMs: 30000,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:7419",
			AllowedOrigins: []string{"localhost:*", "tauri.localhost"},
		},
	}
}

// Ghost modes
const (
	GhostModeTimer   = "timer"
	GhostModePattern = "pattern"
)

// keyBytes maps ghost key names to the bytes a terminal sends for them
var keyBytes = map[string][]byte{
	"up":     []byte("\x1b[A"),
	"down":   []byte("\x1b[B"),
	"right":  []byte("\x1b[C"),
	"left":   []byte("\x1b[D"),
	"enter":  []byte("\r"),
	"tab":    []byte("\t"),
	"space":  []byte(" "),
	"escape": []byte("\x1b"),
	"y":      []byte("y"),
	"n":      []byte("n"),
}

// KeyNames returns the key names accepted in ghost.keys
func KeyNames() []string {
	return []string{"up", "down", "right", "left", "enter", "tab", "space", "escape", "y", "n"}
}

// KeySequence converts the configured key names to byte sequences.
// Unknown names are skipped; Validate reports them.
func (g *GhostConfig) KeySequence() [][]byte {
	seq := make([][]byte, 0, len(g.Keys))
	for _, name := range g.Keys {
		if b, ok := keyBytes[strings.ToLower(name)]; ok {
			seq = append(seq, b)
		}
	}
	return seq
}

// Delay returns the timer-mode delay as a time.Duration
func (g *GhostConfig) Delay() time.Duration {
	return time.Duration(g.DelayMs) * time.Millisecond
}

// KeyInterval returns the pause between keys as a time.Duration
func (g *GhostConfig) KeyInterval() time.Duration {
	return time.Duration(g.KeyIntervalMs) * time.Millisecond
}

// PatternTimeout returns the pattern-mode watch limit as a time.Duration
func (g *GhostConfig) PatternTimeout() time.Duration {
	return time.Duration(g.PatternTimeoutMs) * time.Millisecond
}

// UsesPTY reports whether the given action runs under a pseudo-terminal
func (s *ShellConfig) UsesPTY(action string) bool {
	for _, a := range s.PTYActions {
		if a == action {
			return true
		}
	}
	return false
}

// ResolveTempDir returns TempDir, or the OS temp directory when unset
func (s *ShellConfig) ResolveTempDir() string {
	if s.TempDir != "" {
		return s.TempDir
	}
	return os.TempDir()
}

// ResolveDir returns the log directory, defaulting to <config dir>/logs
func (l *LoggingConfig) ResolveDir() string {
	if l.Dir != "" {
		return l.Dir
	}
	return filepath.Join(ConfigDir(), "logs")
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Shell defaults
	viper.SetDefault("shell.read_buffer_size", defaults.Shell.ReadBufferSize)
	viper.SetDefault("shell.pty_actions", defaults.Shell.PTYActions)
	viper.SetDefault("shell.pty_cols", defaults.Shell.PTYCols)
	viper.SetDefault("shell.pty_rows", defaults.Shell.PTYRows)
	viper.SetDefault("shell.temp_dir", defaults.Shell.TempDir)

	// Tools defaults
	viper.SetDefault("tools.claude", defaults.Tools.Claude)
	viper.SetDefault("tools.npm", defaults.Tools.NPM)
	viper.SetDefault("tools.extra_search_dirs", defaults.Tools.ExtraSearchDirs)

	// Ghost defaults
	viper.SetDefault("ghost.enabled", defaults.Ghost.Enabled)
	viper.SetDefault("ghost.mode", defaults.Ghost.Mode)
	viper.SetDefault("ghost.delay_ms", defaults.Ghost.DelayMs)
	viper.SetDefault("ghost.key_interval_ms", defaults.Ghost.KeyIntervalMs)
	viper.SetDefault("ghost.keys", defaults.Ghost.Keys)
	viper.SetDefault("ghost.prompt_pattern", defaults.Ghost.PromptPattern)
	viper.SetDefault("ghost.pattern_timeout_ms", defaults.Ghost.PatternTimeoutMs)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Server defaults
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "specstudio")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".specstudio"
	}
	return filepath.Join(home, ".config", "specstudio")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
