package cmd

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/techspeque/specstudio/internal/command"
	"github.com/techspeque/specstudio/internal/config"
	"github.com/techspeque/specstudio/internal/deps"
	"github.com/techspeque/specstudio/internal/errors"
	"github.com/techspeque/specstudio/internal/logging"
	"github.com/techspeque/specstudio/internal/testutil"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, stdin string, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// setupTestConfig isolates viper, the config directory and the log
// directory, and resets every command's flag variables.
func setupTestConfig(t *testing.T) (configDir, logDir string) {
	t.Helper()

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	viper.Reset()
	config.SetDefaults()
	logDir = t.TempDir()
	viper.Set("logging.dir", logDir)
	viper.Set("ghost.enabled", false)
	t.Cleanup(viper.Reset)

	runSpecFile, runADRFile, runDir, runRaw, runQuiet = "", "", "", false, false
	doctorJSON = false
	serveAddr = ""
	cleanupDryRun, cleanupOlderThan = false, time.Hour
	logsTail, logsFollow, logsLevel, logsSince, logsGrep, logsProcess = 50, false, "", "", "", ""

	return filepath.Join(xdg, "specstudio"), logDir
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "specstudio" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "specstudio")
	}

	expectedCmds := []string{"run", "serve", "doctor", "config", "logs", "cleanup"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestRunCommand_StreamsOutput(t *testing.T) {
	testutil.RequireShell(t)
	setupTestConfig(t)
	npm := testutil.WriteScript(t, t.TempDir(), "npm", `echo "npm $1 in $(pwd)"`)
	viper.Set("tools.npm", npm)

	dir := t.TempDir()
	output, err := executeCommand(rootCmd, "", "run", command.ActionRunTests, "--dir", dir)
	if err != nil {
		t.Fatalf("run failed: %v\nOutput: %s", err, output)
	}

	for _, want := range []string{
		"▶ run_tests",
		"Started run_tests (pid ",
		"npm test in ",
		"✓ exited with code 0",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestRunCommand_ExitCode(t *testing.T) {
	testutil.RequireShell(t)
	setupTestConfig(t)
	npm := testutil.WriteScript(t, t.TempDir(), "npm", "echo boom >&2\nexit 3")
	viper.Set("tools.npm", npm)

	output, err := executeCommand(rootCmd, "", "run", command.ActionRunApp, "--dir", t.TempDir())
	if err == nil {
		t.Fatal("expected the child's exit status as an error")
	}
	if !IsExitStatus(err) || ExitCode(err) != 3 {
		t.Errorf("err = %v, ExitCode = %d", err, ExitCode(err))
	}
	if !strings.Contains(output, "boom") {
		t.Errorf("stderr not streamed:\n%s", output)
	}
	if !strings.Contains(output, "✗ exited with code 3") {
		t.Errorf("missing failure status line:\n%s", output)
	}
}

func TestRunCommand_ForwardsStdinLines(t *testing.T) {
	testutil.RequireShell(t)
	setupTestConfig(t)
	npm := testutil.WriteScript(t, t.TempDir(), "npm", `read line; echo "got:$line"`)
	viper.Set("tools.npm", npm)

	output, err := executeCommand(rootCmd, "hello\n", "run", command.ActionRunTests, "--dir", t.TempDir(), "-q")
	if err != nil {
		t.Fatalf("run failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "got:hello") {
		t.Errorf("stdin line not delivered:\n%s", output)
	}
	if strings.Contains(output, "exited with code") {
		t.Error("--quiet should suppress status lines")
	}
}

func TestRunCommand_ClaudeUnderPTY(t *testing.T) {
	testutil.RequireShell(t)
	setupTestConfig(t)
	tempDir := t.TempDir()
	claude := testutil.WriteScript(t, t.TempDir(), "claude", `echo "instruction: $1"; echo "flag: $2"`)
	viper.Set("tools.claude", claude)
	viper.Set("shell.temp_dir", tempDir)

	specPath := filepath.Join(t.TempDir(), "login.md")
	if err := os.WriteFile(specPath, []byte("# Login\n\nUsers sign in with email."), 0o644); err != nil {
		t.Fatal(err)
	}

	output, err := executeCommand(rootCmd, "", "run", command.ActionCreateCode, "--spec", specPath, "--dir", t.TempDir())
	if err != nil {
		if stderrors.Is(err, errors.ErrSpawnFailed) {
			t.Skipf("pty unavailable: %v", err)
		}
		t.Fatalf("run failed: %v\nOutput: %s", err, output)
	}

	if !strings.Contains(output, "▶ create_code # Login") {
		t.Errorf("missing spec preview:\n%s", output)
	}
	if !strings.Contains(output, "instruction: Read "+tempDir) {
		t.Errorf("prompt file instruction not passed:\n%s", output)
	}
	if !strings.Contains(output, "flag: --dangerously-skip-permissions") {
		t.Errorf("permission flag not passed:\n%s", output)
	}

	matches, _ := filepath.Glob(filepath.Join(tempDir, command.TempFilePrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("prompt file not removed: %v", matches)
	}
}

func TestRunCommand_SpecFromStdin(t *testing.T) {
	testutil.RequireShell(t)
	setupTestConfig(t)
	claude := testutil.WriteScript(t, t.TempDir(), "claude", `cat "$(echo "$2" | sed 's/^Read \(.*\) and follow.*/\1/')"`)
	viper.Set("tools.claude", claude)
	viper.Set("shell.temp_dir", t.TempDir())
	viper.Set("shell.pty_actions", []string{})

	output, err := executeCommand(rootCmd, "print the word pineapple", "run", command.ActionRunTool, "--spec", "-", "--dir", t.TempDir())
	if err != nil {
		t.Fatalf("run failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "print the word pineapple") {
		t.Errorf("spec content from stdin not used as prompt:\n%s", output)
	}
}

func TestRunCommand_PreStartErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown action", []string{"run", "deploy"}, "unsupported_action"},
		{"missing spec", []string{"run", command.ActionGenTests}, "config_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestConfig(t)

			output, err := executeCommand(rootCmd, "", tt.args...)
			if err == nil {
				t.Fatalf("expected error, output: %s", output)
			}
			if errors.Code(err) != tt.code {
				t.Errorf("Code() = %q, want %q (err = %v)", errors.Code(err), tt.code, err)
			}
			if IsExitStatus(err) || ExitCode(err) != 1 {
				t.Errorf("pre-start errors should exit 1, got %d", ExitCode(err))
			}
			if strings.Contains(output, "Started") {
				t.Errorf("no process should have started:\n%s", output)
			}
		})
	}
}

func TestRunCommand_UnreadableSpec(t *testing.T) {
	setupTestConfig(t)
	missing := filepath.Join(t.TempDir(), "nope.md")

	_, err := executeCommand(rootCmd, "", "run", command.ActionGenTests, "--spec", missing)
	if err == nil || !strings.Contains(err.Error(), "failed to read spec "+missing) {
		t.Fatalf("err = %v, want a read failure naming the file", err)
	}
	if !os.IsNotExist(errors.Unwrap(err)) {
		t.Errorf("cause should be the not-exist error, got %v", errors.Unwrap(err))
	}
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	setupTestConfig(t)
	viper.Set("shell.read_buffer_size", 10)

	_, err := executeCommand(rootCmd, "", "run", command.ActionRunTests)
	if err == nil || !strings.Contains(err.Error(), "shell.read_buffer_size") {
		t.Errorf("err = %v, want validation error naming the field", err)
	}
}

func TestDoctorCommand_JSON(t *testing.T) {
	testutil.RequireShell(t)
	setupTestConfig(t)
	claude := testutil.WriteScript(t, t.TempDir(), "claude", `echo "9.9.9 (Claude Code)"`)
	viper.Set("tools.claude", claude)
	viper.Set("tools.npm", filepath.Join(t.TempDir(), "no-npm"))

	output, err := executeCommand(rootCmd, "", "doctor", "--json")
	if err != nil {
		t.Fatalf("doctor failed: %v\nOutput: %s", err, output)
	}

	var res deps.Result
	if err := json.Unmarshal([]byte(output), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	if !res.AllInstalled || len(res.Dependencies) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Dependencies[0].Version != "9.9.9 (Claude Code)" {
		t.Errorf("claude version = %q", res.Dependencies[0].Version)
	}
	if res.Dependencies[1].Installed {
		t.Error("npm should be reported missing")
	}
}

func TestDoctorCommand_MissingRequired(t *testing.T) {
	setupTestConfig(t)
	viper.Set("tools.claude", filepath.Join(t.TempDir(), "no-claude"))

	output, err := executeCommand(rootCmd, "", "doctor")
	if ExitCode(err) != 1 || !IsExitStatus(err) {
		t.Errorf("err = %v, want exit status 1", err)
	}
	if !strings.Contains(output, "Claude Code CLI not found") {
		t.Errorf("output:\n%s", output)
	}
	if !strings.Contains(output, "Some required tools are missing.") {
		t.Errorf("missing summary:\n%s", output)
	}
}

func TestConfigShow(t *testing.T) {
	setupTestConfig(t)

	output, err := executeCommand(rootCmd, "", "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"# Config file:", "read_buffer_size: 1024", "prompt_pattern: Bypass Permissions mode"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestConfigSet(t *testing.T) {
	configDir, _ := setupTestConfig(t)

	output, err := executeCommand(rootCmd, "", "config", "set", "ghost.mode", "pattern")
	if err != nil {
		t.Fatalf("config set failed: %v\nOutput: %s", err, output)
	}
	data, err := os.ReadFile(filepath.Join(configDir, "config.yaml"))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "mode: pattern") {
		t.Errorf("config file:\n%s", data)
	}

	if _, err := executeCommand(rootCmd, "", "config", "set", "ghost.mode", "sometimes"); err == nil {
		t.Error("invalid ghost mode should be rejected")
	}
	if got := viper.GetString("ghost.mode"); got != "pattern" {
		t.Errorf("rejected value leaked into viper: %q", got)
	}

	if _, err := executeCommand(rootCmd, "", "config", "set", "ghost.delay_ms", "soon"); err == nil {
		t.Error("non-integer value should be rejected")
	}
	if _, err := executeCommand(rootCmd, "", "config", "set", "no.such.key", "1"); err == nil {
		t.Error("unknown key should be rejected")
	}
}

func TestConfigInit(t *testing.T) {
	configDir, _ := setupTestConfig(t)

	if _, err := executeCommand(rootCmd, "", "config", "init"); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(configDir, "config.yaml"))
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if !strings.Contains(string(data), "delay_ms: 2500") {
		t.Errorf("defaults not written:\n%s", data)
	}

	if _, err := executeCommand(rootCmd, "", "config", "init"); err == nil {
		t.Error("second init should refuse to overwrite")
	}
}

func TestConfigPath(t *testing.T) {
	configDir, _ := setupTestConfig(t)

	output, err := executeCommand(rootCmd, "", "config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if !strings.Contains(output, filepath.Join(configDir, "config.yaml")) {
		t.Errorf("output:\n%s", output)
	}
	if !strings.Contains(output, "SPECSTUDIO_") {
		t.Error("env prefix not mentioned")
	}
}

func TestLogsCommand(t *testing.T) {
	_, logDir := setupTestConfig(t)

	var buf bytes.Buffer
	logger := logging.New(&buf, "debug")
	logger.WithProcess("proc_1_1").WithAction("run_tests").Info("process started", "pid", 42)
	logger.WithProcess("proc_1_2").Warn("spawn failed")
	logger.WithProcess("proc_1_1").Info("process exited", "exit_code", 0)
	if err := os.WriteFile(filepath.Join(logDir, logging.FileName), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	output, err := executeCommand(rootCmd, "", "logs", "-n", "0", "-p", "proc_1_1")
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if !strings.Contains(output, "process started") || !strings.Contains(output, "process exited") {
		t.Errorf("missing entries:\n%s", output)
	}
	if strings.Contains(output, "spawn failed") {
		t.Errorf("process filter ignored:\n%s", output)
	}

	output, err = executeCommand(rootCmd, "", "logs", "-p", "", "--level", "warn")
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if !strings.Contains(output, "spawn failed") || strings.Contains(output, "process started") {
		t.Errorf("level filter:\n%s", output)
	}
}

func TestLogsCommand_NoFile(t *testing.T) {
	setupTestConfig(t)

	output, err := executeCommand(rootCmd, "", "logs")
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if !strings.Contains(output, "No log file found.") {
		t.Errorf("output:\n%s", output)
	}
}

func TestCleanupCommand(t *testing.T) {
	setupTestConfig(t)
	tempDir := t.TempDir()
	viper.Set("shell.temp_dir", tempDir)

	stale := command.TempFilePath(tempDir, "proc_1_1")
	fresh := command.TempFilePath(tempDir, "proc_1_2")
	for _, path := range []string{stale, fresh} {
		if err := os.WriteFile(path, []byte("prompt"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	output, err := executeCommand(rootCmd, "", "cleanup", "--dry-run")
	if err != nil {
		t.Fatalf("cleanup --dry-run failed: %v", err)
	}
	if !strings.Contains(output, "would remove") || !strings.Contains(output, stale) {
		t.Errorf("dry run output:\n%s", output)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Error("dry run removed a file")
	}

	cleanupDryRun = false
	output, err = executeCommand(rootCmd, "", "cleanup", "--dry-run=false")
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if !strings.Contains(output, "Removed 1 of 1 file(s).") {
		t.Errorf("output:\n%s", output)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale prompt file not removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh prompt file should be kept")
	}
}

func TestLogFilter(t *testing.T) {
	now := time.Now()
	entry := &logEntry{Time: now, Level: "INFO", Msg: "process exited", ProcessID: "proc_1", Extra: map[string]any{"exit_code": 137}}

	tests := []struct {
		name    string
		level   string
		since   string
		grep    string
		process string
		want    bool
	}{
		{"no filters", "", "", "", "", true},
		{"level below minimum", "warn", "", "", "", false},
		{"level at minimum", "info", "", "", "", true},
		{"recent enough", "", "1h", "", "", true},
		{"grep matches extra field", "", "", "137", "", true},
		{"grep misses", "", "", "spawn", "", false},
		{"other process", "", "", "", "proc_2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := newLogFilter(tt.level, tt.since, tt.grep, tt.process)
			if err != nil {
				t.Fatalf("newLogFilter() error = %v", err)
			}
			if got := f.match(entry); got != tt.want {
				t.Errorf("match() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := newLogFilter("", "yesterday", "", ""); err == nil {
		t.Error("bad duration should fail")
	}
	if _, err := newLogFilter("", "", "(", ""); err == nil {
		t.Error("bad regex should fail")
	}
}

func TestFormatLogEntry(t *testing.T) {
	entry := &logEntry{
		Time:      time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:     "WARN",
		Msg:       "ghost input skipped",
		ProcessID: "proc_9",
		Extra:     map[string]any{"reason": "gone", "attempt": 2},
	}
	got := formatLogEntry(entry)
	for _, want := range []string{"15:04:05.000", "[WARN]", "ghost input skipped", "process_id=proc_9", "attempt=2", "reason=gone"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatLogEntry() = %q, missing %q", got, want)
		}
	}
	if strings.Index(got, "attempt=") > strings.Index(got, "reason=") {
		t.Error("extra fields should be sorted")
	}
}

func TestPrinter_StatusStartsOnFreshLine(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, &buf, true)

	p.write(&buf, "partial")
	p.status("done")
	if buf.String() != "partial\ndone\n" {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	quiet := newPrinter(&buf, &buf, false)
	quiet.status("hidden")
	if buf.Len() != 0 {
		t.Error("status should be suppressed when showMeta is false")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain error", stderrors.New("boom"), 1},
		{"child status", &exitError{code: 3}, 3},
		{"signalled child", &exitError{code: 137}, 137},
		{"wait failure", &exitError{code: -1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
