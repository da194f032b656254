// Package command turns an action name and its parameters into a concrete
// command line: the resolved executable, its arguments, working directory,
// environment, and the prompt file the run owns.
package command

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/techspeque/specstudio/internal/binpath"
	"github.com/techspeque/specstudio/internal/config"
	"github.com/techspeque/specstudio/internal/errors"
)

// Mode selects how the child's standard streams are attached
type Mode int

const (
	// ModePipe attaches anonymous pipes for stdin, stdout and stderr
	ModePipe Mode = iota
	// ModePTY attaches a pseudo-terminal; stdout and stderr share the master
	ModePTY
)

func (m Mode) String() string {
	if m == ModePTY {
		return "pty"
	}
	return "pipe"
}

// TempFilePrefix starts the name of every prompt file.
const TempFilePrefix = "specstudio_prompt_"

// Command is a fully resolved invocation
type Command struct {
	Action     string
	Executable string
	Args       []string
	Dir        string
	// Env holds variables set on top of the inherited environment
	Env map[string]string
	// TempFile is the prompt file owned by this run, empty if none
	TempFile string
	Mode     Mode
	// Ghost marks runs that show the AI CLI's permission prompt
	Ghost bool
}

// Environ returns the inherited environment overlaid with c.Env, sorted
// overrides last so they win on duplicate keys.
func (c *Command) Environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(env)+len(keys))
	for _, kv := range env {
		name, _, _ := strings.Cut(kv, "=")
		if _, overridden := c.Env[name]; overridden {
			continue
		}
		out = append(out, kv)
	}
	for _, k := range keys {
		out = append(out, k+"="+c.Env[k])
	}
	return out
}

// RemoveTempFile deletes the prompt file. Missing files are not an error.
func (c *Command) RemoveTempFile() error {
	if c.TempFile == "" {
		return nil
	}
	if err := os.Remove(c.TempFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Builder builds Commands from action requests. It is safe for concurrent use.
type Builder struct {
	resolver *binpath.Resolver
	tools    config.ToolsConfig
	shell    config.ShellConfig
}

// NewBuilder creates a Builder resolving tool binaries through resolver.
func NewBuilder(resolver *binpath.Resolver, tools config.ToolsConfig, shell config.ShellConfig) *Builder {
	return &Builder{resolver: resolver, tools: tools, shell: shell}
}

// Build produces the Command for action. id names the prompt file so
// concurrent runs never share one. An empty cwd means the current directory.
//
// Missing required parameters yield a ConfigError and unknown actions an
// UnsupportedActionError; in both cases nothing is written to disk.
func (b *Builder) Build(id, action, cwd string, params map[string]string) (*Command, error) {
	spec, ok := actions[action]
	if !ok {
		return nil, errors.NewUnsupportedActionError(action)
	}

	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.NewConfigError("cannot determine working directory", err).WithAction(action)
		}
		cwd = wd
	}

	content := params[ParamSpecContent]
	if spec.needsSpec && strings.TrimSpace(content) == "" {
		return nil, errors.NewConfigError("specContent is required for this action", errors.ErrMissingParam).
			WithAction(action).
			WithParam(ParamSpecContent)
	}

	cmd := &Command{
		Action: action,
		Dir:    cwd,
		Env: map[string]string{
			"FORCE_COLOR": "0",
			"PATH":        b.resolver.AugmentedPath(),
		},
		Mode: ModePipe,
	}
	if b.shell.UsesPTY(action) {
		cmd.Mode = ModePTY
	}

	switch spec.tool {
	case toolClaude:
		if err := b.buildClaude(cmd, id, spec, content, params[ParamADRContext]); err != nil {
			return nil, err
		}
	case toolNPM:
		cmd.Executable = b.resolver.Resolve(b.tools.NPM)
		cmd.Args = append([]string(nil), spec.subcommand...)
	}

	return cmd, nil
}

func (b *Builder) buildClaude(cmd *Command, id string, spec actionSpec, content, adr string) error {
	prompt := content
	if spec.prompt != nil {
		rendered, err := RenderPrompt(spec.prompt, PromptData{Spec: content, ADR: adr})
		if err != nil {
			return errors.NewConfigError("failed to render prompt", err).WithAction(cmd.Action)
		}
		prompt = rendered
	}

	path, err := writePromptFile(b.shell.ResolveTempDir(), id, prompt)
	if err != nil {
		return errors.NewResolutionError("failed to write temp prompt file", fmt.Errorf("%w: %w", errors.ErrTempFile, err))
	}

	cmd.Executable = b.resolver.Resolve(b.tools.Claude)
	cmd.TempFile = path

	instruction := fmt.Sprintf("Read %s and follow the instructions it contains.", path)
	if cmd.Mode == ModePTY {
		// Interactive session: the CLI shows its bypass-permissions dialog first.
		cmd.Args = []string{instruction, "--dangerously-skip-permissions"}
		cmd.Ghost = true
	} else {
		cmd.Args = []string{"-p", instruction, "--dangerously-skip-permissions"}
	}
	return nil
}

// TempFilePath returns the prompt file path for a run id inside dir.
func TempFilePath(dir, id string) string {
	return filepath.Join(dir, TempFilePrefix+id+".txt")
}

func writePromptFile(dir, id, prompt string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	path := TempFilePath(dir, id)
	// O_EXCL guards against a stale file from a reused id.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(prompt); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}
