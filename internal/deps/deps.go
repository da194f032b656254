// Package deps reports whether the CLI tools specstudio drives are
// installed and which versions are on the machine.
package deps

import (
	"context"
	"os/exec"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/techspeque/specstudio/internal/binpath"
	"github.com/techspeque/specstudio/internal/config"
	"github.com/techspeque/specstudio/internal/util"
)

// Tool describes one external dependency
type Tool struct {
	Name        string
	Binary      string
	VersionArgs []string
	InstallURL  string
	Description string
	// Required tools count towards Result.AllInstalled
	Required bool
}

// Status is the check outcome for one tool
type Status struct {
	Name        string `json:"name"`
	Installed   bool   `json:"installed"`
	Version     string `json:"version,omitempty"`
	Path        string `json:"path,omitempty"`
	InstallURL  string `json:"installUrl"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Result is the full dependency report
type Result struct {
	AllInstalled bool     `json:"allInstalled"`
	Dependencies []Status `json:"dependencies"`
}

// DefaultTimeout bounds each version probe.
const DefaultTimeout = 10 * time.Second

// DefaultTools returns the tools specstudio's actions depend on.
func DefaultTools(tools config.ToolsConfig) []Tool {
	return []Tool{
		{
			Name:        "Claude Code CLI",
			Binary:      tools.Claude,
			VersionArgs: []string{"--version"},
			InstallURL:  "https://docs.anthropic.com/en/docs/claude-code",
			Description: "Required for AI code generation and tests",
			Required:    true,
		},
		{
			Name:        "npm",
			Binary:      tools.NPM,
			VersionArgs: []string{"--version"},
			InstallURL:  "https://nodejs.org/en/download",
			Description: "Runs the project's test and dev-server scripts",
			Required:    false,
		},
	}
}

// Checker probes tools through a binpath.Resolver
type Checker struct {
	resolver *binpath.Resolver
	tools    []Tool
	timeout  time.Duration
}

// NewChecker creates a Checker for tools.
func NewChecker(resolver *binpath.Resolver, tools []Tool) *Checker {
	return &Checker{resolver: resolver, tools: tools, timeout: DefaultTimeout}
}

// Check probes every tool concurrently. A tool is installed when its
// version command runs and exits zero.
func (c *Checker) Check(ctx context.Context) Result {
	statuses := iter.Map(c.tools, func(t *Tool) Status {
		return c.checkTool(ctx, *t)
	})

	all := true
	for _, s := range statuses {
		if s.Required && !s.Installed {
			all = false
		}
	}
	return Result{AllInstalled: all, Dependencies: statuses}
}

func (c *Checker) checkTool(ctx context.Context, t Tool) Status {
	st := Status{
		Name:        t.Name,
		InstallURL:  t.InstallURL,
		Description: t.Description,
		Required:    t.Required,
	}

	path := c.resolver.Resolve(t.Binary)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, t.VersionArgs...)
	cmd.Env = append(cmd.Environ(), "PATH="+c.resolver.AugmentedPath())
	out, err := cmd.Output()
	if err != nil {
		return st
	}

	st.Installed = true
	st.Path = path
	st.Version = util.FirstLine(string(out))
	return st
}
