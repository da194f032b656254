package command

import "text/template"

// Action names accepted by Builder.Build
const (
	ActionCreateCode = "create_code"
	ActionGenTests   = "gen_tests"
	ActionRunTool    = "run_tool"
	ActionRunTests   = "run_tests"
	ActionRunApp     = "run_app"
)

// Parameter keys read from the params map
const (
	ParamSpecContent = "spec_content"
	ParamADRContext  = "adr_context"
)

// tool identifies which configured binary an action runs
type tool int

const (
	toolClaude tool = iota
	toolNPM
)

func (t tool) String() string {
	if t == toolClaude {
		return "claude"
	}
	return "npm"
}

// actionSpec describes how one action becomes a command line
type actionSpec struct {
	tool tool
	// prompt, when set, renders spec_content into the prompt file
	prompt *template.Template
	// needsSpec requires a non-empty spec_content
	needsSpec bool
	// subcommand is forwarded verbatim to the build tool
	subcommand []string
}

var actions = map[string]actionSpec{
	ActionCreateCode: {tool: toolClaude, prompt: createCodePrompt, needsSpec: true},
	ActionGenTests:   {tool: toolClaude, prompt: genTestsPrompt, needsSpec: true},
	ActionRunTool:    {tool: toolClaude, needsSpec: true},
	ActionRunTests:   {tool: toolNPM, subcommand: []string{"test"}},
	ActionRunApp:     {tool: toolNPM, subcommand: []string{"run", "dev"}},
}

// Actions returns every supported action name in a stable order.
func Actions() []string {
	return []string{ActionCreateCode, ActionGenTests, ActionRunTool, ActionRunTests, ActionRunApp}
}

// IsValidAction reports whether name is a supported action.
func IsValidAction(name string) bool {
	_, ok := actions[name]
	return ok
}
