package command

import (
	"bytes"
	"strings"
	"text/template"
)

// PromptData is the input to the code and test prompt templates
type PromptData struct {
	// Spec is the specification text the tool acts on
	Spec string
	// ADR is optional architecture decision context
	ADR string
}

const createCodeTemplate = `You are implementing code based on the following specification.

{{if .ADR}}## Architecture Context (ADR)
{{.ADR}}

{{end}}## Specification
{{.Spec}}

## Instructions
1. Implement the code according to the specification
2. Follow best practices and the architectural decisions outlined above
3. Create necessary files and directories
4. Do NOT commit any changes - git operations are handled manually by the user`

const genTestsTemplate = `You are generating tests based on the following specification.

{{if .ADR}}## Architecture Context (ADR)
{{.ADR}}

{{end}}## Specification
{{.Spec}}

## Instructions
1. Generate comprehensive tests for the specified functionality
2. Include unit tests, integration tests where appropriate
3. Follow the testing conventions established in the project
4. Do NOT commit any changes - git operations are handled manually by the user`

var (
	createCodePrompt = template.Must(template.New("create_code").Parse(createCodeTemplate))
	genTestsPrompt   = template.Must(template.New("gen_tests").Parse(genTestsTemplate))
)

// RenderPrompt expands tmpl with data. A whitespace-only ADR is treated as absent.
func RenderPrompt(tmpl *template.Template, data PromptData) (string, error) {
	data.ADR = strings.TrimSpace(data.ADR)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
