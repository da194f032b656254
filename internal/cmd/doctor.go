package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/techspeque/specstudio/internal/deps"
	"github.com/techspeque/specstudio/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the CLI tools specstudio drives are installed",
	Long: `Look up each tool on the augmented search path and report its version.
Exits non-zero when a required tool is missing.`,
	RunE: runDoctor,
}

var doctorJSON bool

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Print the report as JSON")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	res := a.checker().Check(cmd.Context())
	out := cmd.OutOrStdout()

	if doctorJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printDependencies(out, res)
	}

	if !res.AllInstalled {
		return &exitError{code: 1}
	}
	return nil
}

func printDependencies(w io.Writer, res deps.Result) {
	for _, st := range res.Dependencies {
		switch {
		case st.Installed:
			fmt.Fprintf(w, "%s %s %s\n", successStyle.Render(symbolOK), st.Name, mutedStyle.Render(util.Preview(st.Version, previewWidth)))
			fmt.Fprintf(w, "    %s\n", mutedStyle.Render(st.Path))
		case st.Required:
			fmt.Fprintf(w, "%s %s %s\n", failureStyle.Render(symbolFail), st.Name, failureStyle.Render("not found"))
			fmt.Fprintf(w, "    %s\n", st.Description)
			fmt.Fprintf(w, "    install: %s\n", st.InstallURL)
		default:
			fmt.Fprintf(w, "%s %s %s\n", warningStyle.Render(symbolWarn), st.Name, warningStyle.Render("not found (optional)"))
			fmt.Fprintf(w, "    install: %s\n", st.InstallURL)
		}
	}

	fmt.Fprintln(w)
	if res.AllInstalled {
		fmt.Fprintln(w, successStyle.Render("All required tools are installed."))
	} else {
		fmt.Fprintln(w, failureStyle.Render("Some required tools are missing."))
	}
}
