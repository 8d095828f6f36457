package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/plmap/internal/cli/output"
	"github.com/leapstack-labs/plmap/internal/engine"
	"github.com/leapstack-labs/plmap/pkg/core"
)

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	var diagnosticsOnly bool

	cmd := &cobra.Command{
		Use:   "parse [files...]",
		Short: "Parse sources and list units and diagnostics",
		Long: `Parse procedural SQL sources and list every recovered unit with its
signature and line range, followed by the diagnostics the parser recorded.

Without arguments the configured sources under the project root are parsed.`,
		Example: `  # Parse the whole project
  plmap parse

  # Parse two files as one corpus
  plmap parse billing.pks billing.pkb

  # Only show diagnostics, as JSON
  plmap parse --diagnostics -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			corpus, err := cc.LoadCorpus(cmd.Context(), args)
			if err != nil {
				return err
			}
			return renderParse(cc.Renderer, corpus.Merged(), diagnosticsOnly)
		},
	}

	cmd.Flags().BoolVar(&diagnosticsOnly, "diagnostics", false, "Only list diagnostics")
	return cmd
}

// unitView is the structured form of a unit in command output.
type unitView struct {
	ID            string        `json:"id" yaml:"id"`
	Kind          core.NodeKind `json:"kind" yaml:"kind"`
	QualifiedName string        `json:"qualified_name" yaml:"qualified_name"`
	Signature     string        `json:"signature,omitempty" yaml:"signature,omitempty"`
	File          string        `json:"file" yaml:"file"`
	StartLine     int           `json:"start_line" yaml:"start_line"`
	EndLine       int           `json:"end_line" yaml:"end_line"`
	HasBody       bool          `json:"has_body" yaml:"has_body"`
}

type diagnosticView struct {
	Kind     core.DiagKind `json:"kind" yaml:"kind"`
	Severity string        `json:"severity" yaml:"severity"`
	File     string        `json:"file,omitempty" yaml:"file,omitempty"`
	Line     int           `json:"line,omitempty" yaml:"line,omitempty"`
	Message  string        `json:"message" yaml:"message"`
}

type parseView struct {
	Units       []unitView       `json:"units,omitempty" yaml:"units,omitempty"`
	Diagnostics []diagnosticView `json:"diagnostics" yaml:"diagnostics"`
}

func newParseView(res *engine.ParseResult, diagnosticsOnly bool) parseView {
	v := parseView{Diagnostics: []diagnosticView{}}
	if !diagnosticsOnly {
		for _, u := range res.Units() {
			uv := unitView{
				ID:            u.ID,
				Kind:          u.Kind,
				QualifiedName: res.QualifiedName(u),
				File:          u.File,
				StartLine:     u.StartLine(),
				EndLine:       u.EndLine(),
				HasBody:       u.HasBody,
			}
			if u.Kind.IsCallable() {
				uv.Signature = u.Signature.String()
			}
			v.Units = append(v.Units, uv)
		}
	}
	for _, d := range res.Diagnostics() {
		v.Diagnostics = append(v.Diagnostics, diagnosticView{
			Kind:     d.Kind,
			Severity: d.Severity.String(),
			File:     d.File,
			Line:     d.Line(),
			Message:  d.Message,
		})
	}
	return v
}

func renderParse(r *output.Renderer, res *engine.ParseResult, diagnosticsOnly bool) error {
	v := newParseView(res, diagnosticsOnly)
	if r.IsStructured() {
		return r.Encode(v)
	}

	if !diagnosticsOnly {
		r.Header(1, "Units")
		rows := make([][]string, 0, len(v.Units))
		for _, u := range v.Units {
			rows = append(rows, []string{
				string(u.Kind),
				u.QualifiedName,
				u.Signature,
				fmt.Sprintf("%s:%d-%d", u.File, u.StartLine, u.EndLine),
			})
		}
		r.Table([]string{"Kind", "Name", "Signature", "Location"}, rows)
	}

	if len(v.Diagnostics) == 0 {
		r.Println(r.Styles().Muted.Render("No diagnostics."))
		return nil
	}
	r.Header(1, "Diagnostics")
	rows := make([][]string, 0, len(v.Diagnostics))
	for _, d := range res.Diagnostics() {
		line := ""
		if d.Line() > 0 {
			line = strconv.Itoa(d.Line())
		}
		rows = append(rows, []string{r.Severity(d.Severity), string(d.Kind), d.File, line, d.Message})
	}
	r.Table([]string{"Severity", "Kind", "File", "Line", "Message"}, rows)
	return nil
}
