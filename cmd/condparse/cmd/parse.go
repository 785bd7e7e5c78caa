package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/condparse/internal/condparse/render"
	"github.com/msto63/condparse/internal/condparse/service"
	"github.com/msto63/condparse/pkg/condition/parser"
	cperrors "github.com/msto63/condparse/pkg/core/errors"
)

type parseFlags struct {
	file    string
	format  string
	mode    string
	rule    string
	remote  string
	noColor bool
	timeout time.Duration
}

func newParseCmd(opts *options) *cobra.Command {
	f := &parseFlags{}

	cmd := &cobra.Command{
		Use:   "parse [ausdruck...]",
		Short: "Parst einen Ausdruck und gibt den Syntaxbaum aus",
		Long: `Parst einen Bedingungsausdruck und gibt den Syntaxbaum aus.

Der Ausdruck wird aus den Argumenten, aus einer Datei (--file) oder
von der Standardeingabe gelesen.

Modi:
  expression  - Folge aus Strings, $(...)-Auswertungen und Leerraum (default)
  condition   - Verkettung von Operanden mit ==, !=, And, Or
  rule        - Einzelne Grammatikregel (--rule, siehe 'condparse rules')

Syntaxfehler werden mit Position und Erwartungen ausgegeben,
der Exit-Code ist dann 2.

Beispiele:
  condparse parse "'\$(Configuration)' '\$(Platform)'"
  condparse parse --mode condition "\$(A)=='x'And\$(B)!='y'"
  condparse parse --mode rule --rule type-ref "[System.IO.Path]::"
  echo "'a \$(B)'" | condparse parse -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, opts, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Ausdruck aus Datei lesen ('-' für stdin)")
	cmd.Flags().StringVarP(&f.format, "format", "o", "", "Ausgabeformat: text, json, yaml (default aus Config)")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "expression", "Modus: expression, condition, rule")
	cmd.Flags().StringVarP(&f.rule, "rule", "r", "", "Regelname im Modus rule")
	cmd.Flags().StringVar(&f.remote, "remote", "", "Adresse eines condparse-Servers (host:port)")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "Farbige Ausgabe deaktivieren")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 10*time.Second, "Timeout für entfernte Aufrufe")
	return cmd
}

func runParse(cmd *cobra.Command, opts *options, f *parseFlags, args []string) error {
	input, err := readInput(cmd, f.file, args)
	if err != nil {
		return err
	}

	formatName := f.format
	if formatName == "" {
		formatName = opts.cfg.Output.Format
	}
	format, err := render.ParseFormat(formatName)
	if err != nil {
		return err
	}
	mode, err := service.ParseMode(f.mode)
	if err != nil {
		return err
	}
	if f.rule != "" && !cmd.Flags().Changed("mode") {
		mode = service.ModeRule
	}

	b, err := opts.openBackend(f.remote, f.timeout)
	if err != nil {
		return err
	}
	defer b.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
	defer cancel()

	resp, err := b.parse(ctx, &service.Request{
		Expression: input,
		Mode:       mode,
		Rule:       f.rule,
	})
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			errRenderer := render.New(cmd.ErrOrStderr(), opts.colorMode(f.noColor))
			_, _ = io.WriteString(cmd.ErrOrStderr(), errRenderer.ParseError(pe))
			return reported(err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	return render.New(out, opts.colorMode(f.noColor)).Write(out, resp.Nodes, format)
}

// readInput takes the expression from args, a file or stdin. Trailing line
// breaks of file and stdin input are dropped.
func readInput(cmd *cobra.Command, file string, args []string) (string, error) {
	var data []byte
	var err error

	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case file == "-":
		data, err = io.ReadAll(cmd.InOrStdin())
	case file != "":
		data, err = os.ReadFile(file)
	case cmd.InOrStdin() != os.Stdin || !isTerminal(os.Stdin):
		data, err = io.ReadAll(cmd.InOrStdin())
	default:
		return "", cperrors.New("kein Ausdruck angegeben (Argument, --file oder stdin)").
			WithCode(cperrors.CodeInvalidInput)
	}
	if err != nil {
		return "", cperrors.Wrap(err, "Eingabe konnte nicht gelesen werden").
			WithCode(cperrors.CodeInvalidInput)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
