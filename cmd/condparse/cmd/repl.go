package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/msto63/condparse/internal/condparse/render"
	"github.com/msto63/condparse/internal/condparse/service"
	"github.com/msto63/condparse/internal/tui/repl"
)

func newReplCmd(opts *options) *cobra.Command {
	var (
		mode    string
		rule    string
		remote  string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Startet den interaktiven Modus",
		Long: `Startet einen interaktiven Modus, der den Ausdruck bei jedem
Tastendruck neu parst und Baum oder Fehler sofort anzeigt.

Navigation:
  Tab         - Modus wechseln (expression, condition, rule)
  Ctrl+N      - Nächste Regel im Modus rule
  ↑/↓         - Verlauf
  Enter       - Eingabe im Verlauf merken
  PgUp/PgDn   - Ausgabe blättern
  Esc/Ctrl+C  - Beenden`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := service.ParseMode(mode)
			if err != nil {
				return err
			}

			b, err := opts.openBackend(remote, 5*time.Second)
			if err != nil {
				return err
			}
			defer b.close()

			rules, err := b.rules(cmd.Context())
			if err != nil {
				return err
			}

			model := repl.NewModel(repl.Options{
				Parse:     b.parse,
				Renderer:  render.New(cmd.OutOrStdout(), opts.colorMode(noColor)),
				Mode:      m,
				Rule:      rule,
				Rules:     rules,
				CharLimit: opts.cfg.Parser.MaxInputLength,
			})

			p := tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("REPL Fehler: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "expression", "Startmodus: expression, condition, rule")
	cmd.Flags().StringVarP(&rule, "rule", "r", "", "Startregel im Modus rule")
	cmd.Flags().StringVar(&remote, "remote", "", "Adresse eines condparse-Servers (host:port)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Farbige Ausgabe deaktivieren")
	return cmd
}
