package cmd

import (
	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cperrors "github.com/msto63/condparse/pkg/core/errors"
)

func newConfigCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Zeigt die effektive Konfiguration an",
		Long: `Zeigt die effektive Konfiguration inklusive aller Defaults an.

Die Konfiguration wird aus --config, $CONDPARSE_CONFIG oder den
Standardpfaden geladen (TOML, oder YAML bei Endung .yaml/.yml).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch format {
			case "toml":
				return toml.NewEncoder(out).Encode(opts.cfg)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(opts.cfg); err != nil {
					return err
				}
				return enc.Close()
			default:
				return cperrors.Newf("unbekanntes Format %q (toml, yaml)", format).
					WithCode(cperrors.CodeInvalidInput)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", "toml", "Ausgabeformat: toml, yaml")
	return cmd
}
