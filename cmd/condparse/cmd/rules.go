package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRulesCmd(opts *options) *cobra.Command {
	var remote string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Listet die Grammatikregeln für --mode rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.openBackend(remote, 5*time.Second)
			if err != nil {
				return err
			}
			defer b.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			rules, err := b.rules(ctx)
			if err != nil {
				return err
			}
			for _, name := range rules {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "Adresse eines condparse-Servers (host:port)")
	return cmd
}
