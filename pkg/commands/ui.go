package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/bands/pkg/runner/ui"
)

func addUI(topLevel *cobra.Command) {
	so := &sessionFlags{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "open the text-based user interface",
		Example: `
bands ui -c Lore
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			opts, err := so.options(e, nil)
			if err != nil {
				return err
			}
			opts.Watch = true
			i := ui.UI{Options: opts}
			return i.Do(cmd.Context())
		},
	}

	addSessionArgs(cmd, so)
	topLevel.AddCommand(cmd)
}
