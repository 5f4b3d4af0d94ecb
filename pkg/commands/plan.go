package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/bands/pkg/commands/options"
	"tableflip.dev/bands/pkg/plan"
	"tableflip.dev/bands/pkg/printers"
)

func addPlan(topLevel *cobra.Command) {
	co := &options.CollectionOptions{}
	so := &options.SortOptions{}
	ido := &options.IDOptions{}
	var table bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "compute the group layout of a collection without a panel",
		Example: `
bands plan -c Lore
bands plan -c Lore --sort comment:asc -k
bands plan -c Lore --table
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := co.Resolve()
			if err != nil {
				return err
			}
			cfg, err := so.Config()
			if err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer func() { _ = e.close() }()

			svc := e.service(nil)
			entries, err := svc.Entries(cmd.Context(), book)
			if err != nil {
				return oo.HandleError(err)
			}
			p, err := svc.Plan(cmd.Context(), book, cfg)
			if err != nil {
				return oo.HandleError(err)
			}

			if oo.JSON {
				b, err := json.Marshal(struct {
					plan.Plan
					Signature string `json:"signature"`
				}{p, p.Signature()})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			pp := &printers.PrettyPrint{ShowID: ido.ShowID, Out: cmd.OutOrStdout()}
			if table {
				pp.Groups(p)
				return nil
			}
			pp.Title(book)
			pp.Plan(p, entries)
			return nil
		},
	}

	options.AddCollectionArgs(cmd, co)
	registerCollectionCompletion(cmd)
	options.AddSortArgs(cmd, so)
	options.AddShowIDArgs(cmd, ido)
	cmd.Flags().BoolVar(&table, "table", false, "Print one row per group.")
	base.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
