package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/bands/pkg/printers"
	"tableflip.dev/bands/pkg/reconcile"
	"tableflip.dev/bands/pkg/runner/session"
)

// showTimeout bounds how long show waits for the first rebuild.
const showTimeout = 5 * time.Second

func addShow(topLevel *cobra.Command) {
	so := &sessionFlags{}
	var page int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "render the grouped panel once",
		Long: base.Wrap80("Mount the panel for a collection, let the grouping engine run " +
			"one pass and print the resulting layout. Bands are shown in display order; " +
			"collapsed bands list no members."),
		Example: `
bands show -c Lore
bands show -c Lore --page-size 10 --page 2 --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			opts, err := so.options(e, nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), showTimeout)
			defer cancel()

			var blocks []printers.Block
			var done, paged bool
			capture := func(s *session.Session) {
				done = true
				blocks = s.Snapshot()
				cancel()
			}
			opts.OnRebuild = func(s *session.Session, rep reconcile.Report) {
				if done || rep.Missing {
					return
				}
				if page > 1 && !paged {
					paged = true
					s.Loop.Post(func() {
						s.Panel.GoToPage(page - 1)
						if cur, _ := s.Panel.Page(); cur != page-1 {
							capture(s)
						}
					})
					return
				}
				capture(s)
			}
			sess, err := session.New(opts)
			if err != nil {
				return err
			}
			if err := sess.Run(ctx); err != nil {
				return oo.HandleError(err)
			}
			if !done {
				return fmt.Errorf("no rebuild within %s", showTimeout)
			}

			if oo.JSON {
				b, err := json.Marshal(blocks)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), printers.RenderTree(blocks, printers.DefaultStyles()))
			return nil
		},
	}

	addSessionArgs(cmd, so)
	cmd.Flags().IntVar(&page, "page", 1, "Page to show, starting at 1.")
	base.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}
