package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tableflip.dev/bands/pkg/printers"
	"tableflip.dev/bands/pkg/reconcile"
	"tableflip.dev/bands/pkg/runner/session"
)

func addWatch(topLevel *cobra.Command) {
	so := &sessionFlags{}
	var stats bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "keep the grouped panel live and reprint it on change",
		Long: `Mount the panel, follow the store on disk and print the layout again after
every rebuild that changed it. Stop with Ctrl-C.`,
		Example: `
bands watch -c Lore --stats
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
			opts.Watch = true

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			styles := printers.DefaultStyles()
			faint := color.New(color.Faint)
			opts.OnRebuild = func(s *session.Session, rep reconcile.Report) {
				if !rep.Applied {
					return
				}
				_, _ = faint.Fprintf(out, "-- %s %s (%s)\n", time.Now().Format(time.Kitchen),
					joinReasons(rep.Reasons), rep.Elapsed.Round(time.Microsecond))
				_, _ = fmt.Fprintln(out, printers.RenderTree(s.Snapshot(), styles))
			}
			opts.OnError = func(err error) {
				_, _ = color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), err)
			}

			sess, err := session.New(opts)
			if err != nil {
				return err
			}
			err = sess.Run(ctx)
			if stats {
				pp := &printers.PrettyPrint{Out: out}
				pp.Stats(sess.Reconciler.Stats())
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	addSessionArgs(cmd, so)
	cmd.Flags().BoolVar(&stats, "stats", false, "Print rebuild counters on exit.")
	topLevel.AddCommand(cmd)
}

func joinReasons(reasons []reconcile.Reason) string {
	s := make([]string, len(reasons))
	for i, r := range reasons {
		s[i] = string(r)
	}
	return strings.Join(s, ",")
}
