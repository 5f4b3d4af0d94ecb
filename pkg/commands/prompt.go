package commands

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/bands/pkg/commands/options"
	"tableflip.dev/bands/pkg/events"
	"tableflip.dev/bands/pkg/reconcile"
)

func addPrompt(topLevel *cobra.Command) {
	co := &options.CollectionOptions{}
	var all bool

	cmd := &cobra.Command{
		Use:   "prompt [BOOK...]",
		Short: "list the entries the prompt builder would use",
		Long: base.Wrap80("Load the named collections as one entries-loaded event, run the group " +
			"filter over it and print what stays active. Entries of disabled groups are dropped."),
		Example: `
bands prompt Lore Places
bands prompt -c Lore --all
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			books := args
			if len(books) == 0 {
				book, err := co.Resolve()
				if err != nil {
					return err
				}
				books = []string{book}
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer func() { _ = e.close() }()

			loaded := &events.EntriesLoaded{}
			for _, book := range books {
				entries, err := e.store.Load(cmd.Context(), book)
				if err != nil {
					return oo.HandleError(err)
				}
				reconcile.SyncEnablement(e.prefs, book, entries)
				for _, en := range entries {
					disabled, _ := en.Disabled()
					loaded.Global = append(loaded.Global, &events.LoadedEntry{
						Book:    book,
						ID:      en.ID,
						Comment: en.Raw,
						Disable: disabled,
					})
				}
			}

			bus := events.NewBus()
			off := e.service(nil).PromptFilter(bus)
			bus.Emit(events.TopicEntriesLoaded, loaded)
			off()

			if oo.JSON {
				b, err := json.Marshal(loaded)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			list := loaded.Active()
			if all {
				list = loaded.All()
			}
			faint := color.New(color.Faint)
			for _, le := range list {
				if le.Disable {
					_, _ = faint.Fprintf(color.Output, "%s/%s  %s  (disabled)\n", le.Book, le.ID, le.Comment)
					continue
				}
				_, _ = fmt.Fprintf(color.Output, "%s/%s  %s\n", le.Book, le.ID, le.Comment)
			}
			_, _ = faint.Fprintf(color.Output, "%d of %d active\n", len(loaded.Active()), len(loaded.All()))
			return nil
		},
	}

	options.AddCollectionArgs(cmd, co)
	registerCollectionCompletion(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "Also list disabled entries.")
	base.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}
