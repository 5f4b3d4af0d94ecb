package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/bands/pkg/codec"
	"tableflip.dev/bands/pkg/commands/options"
	"tableflip.dev/bands/pkg/printers"
)

func addEntries(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"entry"},
		Short:   "add and list entries of a collection",
	}

	addEntriesAdd(cmd)
	addEntriesList(cmd)
	addEntriesBooks(cmd)

	topLevel.AddCommand(cmd)
}

func addEntriesAdd(topLevel *cobra.Command) {
	co := &options.CollectionOptions{}
	var group string
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "append an entry",
		Example: `
bands entries add -c Lore --group Places "The old mill"
bands entries add -c Lore "::Places:: The old mill"
`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires a title")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := co.Resolve()
			if err != nil {
				return err
			}
			raw := strings.Join(args, " ")
			if group != "" {
				name, err := codec.ValidateGroupName(group)
				if err != nil {
					return err
				}
				raw = codec.Encode(name, raw)
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			added, err := e.store.Add(cmd.Context(), book, raw)
			if err != nil {
				return oo.HandleError(err)
			}
			if disabled {
				if err := setDisabled(cmd.Context(), e, book, added.ID); err != nil {
					return oo.HandleError(err)
				}
				added.SetDisabled(true)
			}
			if oo.JSON {
				b, err := json.Marshal(added)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", added.ID, book)
			return nil
		},
	}

	options.AddCollectionArgs(cmd, co)
	registerCollectionCompletion(cmd)
	cmd.Flags().StringVarP(&group, "group", "g", "", "Place the entry in this group.")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Store the entry disabled.")
	base.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func setDisabled(ctx context.Context, e *env, book, id string) error {
	all, err := e.store.Load(ctx, book)
	if err != nil {
		return err
	}
	for _, x := range all {
		if x.ID == id {
			x.SetDisabled(true)
		}
	}
	return e.store.Save(ctx, book, all)
}

func addEntriesList(topLevel *cobra.Command) {
	co := &options.CollectionOptions{}
	ido := &options.IDOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "list the entries of a collection in stored order",
		Example: `
bands entries list -c Lore -k
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := co.Resolve()
			if err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			entries, err := e.store.Load(cmd.Context(), book)
			if err != nil {
				return oo.HandleError(err)
			}
			if oo.JSON {
				b, err := json.Marshal(entries)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			pp := &printers.PrettyPrint{ShowID: ido.ShowID}
			pp.TitleWithCount(book, len(entries))
			pp.Entries(entries...)
			return nil
		},
	}

	options.AddCollectionArgs(cmd, co)
	registerCollectionCompletion(cmd)
	options.AddShowIDArgs(cmd, ido)
	base.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}

func addEntriesBooks(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "books",
		Aliases: []string{"collections"},
		Short:   "list collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			names := e.store.Collections(cmd.Context())
			if oo.JSON {
				b, err := json.Marshal(names)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			if len(names) == 0 {
				_, _ = color.New(color.Faint, color.Italic).Fprintln(cmd.OutOrStdout(), "no collections")
			}
			for _, n := range names {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}

	base.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}
