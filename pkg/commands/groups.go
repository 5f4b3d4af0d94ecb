package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/bands/pkg/app"
	"tableflip.dev/bands/pkg/codec"
	"tableflip.dev/bands/pkg/commands/options"
	"tableflip.dev/bands/pkg/dialog"
	"tableflip.dev/bands/pkg/host"
	"tableflip.dev/bands/pkg/plan"
	"tableflip.dev/bands/pkg/printers"
)

func addGroups(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "groups",
		Aliases: []string{"group", "g"},
		Short:   "inspect and edit the groups of a collection",
	}

	addGroupsList(cmd)
	addGroupsRename(cmd)
	addGroupsDelete(cmd)
	addGroupsMove(cmd)
	addGroupsFlag(cmd, "enable", "show the entries of a group in the prompt", func(ctx context.Context, s *app.Service, book, group string) error {
		return s.SetGroupEnabled(ctx, book, group, true)
	})
	addGroupsFlag(cmd, "disable", "keep the entries of a group out of the prompt", func(ctx context.Context, s *app.Service, book, group string) error {
		return s.SetGroupEnabled(ctx, book, group, false)
	})
	addGroupsFlag(cmd, "collapse", "hide the members of a group in the panel", func(ctx context.Context, s *app.Service, book, group string) error {
		s.SetCollapsed(ctx, book, group, true)
		return nil
	})
	addGroupsFlag(cmd, "expand", "show the members of a group in the panel", func(ctx context.Context, s *app.Service, book, group string) error {
		s.SetCollapsed(ctx, book, group, false)
		return nil
	})
	addGroupsMembership(cmd, "assign", "move entries into a group", true)
	addGroupsMembership(cmd, "unassign", "take entries out of a group", false)
	addGroupsCreate(cmd)
	addGroupsManage(cmd)

	topLevel.AddCommand(cmd)
}

// groupCommand runs fn with a loaded environment and flushes preferences
// afterwards.
func groupCommand(co *options.CollectionOptions, interactive *options.InteractiveOptions, fn func(ctx context.Context, s *app.Service, book string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		book, err := co.Resolve()
		if err != nil {
			return err
		}
		e, err := loadEnv()
		if err != nil {
			return err
		}
		var d host.Dialog
		if interactive != nil && interactive.Interactive {
			d = dialog.New(os.Stdin, os.Stdout)
		}
		err = fn(cmd.Context(), e.service(d), book)
		if ferr := e.close(); ferr != nil && err == nil {
			err = ferr
		}
		if err != nil {
			return oo.HandleError(err)
		}
		return nil
	}
}

func addGroupsList(topLevel *cobra.Command) {
	co := &options.CollectionOptions{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "list groups in display order",
		RunE: groupCommand(co, nil, func(ctx context.Context, s *app.Service, book string) error {
			p, err := s.Plan(ctx, book, plan.SortConfig{Mode: plan.ModeNone})
			if err != nil {
				return err
			}
			if oo.JSON {
				b, err := json.Marshal(p.Groups)
				if err != nil {
					return err
				}
				fmt.Println(string(b))
				return nil
			}
			pp := &printers.PrettyPrint{}
			pp.Title(book)
			pp.Groups(p)
			return nil
		}),
	}

	options.AddCollectionArgs(cmd, co)
	registerCollectionCompletion(cmd)
	base.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addGroupsRename(topLevel *cobra.Command) {
	co := &options.CollectionOptions{}
	ino := &options.InteractiveOptions{}

	cmd := &cobra.Command{
		Use:   "rename GROUP [NEW]",
		Short: "rename a group and every member",
		Example: `
bands groups rename -c Lore Places Locations
bands groups rename -c Lore Places -i
`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return groupCommand(co, ino, func(ctx context.Context, s *app.Service, book string) error {
				if ino.Interactive {
					return s.Rename(ctx, book, args[0])
				}
				if len(args) != 2 {
					return errors.New("requires the new name, or -i")
				}
				name, err := s.RenameTo(ctx, book, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Printf("renamed %q to %q\n", args[0], name)
				return nil
			})(cmd, args)
		},
	}

	options.AddCollectionArgs(cmd, co)
	registerCollectionCompletion(cmd)
	options.InteractiveArgs(cmd, ino)
	topLevel.AddCommand(cmd)
}

func addGroupsDelete(topLevel *cobra.Command) {
	co := &options.CollectionOptions{}
	ino := &options.InteractiveOptions{}
	var mode string

	cmd := &cobra.Command{
		Use:     "delete GROUP",
		Aliases: []string{"rm"},
		Short:   "delete a group, ungrouping or deleting its members",
		Example: `
bands groups delete -c Lore Places --mode ungroup
bands groups delete -c Lore Places -i
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return groupCommand(co, ino, func(ctx context.Context, s *app.Service, book string) error {
				if ino.Interactive {
					return s.Delete(ctx, book, args[0])
				}
				n, err := s.DeleteWith(ctx, book, args[0], app.DeleteMode(mode))
				if err != nil {
					return err
				}
				fmt.Printf("deleted %q (%d entries %sd)\n", args[0], n, mode)
				return nil
			})(cmd, args)
		},
	}

	options.AddCollectionArgs(cmd, co)
	registerCollectionCompletion(cmd)
	options.InteractiveArgs(cmd, ino)
	cmd.Flags().StringVar(&mode, "mode", string(app.DeleteUngroup), "What happens to members: ungroup or delete.")
	topLevel.AddCommand(cmd)
}

func addGroupsMove(topLevel *cobra.Command) {
	co := &options.CollectionOptions{}
	var up, down bool
	var by int

	cmd := &cobra.Command{
		Use:   "move GROUP",
		Short: "move a group in the display order",
		Example: `
bands groups move -c Lore Places --up
bands groups move -c Lore Places --by 2
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta := by
			switch {
			case up && down:
				return errors.New("--up and --down are exclusive")
			case up:
				delta = -1
			case down:
				delta = 1
			}
			if delta == 0 {
				return errors.New("requires --up, --down or --by")
			}
			return groupCommand(co, nil, func(ctx context.Context, s *app.Service, book string) error {
				moved, err := s.MoveGroup(ctx, book, args[0], delta)
				if err != nil {
					return err
				}
				if !moved {
					fmt.Printf("%q is already at the edge\n", args[0])
				}
				return nil
			})(cmd, args)
		},
	}

	options.AddCollectionArgs(cmd, co)
	registerCollectionCompletion(cmd)
	cmd.Flags().BoolVar(&up, "up", false, "Move one position up.")
	cmd.Flags().BoolVar(&down, "down", false, "Move one position down.")
	cmd.Flags().IntVar(&by, "by", 0, "Move by this many positions, negative is up.")
	topLevel.AddCommand(cmd)
}

func addGroupsFlag(topLevel *cobra.Command, use, short string, fn func(ctx context.Context, s *app.Service, book, group string) error) {
	co := &options.CollectionOptions{}

	cmd := &cobra.Command{
		Use:   use + " GROUP",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return groupCommand(co, nil, func(ctx context.Context, s *app.Service, book string) error {
				return fn(ctx, s, book, args[0])
			})(cmd, args)
		},
	}

	options.AddCollectionArgs(cmd, co)
	registerCollectionCompletion(cmd)
	topLevel.AddCommand(cmd)
}

func addGroupsMembership(topLevel *cobra.Command, use, short string, add bool) {
	co := &options.CollectionOptions{}

	cmd := &cobra.Command{
		Use:   use + " GROUP ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return groupCommand(co, nil, func(ctx context.Context, s *app.Service, book string) error {
				var n int
				var err error
				if add {
					n, err = s.ApplyMembership(ctx, book, args[0], args[1:], nil)
				} else {
					n, err = s.ApplyMembership(ctx, book, args[0], nil, args[1:])
				}
				if err != nil {
					return err
				}
				fmt.Printf("%d entries changed\n", n)
				return nil
			})(cmd, args)
		},
	}

	options.AddCollectionArgs(cmd, co)
	registerCollectionCompletion(cmd)
	topLevel.AddCommand(cmd)
}

func addGroupsCreate(topLevel *cobra.Command) {
	co := &options.CollectionOptions{}

	cmd := &cobra.Command{
		Use:   "create GROUP [ID...]",
		Short: "create a group, optionally moving entries into it",
		Example: `
bands groups create -c Lore Places 3 7
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return groupCommand(co, nil, func(ctx context.Context, s *app.Service, book string) error {
				name, err := codec.ValidateGroupName(args[0])
				if err != nil {
					return err
				}
				s.Prefs.EnsureGroup(book, name)
				if len(args) == 1 {
					return nil
				}
				n, err := s.ApplyMembership(ctx, book, name, args[1:], nil)
				if err != nil {
					return err
				}
				fmt.Printf("created %q with %d entries\n", name, n)
				return nil
			})(cmd, args)
		},
	}

	options.AddCollectionArgs(cmd, co)
	registerCollectionCompletion(cmd)
	topLevel.AddCommand(cmd)
}

func addGroupsManage(topLevel *cobra.Command) {
	co := &options.CollectionOptions{}

	cmd := &cobra.Command{
		Use:   "manage [GROUP]",
		Short: "edit group membership in a terminal dialog",
		Long: base.Wrap80("Open the membership editor. Without a group it starts on the first " +
			"group of the collection, or asks for a new group name when there is none."),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return groupCommand(co, &options.InteractiveOptions{Interactive: true}, func(ctx context.Context, s *app.Service, book string) error {
				if len(args) == 1 {
					return s.Manage(ctx, book, args[0])
				}
				return s.OpenEditor(ctx, book)
			})(cmd, args)
		},
	}

	options.AddCollectionArgs(cmd, co)
	registerCollectionCompletion(cmd)
	topLevel.AddCommand(cmd)
}
