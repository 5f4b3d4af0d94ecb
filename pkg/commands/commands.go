package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/bands/pkg/store"
)

var (
	oo = &base.OutputOptions{}
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "bands",
		Short: base.Wrap80("Group entries of a collection into collapsible, orderable bands."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error.")
	_ = viper.BindPFlag(store.KeyLogLevel, cmd.PersistentFlags().Lookup("log-level"))

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addEntries(topLevel)
	addPlan(topLevel)
	addShow(topLevel)
	addWatch(topLevel)
	addUI(topLevel)
	addGroups(topLevel)
	addPrompt(topLevel)
	addPrefs(topLevel)
	addMCP(topLevel)
	addCompletions(topLevel)
	addVersion(topLevel)
}
