package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tableflip.dev/bands/pkg/commands/options"
	"tableflip.dev/bands/pkg/prefs"
)

func addPrefs(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "prefs",
		Aliases: []string{"settings"},
		Short:   "inspect, import and tune stored group preferences",
	}

	addPrefsShow(cmd)
	addPrefsImport(cmd)
	addPrefsDebug(cmd)

	topLevel.AddCommand(cmd)
}

func addPrefsShow(topLevel *cobra.Command) {
	fo := &options.FormatOptions{}
	var book string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "print the stored preferences",
		Example: `
bands prefs show -o yaml
bands prefs show --book Lore
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			if book != "" {
				return fo.Write(cmd.OutOrStdout(), e.prefs.Book(book))
			}
			return fo.Write(cmd.OutOrStdout(), e.prefs.Settings())
		},
	}

	options.AddFormatArg(cmd, fo)
	cmd.Flags().StringVar(&book, "book", "", "Only print the preferences of this book.")
	topLevel.AddCommand(cmd)
}

func addPrefsImport(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "replace stored preferences with a json or yaml document",
		Long: `Read settings from FILE, migrate older layouts to the current one and
replace what is stored. Files ending in .yaml or .yml are read as YAML,
everything else as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := readSettings(args[0])
			if err != nil {
				return err
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			e.prefs.Replace(next)
			if err := e.close(); err != nil {
				return oo.HandleError(err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d books\n", len(e.prefs.Settings().Books))
			return nil
		},
	}

	topLevel.AddCommand(cmd)
}

func readSettings(path string) (*prefs.Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &prefs.Settings{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, s)
	default:
		err = json.Unmarshal(b, s)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func addPrefsDebug(topLevel *cobra.Command) {
	var d prefs.Debug

	cmd := &cobra.Command{
		Use:   "debug",
		Short: "toggle diagnostic logging of rebuilds and adapters",
		Example: `
bands prefs debug --enabled --log-rebuilds
bands prefs debug
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().NFlag() > 0 {
				e.prefs.SetDebug(d)
				if err := e.close(); err != nil {
					return oo.HandleError(err)
				}
			}
			cur := e.prefs.Debug()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enabled=%t logRebuilds=%t logAdapters=%t\n",
				cur.Enabled, cur.LogRebuilds, cur.LogAdapters)
			return nil
		},
	}

	cmd.Flags().BoolVar(&d.Enabled, "enabled", false, "Turn debug logging on.")
	cmd.Flags().BoolVar(&d.LogRebuilds, "log-rebuilds", false, "Log every rebuild pass.")
	cmd.Flags().BoolVar(&d.LogAdapters, "log-adapters", false, "Log host adapter lookups.")
	topLevel.AddCommand(cmd)
}
