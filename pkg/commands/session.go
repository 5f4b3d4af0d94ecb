package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/bands/pkg/commands/options"
	"tableflip.dev/bands/pkg/host"
	"tableflip.dev/bands/pkg/runner/session"
)

// sessionFlags are shared by the commands that run a live panel.
type sessionFlags struct {
	options.CollectionOptions
	PageSize int
}

func addSessionArgs(cmd *cobra.Command, o *sessionFlags) {
	options.AddCollectionArgs(cmd, &o.CollectionOptions)
	registerCollectionCompletion(cmd)
	cmd.Flags().IntVar(&o.PageSize, "page-size", 0, "Entries per page. Defaults to the configured page_size; 0 there shows all.")
}

func (o *sessionFlags) options(e *env, d host.Dialog) (session.Options, error) {
	book, err := o.Resolve()
	if err != nil {
		return session.Options{}, err
	}
	size := o.PageSize
	if size == 0 {
		size = e.settings.PageSize
	}
	return session.Options{
		Store:    e.store,
		Prefs:    e.prefs,
		Book:     book,
		PageSize: size,
		Debounce: e.settings.Debounce,
		Dialog:   d,
		Log:      e.log,
	}, nil
}
