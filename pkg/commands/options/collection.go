// Package options defines shared flag helpers for CLI commands.
package options

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tableflip.dev/bands/pkg/store"
)

// CollectionOptions selects the collection (book) a command works on.
type CollectionOptions struct {
	Collection string
}

// AddCollectionArgs wires the collection flag on the provided command.
func AddCollectionArgs(cmd *cobra.Command, o *CollectionOptions) {
	cmd.Flags().StringVarP(&o.Collection, "collection", "c", "",
		"Specify the collection. Defaults to the configured book.")
}

// Resolve returns the chosen collection, falling back to the configured
// book.
func (o *CollectionOptions) Resolve() (string, error) {
	c := strings.TrimSpace(o.Collection)
	if c == "" {
		c = strings.TrimSpace(viper.GetString(store.KeyBook))
	}
	if c == "" {
		return "", errors.New("no collection: pass --collection or set book in .bands")
	}
	return c, nil
}

// IDOptions
type IDOptions struct {
	ShowID bool
}

func AddShowIDArgs(cmd *cobra.Command, o *IDOptions) {
	cmd.Flags().BoolVarP(&o.ShowID, "show-id", "k", false,
		"Show the ID of each entry.")
}
