package options

import (
	"github.com/spf13/cobra"

	"tableflip.dev/bands/pkg/plan"
)

// SortOptions selects the in-group ordering.
type SortOptions struct {
	Sort string
}

func AddSortArgs(cmd *cobra.Command, o *SortOptions) {
	cmd.Flags().StringVar(&o.Sort, "sort", "none",
		"Order within groups: none, as-is or FIELD:asc|desc with FIELD one of comment, order, uid, depth, probability, content.")
}

func (o *SortOptions) Config() (plan.SortConfig, error) {
	return plan.ParseSort(o.Sort)
}
