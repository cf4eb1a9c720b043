package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/paraprep/internal/prepare"
)

// NewRecipesCommand creates the recipes command.
func NewRecipesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "List the registered preparation recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := formatMode(cmd)
			if err != nil {
				return err
			}
			cc, err := NewCommandContext(cmd, mode)
			if err != nil {
				return err
			}

			recipes := prepare.Recipes()
			rows := make([][]string, len(recipes))
			for i, rec := range recipes {
				rows[i] = []string{
					rec.Name,
					rec.Description,
					cc.Cfg.Path("", rec.RawFile),
					cc.Cfg.Path("", rec.ReferenceFile),
					cc.Cfg.Path("", rec.OutputFile),
					strconv.Itoa(len(rec.Plan.DropRows)),
					strings.Join(rec.Plan.DropColumns, ", "),
				}
			}
			return cc.Renderer.Grid(
				[]string{"name", "description", "raw", "reference", "output", "dropped_rows", "dropped_columns"},
				rows,
			)
		},
	}
	addFormatFlag(cmd)
	return cmd
}
