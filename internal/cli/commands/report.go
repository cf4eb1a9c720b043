package commands

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/paraprep/internal/core"
	"github.com/JonMunkholm/paraprep/internal/report"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe FILE",
		Short: "Show shape, types, first and last rows and statistics of a table",
		Long: `Describe any delimited text or spreadsheet table: its shape, the first and
last five rows, the column types after numeric inference and count, mean,
std, min, quartiles and max of every numeric column.`,
		Example: `  paraprep describe data/paralympics_raw.csv
  paraprep describe data/paralympics.xlsx --sheet 0 --format markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, t, err := reportInput(cmd, args[0])
			if err != nil {
				return err
			}
			return r.Description(report.Describe(t))
		},
	}
	addFormatFlag(cmd)
	addReadFlags(cmd)
	return cmd
}

// NewMissingCommand creates the missing command.
func NewMissingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missing FILE",
		Short: "Show null counts per column and the rows with missing values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, t, err := reportInput(cmd, args[0])
			if err != nil {
				return err
			}
			return r.Missing(report.Missing(t))
		},
	}
	addFormatFlag(cmd)
	addReadFlags(cmd)
	return cmd
}

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories FILE COLUMN...",
		Short: "Show the distinct values of categorical columns",
		Example: `  paraprep categories data/paralympics_raw.csv type country`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, t, err := reportInput(cmd, args[0])
			if err != nil {
				return err
			}

			reports := make([]*report.CategoryReport, 0, len(args)-1)
			for _, column := range args[1:] {
				cr, err := report.Categories(t, column)
				if err != nil {
					return err
				}
				reports = append(reports, cr)
			}
			if r.Mode() == report.ModeJSON {
				return r.JSON(reports)
			}
			for _, cr := range reports {
				if err := r.Categories(cr); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addFormatFlag(cmd)
	addReadFlags(cmd)
	return cmd
}

// reportInput reads the table at path with the command's read flags and
// returns a renderer for its --format.
func reportInput(cmd *cobra.Command, path string) (*report.Renderer, *core.Table, error) {
	mode, err := formatMode(cmd)
	if err != nil {
		return nil, nil, err
	}
	t, err := core.ReadFile(path, readOptions(cmd))
	if err != nil {
		return nil, nil, err
	}
	return report.NewRenderer(cmd.OutOrStdout(), mode), t, nil
}
