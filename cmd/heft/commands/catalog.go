package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heftdb/heft/cmd/heft/internal/ui"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the relations in the catalog snapshot",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		ui.PrintError("%v", err)
		return err
	}

	rows := make([][]string, 0)
	for _, rel := range cat.Relations() {
		kind := "table"
		switch {
		case rel.IsMaterializedView:
			kind = "materialized view"
		case rel.IsView:
			kind = "view"
		}
		rows = append(rows, []string{
			rel.Ident(),
			kind,
			fmt.Sprintf("%d", len(rel.Columns)),
			strings.Join(rel.PrimaryKey, ", "),
			fmt.Sprintf("%d", len(rel.ForeignKeys)),
		})
	}

	ui.PrintTable([]string{"Relation", "Kind", "Columns", "Primary Key", "FKs"}, rows)
	ui.PrintSuccess("%d relations", len(rows))
	return nil
}
