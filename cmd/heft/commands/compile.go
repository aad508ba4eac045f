package commands

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/heftdb/heft"
	"github.com/heftdb/heft/cmd/heft/internal/ui"
	"github.com/heftdb/heft/query/compose"
	"github.com/heftdb/heft/query/statement"
)

var compileCmd = &cobra.Command{
	Use:   "compile <relation>",
	Short: "Compile a statement against a relation",
	Long: `Compile a statement against a relation from the catalog snapshot.

Criteria, records, changes, and join definitions are JSON objects. The
compiled SQL and its ordered parameter list are printed without touching a
database.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

var (
	compileOp       string
	compileCriteria string
	compileRecord   string
	compileChanges  string
	compileJoin     string
	compileFields   []string
	compileOrder    []string
	compileLimit    int
	compileOffset   int
	compileDocument bool
	compileOnly     bool
	compileSingle   bool
	compileNoReturn bool
)

func init() {
	compileCmd.Flags().StringVarP(&compileOp, "op", "o", "select", "Operation: select, insert, update, or delete")
	compileCmd.Flags().StringVarP(&compileCriteria, "criteria", "c", "", "Criteria JSON object")
	compileCmd.Flags().StringVarP(&compileRecord, "record", "r", "", "Record JSON object or array of objects (insert)")
	compileCmd.Flags().StringVar(&compileChanges, "changes", "", "Changes JSON object (update)")
	compileCmd.Flags().StringVarP(&compileJoin, "join", "j", "", "Join definition JSON object")
	compileCmd.Flags().StringSliceVar(&compileFields, "fields", nil, "Projection fields (select)")
	compileCmd.Flags().StringSliceVar(&compileOrder, "order", nil, "Order entries, field or field:desc (select)")
	compileCmd.Flags().IntVar(&compileLimit, "limit", 0, "LIMIT (select)")
	compileCmd.Flags().IntVar(&compileOffset, "offset", 0, "OFFSET (select)")
	compileCmd.Flags().BoolVar(&compileDocument, "document", false, "Compile criteria in document mode")
	compileCmd.Flags().BoolVar(&compileOnly, "only", false, "Restrict to the named table, excluding inheriting tables")
	compileCmd.Flags().BoolVar(&compileSingle, "single", false, "Expect at most one row")
	compileCmd.Flags().BoolVar(&compileNoReturn, "no-returning", false, "Suppress the RETURNING clause")

	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		ui.PrintError("%v", err)
		return err
	}

	var source heft.Source
	if compileJoin != "" {
		var def map[string]compose.JoinDef
		if err := json.Unmarshal([]byte(compileJoin), &def); err != nil {
			return fmt.Errorf("invalid JSON for --join: %w", err)
		}
		source, err = heft.Join(cat, args[0], def)
	} else {
		source, err = cat.Relation(args[0])
	}
	if err != nil {
		ui.PrintError("%v", err)
		return err
	}

	criteria, err := parseJSONMap(compileCriteria, "criteria")
	if err != nil {
		return err
	}

	common := statement.Common{
		Only:        compileOnly,
		Single:      compileSingle,
		Document:    compileDocument,
		NoReturning: compileNoReturn,
	}

	var stmt *heft.CompiledStatement
	switch compileOp {
	case "select":
		opts := statement.SelectOptions{Common: common, Fields: compileFields}
		if compileLimit > 0 {
			opts.Limit = &compileLimit
		}
		if compileOffset > 0 {
			opts.Offset = &compileOffset
		}
		for _, entry := range compileOrder {
			field, dir, _ := strings.Cut(entry, ":")
			opts.Order = append(opts.Order, statement.OrderField{Field: field, Direction: dir})
		}
		stmt, err = heft.Select(source, criteria, opts)
	case "insert":
		records, recErr := parseRecords(compileRecord)
		if recErr != nil {
			return recErr
		}
		stmt, err = heft.Insert(source, records, statement.InsertOptions{Common: common, Catalog: cat})
	case "update":
		changes, chErr := parseJSONMap(compileChanges, "changes")
		if chErr != nil {
			return chErr
		}
		stmt, err = heft.Update(source, changes, criteria, statement.UpdateOptions{Common: common})
	case "delete":
		stmt, err = heft.Delete(source, criteria, statement.DeleteOptions{Common: common})
	default:
		return fmt.Errorf("unknown operation %q", compileOp)
	}
	if err != nil {
		ui.PrintError("%v", err)
		return err
	}

	ui.PrintLabeled("SQL", stmt.SQL)
	params, _ := json.Marshal(stmt.Params)
	ui.PrintLabeled("Params", string(params))
	if stmt.Decomposition != nil {
		ui.PrintInfo("statement carries a decomposition schema for nested results")
	}
	return nil
}

// parseRecords accepts a single JSON object or an array of objects.
func parseRecords(raw string) ([]map[string]any, error) {
	if raw == "" {
		return nil, fmt.Errorf("insert requires --record")
	}
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		var records []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
			return nil, fmt.Errorf("invalid JSON for --record: %w", err)
		}
		return records, nil
	}
	record, err := parseJSONMap(trimmed, "record")
	if err != nil {
		return nil, err
	}
	return []map[string]any{record}, nil
}
