package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabdiff/internal/compare"
	"github.com/JonMunkholm/tabdiff/internal/core"
)

var (
	compareMaps       []string
	compareFieldTypes []string
	compareJSON       bool
	compareDetails    bool
	compareExport     string
	compareResolve    bool
)

var compareCmd = &cobra.Command{
	Use:   "compare FILE1 FILE2",
	Short: "Compare mapped columns of two files",
	Long: `Compare the values of mapped column pairs.

Columns are paired with --map (column1=column2, optionally label:column1=column2)
or resolved from the field mapping catalog with --field-type. Inputs may be
local paths or s3://bucket/key URIs.`,
	Example: `  tabdiff compare ledger.csv bank.xlsx --map TransactionID=Ref_No --map Amount="Total Amount"
  tabdiff compare ledger.csv bank.csv --field-type amount --field-type date --export diff.xlsx`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.StringArrayVarP(&compareMaps, "map", "m", nil, "column pair column1=column2 or label:column1=column2; escape a colon in a name as \\: (repeatable)")
	f.StringArrayVarP(&compareFieldTypes, "field-type", "t", nil, "catalog field type to resolve in both files (repeatable)")
	f.BoolVar(&compareJSON, "json", false, "print the comparison job as JSON")
	f.BoolVar(&compareDetails, "details", false, "list every value found on only one side")
	f.StringVarP(&compareExport, "export", "o", "", "write the report to a .csv or .xlsx file")
	f.BoolVar(&compareResolve, "resolve-only", false, "print the columns --field-type resolves to and stop")
}

func runCompare(cmd *cobra.Command, args []string) error {
	fields, err := parseMaps(compareMaps)
	if err != nil {
		return err
	}
	if compareExport != "" {
		if _, err := exportFormat(compareExport); err != nil {
			return err
		}
	}

	return withService(cmd.Context(), func(svc *core.Service) error {
		if compareResolve {
			pairs, err := svc.ResolveFields(cmd.Context(), core.Local(args[0]), core.Local(args[1]), compareFieldTypes)
			if err != nil {
				return err
			}
			if compareJSON {
				return renderJSON(cmd.OutOrStdout(), pairs)
			}
			renderPairs(cmd.OutOrStdout(), pairs)
			return nil
		}

		job, err := svc.Compare(cmd.Context(), core.CompareRequest{
			File1:      core.Local(args[0]),
			File2:      core.Local(args[1]),
			Fields:     fields,
			FieldTypes: compareFieldTypes,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
		}

		out := cmd.OutOrStdout()
		if compareJSON {
			if err := renderJSON(out, job); err != nil {
				return err
			}
		} else {
			renderReport(out, job, compareDetails)
		}

		if compareExport != "" {
			if err := exportReport(compareExport, job.Report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", compareExport)
		}
		return nil
	})
}

// parseMaps reads "column1=column2" or "label:column1=column2". A colon
// inside a first column name is written as \: ("Time\:Stamp=ts").
func parseMaps(raw []string) ([]compare.FieldPair, error) {
	pairs := make([]compare.FieldPair, 0, len(raw))
	for _, m := range raw {
		label := ""
		cols := m
		if i := labelColon(m); i >= 0 {
			label, cols = m[:i], m[i+1:]
		}
		c1, c2, ok := strings.Cut(cols, "=")
		c1 = strings.TrimSpace(strings.ReplaceAll(c1, `\:`, ":"))
		c2 = strings.TrimSpace(strings.ReplaceAll(c2, `\:`, ":"))
		label = strings.ReplaceAll(label, `\:`, ":")
		if !ok || c1 == "" || c2 == "" {
			return nil, fmt.Errorf("%w: --map %q must be column1=column2", core.ErrInvalidMapping, m)
		}
		if label = strings.TrimSpace(label); label == "" {
			label = c1
		}
		pairs = append(pairs, compare.FieldPair{Label: label, Column1: c1, Column2: c2})
	}
	return pairs, nil
}

// labelColon returns the index of the colon ending a label, or -1. Only
// the first unescaped colon counts, and only when no "=" comes before it.
func labelColon(m string) int {
	for i := 0; i < len(m); i++ {
		switch m[i] {
		case '\\':
			if i+1 < len(m) && m[i+1] == ':' {
				i++
			}
		case '=':
			return -1
		case ':':
			return i
		}
	}
	return -1
}

func exportFormat(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".xlsx":
		return ext, nil
	default:
		return "", fmt.Errorf("--export %q: use a .csv or .xlsx file name", path)
	}
}

func exportReport(path string, report *compare.Report) (err error) {
	ext, err := exportFormat(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if ext == ".xlsx" {
		return compare.WriteXLSX(f, report)
	}
	return compare.WriteCSV(f, report)
}
