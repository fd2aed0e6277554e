package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"smartBidFloor/business/floors"

	"github.com/spf13/cobra"
)

func newFitReplacerCmd() *cobra.Command {
	var (
		input          string
		output         string
		columns        []string
		minImpressions int
		defaultValue   string
	)

	cmd := &cobra.Command{
		Use:   "fit-replacer",
		Short: "Fit a value replacer from logged rows",
		Long: `Read newline delimited JSON rows and keep, per column, the values seen at
least --min-impressions times. Everything else maps to --default.

Examples:
  floorctl fit-replacer --input rows.jsonl --columns device.country,device.os`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			rows, err := readRows(in)
			if err != nil {
				return err
			}
			r := floors.FitValueReplacer(rows, columns, minImpressions, defaultValue)

			if output == "" {
				return writeJSON(cmd.OutOrStdout(), r)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			return writeJSON(f, r)
		},
	}

	cmd.Flags().StringVar(&input, "input", "-", "JSONL file, - for stdin")
	cmd.Flags().StringVar(&output, "out", "", "write the replacer here instead of stdout")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to fit (comma-separated)")
	cmd.Flags().IntVar(&minImpressions, "min-impressions", floors.DefaultMinImpressions, "minimum occurrences for a value to be kept")
	cmd.Flags().StringVar(&defaultValue, "default", floors.DefaultCategory, "replacement for rare values")
	_ = cmd.MarkFlagRequired("columns")

	return cmd
}

func readRows(r io.Reader) ([]map[string]any, error) {
	var rows []map[string]any
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal(b, &row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
