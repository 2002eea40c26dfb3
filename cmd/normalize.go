package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/shipdash-backend/internal/domain/records"
	"github.com/yungbote/shipdash-backend/internal/normalization"
)

type normalizeOptions struct {
	format      string
	dateColumns []string
}

func newNormalizeCmd() *cobra.Command {
	var opts normalizeOptions

	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Print the rows a spreadsheet would be ingested as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format: json or yaml")
	cmd.Flags().StringSliceVar(&opts.dateColumns, "date-columns", nil, "Columns rewritten as dd/mm/yyyy (default Date,ShipmentDate,DeliveryDate,EDD)")
	return cmd
}

func runNormalize(w io.Writer, path string, opts normalizeOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	rows, err := normalization.NormalizeBytes(data, filepath.Base(path), normalization.Options{DateColumns: opts.dateColumns})
	if err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(opts.format)) {
	case "", "json":
		out := make([]records.Record, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.Map())
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(yamlRows(rows)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", opts.format)
	}
}

// yamlRows keeps the source column order, which a map would lose.
func yamlRows(rows []records.Row) []*yaml.Node {
	out := make([]*yaml.Node, 0, len(rows))
	for _, r := range rows {
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, f := range r {
			var v yaml.Node
			if err := v.Encode(f.Value); err != nil {
				v = yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprint(f.Value)}
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: f.Key}, &v)
		}
		out = append(out, n)
	}
	return out
}
