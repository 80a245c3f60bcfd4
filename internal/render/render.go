// Package render turns TVL records into user-facing output: a bordered
// table for terminals, a JSON envelope for scripting, or CSV.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"tvltracker/internal/tvl"
)

// Format selects the output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid formats: table, json, csv)", s)
	}
}

// envelope is the JSON response shape: a status marker, the record
// count, and the records themselves.
type envelope struct {
	Status string       `json:"status"`
	Count  int          `json:"count"`
	Data   []tvl.Record `json:"data"`
}

// Render writes records to w in the requested format.
func Render(w io.Writer, records []tvl.Record, format Format) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, records)
	case FormatCSV:
		return renderCSV(w, records)
	case FormatTable, "":
		return renderTable(w, records)
	default:
		return fmt.Errorf("unknown output format %q (valid formats: table, json, csv)", format)
	}
}

func renderTable(w io.Writer, records []tvl.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No TVL data available.")
		return err
	}

	// The table is the human-facing view: biggest pools first.
	sorted := make([]tvl.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TVLUSD > sorted[j].TVLUSD
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Protocol", "Chain", "Pool", "TVL (USD)", "APY", "Provider"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})

	for _, rec := range sorted {
		table.Append([]string{
			rec.Protocol,
			rec.Chain,
			rec.Pool,
			formatUSD(rec.TVLUSD),
			formatAPY(rec.APY),
			rec.Provider,
		})
	}
	table.Render()

	return nil
}

func renderJSON(w io.Writer, records []tvl.Record) error {
	if records == nil {
		records = []tvl.Record{}
	}

	out, err := json.MarshalIndent(envelope{
		Status: "success",
		Count:  len(records),
		Data:   records,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(out))
	return err
}

// renderCSV keeps numeric columns raw so the output stays
// machine-readable; humanized amounts are a table concern.
func renderCSV(w io.Writer, records []tvl.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Protocol", "Chain", "Pool", "TVL (USD)", "APY", "Provider"}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.Protocol,
			rec.Chain,
			rec.Pool,
			strconv.FormatFloat(rec.TVLUSD, 'f', -1, 64),
			strconv.FormatFloat(rec.APY, 'f', -1, 64),
			rec.Provider,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatUSD humanizes a dollar amount: $1.23B, $45.67M, $89.01K, or
// $12.34 below a thousand.
func formatUSD(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.2fK", v/1e3)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

func formatAPY(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", v)
}
