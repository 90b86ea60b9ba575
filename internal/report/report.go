// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders lookup results as CSV, JSON, YAML, or an aligned
// text table, and prints the summary counts shown alongside them.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pmid2nct/pkg/types"
)

// CSVFilename is the download name offered for CSV results.
const CSVFilename = "nct_results.csv"

// CSV column headers.
const (
	HeaderPMID   = "PMID"
	HeaderNCTIDs = "NCT_IDs"
)

// Format selects an output rendering.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ParseFormat validates a format name given on the command line.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatJSON, FormatYAML, FormatTable:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use csv, json, yaml, or table", name)
	}
}

// Write renders result to w in the given format.
func Write(w io.Writer, result types.Result, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, result)
	case FormatJSON:
		return WriteJSON(w, result)
	case FormatYAML:
		return WriteYAML(w, result)
	case FormatTable:
		return WriteTable(w, result)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// WriteCSV writes the two-column PMID,NCT_IDs table. PMIDs without trial
// identifiers get an empty second column.
func WriteCSV(w io.Writer, result types.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{HeaderPMID, HeaderNCTIDs}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, e := range result.Entries {
		if err := cw.Write([]string{e.PMID, e.Joined()}); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", e.PMID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the full result, entries and summary, as indented JSON.
func WriteJSON(w io.Writer, result types.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// WriteYAML writes the full result as YAML.
func WriteYAML(w io.Writer, result types.Result) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// WriteTable writes an aligned two-column table followed by the summary.
func WriteTable(w io.Writer, result types.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", HeaderPMID, HeaderNCTIDs)
	for _, e := range result.Entries {
		nct := e.Joined()
		if nct == "" {
			nct = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", e.PMID, nct)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return WriteSummary(w, result.Summary)
}

// WriteSummary prints the input and match counts.
func WriteSummary(w io.Writer, s types.Summary) error {
	_, err := fmt.Fprintf(w, "PMIDs in input: %d\nUnique PMIDs: %d\nPMIDs with NCT IDs: %d\n",
		s.InputRows, s.UniquePMIDs, s.WithTrials)
	return err
}
