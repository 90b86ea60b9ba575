// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pmid2nct pipeline:
// lookup results, stored runs, and configuration.
package types

import (
	"strings"
	"time"
)

// NCTSeparator joins multiple NCT IDs in tabular output.
const NCTSeparator = ", "

// Entry pairs one PMID with the trial registrations found for it.
// A nil NCTIDs slice is the explicit "none found" marker.
type Entry struct {
	// PMID is the PubMed identifier exactly as supplied by the user (trimmed).
	PMID string `json:"pmid" yaml:"pmid"`

	// NCTIDs holds the de-duplicated, sorted ClinicalTrials.gov identifiers.
	NCTIDs []string `json:"nct_ids" yaml:"nct_ids"`
}

// Found reports whether at least one trial identifier was found.
func (e Entry) Found() bool {
	return len(e.NCTIDs) > 0
}

// Joined returns the NCT IDs as a single cell value, or "" when none were found.
func (e Entry) Joined() string {
	return strings.Join(e.NCTIDs, NCTSeparator)
}

// Summary holds the counts displayed alongside a result table.
type Summary struct {
	// InputRows is the number of non-empty PMID cells read from the input.
	InputRows int `json:"input_rows" yaml:"input_rows"`

	// UniquePMIDs is the number of distinct PMIDs, equal to the number of entries.
	UniquePMIDs int `json:"unique_pmids" yaml:"unique_pmids"`

	// WithTrials is the number of entries with at least one NCT ID.
	WithTrials int `json:"with_trials" yaml:"with_trials"`
}

// Result is the complete mapping for one lookup, ordered by first
// occurrence of each PMID in the input.
type Result struct {
	Entries []Entry `json:"entries" yaml:"entries"`
	Summary Summary `json:"summary" yaml:"summary"`
}

// Lookup returns the entry for pmid, if present.
func (r Result) Lookup(pmid string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.PMID == pmid {
			return e, true
		}
	}
	return Entry{}, false
}

// Run is a Result persisted by the run store.
type Run struct {
	ID        string    `json:"id" yaml:"id"`
	Source    string    `json:"source" yaml:"source"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Result    Result    `json:"result" yaml:"result"`
}
