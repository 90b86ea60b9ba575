// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract finds ClinicalTrials.gov registrations in PubMed citation
// records. A record is read through the Citation interface, which has two
// implementations: typed records decoded with encoding/xml (ParseStructured)
// and elements of a permissive etree document (ParseTree). The three-tier
// search in Classify runs unchanged over either.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// ClinicalTrialsBank is the DataBankName PubMed uses for ClinicalTrials.gov.
const ClinicalTrialsBank = "ClinicalTrials.gov"

// nctPattern matches a ClinicalTrials.gov registration number.
var nctPattern = regexp.MustCompile(`NCT\d{8}`)

// Citation is one PubMed record. Every accessor returns a slice so callers
// never deal with the single-value versus repeated-element distinction.
type Citation interface {
	// PMID returns the record's PubMed identifier.
	PMID() string

	// OtherIDs returns the values of the record's OtherID elements.
	OtherIDs() []string

	// DataBanks returns the record's DataBank entries.
	DataBanks() []DataBank

	// AbstractSegments returns the text of each AbstractText element.
	AbstractSegments() []string
}

// DataBank is a structured cross-reference to an external registry.
type DataBank struct {
	Name       string
	Accessions []string
}

// Tier names the strategy that produced a result.
type Tier string

const (
	TierOtherID  Tier = "other_id"
	TierDataBank Tier = "data_bank"
	TierAbstract Tier = "abstract"
	TierNone     Tier = "none"
)

// Classify runs the three strategies in order and returns the de-duplicated,
// sorted matches of the first one that finds anything, with its tier. When
// no strategy matches it returns nil and TierNone.
func Classify(c Citation) ([]string, Tier) {
	if ids := fromOtherIDs(c.OtherIDs()); len(ids) > 0 {
		return ids, TierOtherID
	}
	if ids := fromDataBanks(c.DataBanks()); len(ids) > 0 {
		return ids, TierDataBank
	}
	if ids := fromAbstract(c.AbstractSegments()); len(ids) > 0 {
		return ids, TierAbstract
	}
	return nil, TierNone
}

// NCTIDs returns the trial identifiers for c, or nil when none were found.
func NCTIDs(c Citation) []string {
	ids, _ := Classify(c)
	return ids
}

// fromOtherIDs keeps every OtherID value containing "NCT". The value is
// kept whole, so "NCT01234567 [registry]" is returned as written.
func fromOtherIDs(values []string) []string {
	var ids []string
	for _, v := range values {
		if strings.Contains(v, "NCT") {
			ids = append(ids, v)
		}
	}
	return unique(ids)
}

func fromDataBanks(banks []DataBank) []string {
	var ids []string
	for _, b := range banks {
		if b.Name != ClinicalTrialsBank {
			continue
		}
		for _, acc := range b.Accessions {
			if acc != "" {
				ids = append(ids, acc)
			}
		}
	}
	return unique(ids)
}

func fromAbstract(segments []string) []string {
	var parts []string
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return unique(nctPattern.FindAllString(strings.Join(parts, " "), -1))
}

// unique returns the sorted distinct values, or nil for an empty input.
func unique(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
