// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedRecord is wrapped by ParseStructured when a record decodes
// but lacks an element the typed model depends on.
var ErrMalformedRecord = errors.New("malformed citation record")

// ParseStructured decodes an efetch document into typed records. Decoding
// is strict: undefined entities, a root other than PubmedArticleSet, or a
// record missing its PMID, Article, DataBankName, or (for ClinicalTrials.gov
// banks) AccessionNumberList all fail the whole document.
func ParseStructured(doc []byte) ([]Citation, error) {
	var set pubmedArticleSet
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = true
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("decoding PubmedArticleSet: %w", err)
	}

	citations := make([]Citation, 0, len(set.Articles))
	for i, a := range set.Articles {
		if err := a.MedlineCitation.validate(); err != nil {
			return nil, fmt.Errorf("article %d: %w", i+1, err)
		}
		citations = append(citations, structuredCitation{mc: a.MedlineCitation})
	}
	return citations, nil
}

// PubMed efetch XML structures. Only the elements the extractor reads are
// modelled.
type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	MedlineCitation medlineCitation `xml:"MedlineCitation"`
}

type medlineCitation struct {
	PMID     string   `xml:"PMID"`
	OtherIDs []string `xml:"OtherID"`
	Article  *article `xml:"Article"`
}

type article struct {
	DataBankLists []dataBankList `xml:"DataBankList"`
	Abstract      *abstract      `xml:"Abstract"`
}

type dataBankList struct {
	DataBanks []dataBank `xml:"DataBank"`
}

type dataBank struct {
	Name                *string              `xml:"DataBankName"`
	AccessionNumberList *accessionNumberList `xml:"AccessionNumberList"`
}

type accessionNumberList struct {
	AccessionNumbers []string `xml:"AccessionNumber"`
}

type abstract struct {
	Texts []textContent `xml:"AbstractText"`
}

// textContent collects all character data inside an element, including
// text nested in inline markup such as <i> or <sup>.
type textContent string

func (t *textContent) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tt := tok.(type) {
		case xml.CharData:
			b.Write(tt)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*t = textContent(b.String())
				return nil
			}
			depth--
		}
	}
}

func (mc medlineCitation) validate() error {
	if strings.TrimSpace(mc.PMID) == "" {
		return fmt.Errorf("%w: missing PMID", ErrMalformedRecord)
	}
	if mc.Article == nil {
		return fmt.Errorf("%w: PMID %s has no Article", ErrMalformedRecord, mc.PMID)
	}
	for _, list := range mc.Article.DataBankLists {
		for _, db := range list.DataBanks {
			if db.Name == nil {
				return fmt.Errorf("%w: PMID %s has a DataBank without DataBankName", ErrMalformedRecord, mc.PMID)
			}
			if *db.Name == ClinicalTrialsBank && db.AccessionNumberList == nil {
				return fmt.Errorf("%w: PMID %s has a %s DataBank without AccessionNumberList",
					ErrMalformedRecord, mc.PMID, ClinicalTrialsBank)
			}
		}
	}
	return nil
}

// structuredCitation adapts a decoded MedlineCitation to Citation.
type structuredCitation struct {
	mc medlineCitation
}

func (c structuredCitation) PMID() string { return strings.TrimSpace(c.mc.PMID) }

func (c structuredCitation) OtherIDs() []string { return c.mc.OtherIDs }

// DataBanks reads only the first DataBankList of the Article, the one
// location PubMed defines for it.
func (c structuredCitation) DataBanks() []DataBank {
	if c.mc.Article == nil || len(c.mc.Article.DataBankLists) == 0 {
		return nil
	}
	list := c.mc.Article.DataBankLists[0]
	banks := make([]DataBank, 0, len(list.DataBanks))
	for _, db := range list.DataBanks {
		bank := DataBank{}
		if db.Name != nil {
			bank.Name = *db.Name
		}
		if db.AccessionNumberList != nil {
			bank.Accessions = db.AccessionNumberList.AccessionNumbers
		}
		banks = append(banks, bank)
	}
	return banks
}

func (c structuredCitation) AbstractSegments() []string {
	if c.mc.Article == nil || c.mc.Article.Abstract == nil {
		return nil
	}
	segments := make([]string, len(c.mc.Article.Abstract.Texts))
	for i, t := range c.mc.Article.Abstract.Texts {
		segments[i] = string(t)
	}
	return segments
}
