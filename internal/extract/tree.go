// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Tree is a permissively parsed efetch document. It reads documents the
// typed decoder rejects and is the source for per-PMID lookups of records
// missing from a structured parse.
type Tree struct {
	doc *etree.Document
}

// ParseTree parses doc into an element tree. Parsing is non-strict and
// resolves HTML entities, so it accepts documents ParseStructured refuses.
func ParseTree(doc []byte) (*Tree, error) {
	d := etree.NewDocument()
	d.ReadSettings = etree.ReadSettings{
		Permissive: true,
		Entity:     xml.HTMLEntity,
	}
	if err := d.ReadFromBytes(doc); err != nil {
		return nil, fmt.Errorf("parsing efetch document: %w", err)
	}
	if d.Root() == nil {
		return nil, fmt.Errorf("parsing efetch document: no root element")
	}
	return &Tree{doc: d}, nil
}

// Citations returns every PubmedArticle element in document order.
func (t *Tree) Citations() []Citation {
	elems := t.doc.FindElements(".//PubmedArticle")
	out := make([]Citation, len(elems))
	for i, el := range elems {
		out[i] = treeCitation{el: el}
	}
	return out
}

// Find returns the first PubmedArticle whose PMID equals pmid.
func (t *Tree) Find(pmid string) (Citation, bool) {
	for _, el := range t.doc.FindElements(".//PubmedArticle") {
		c := treeCitation{el: el}
		if c.PMID() == pmid {
			return c, true
		}
	}
	return nil, false
}

// treeCitation adapts a PubmedArticle element to Citation. Fields are found
// by descendant search anywhere under the article, not only at their
// canonical MedlineCitation location.
type treeCitation struct {
	el *etree.Element
}

func (c treeCitation) PMID() string {
	if pmid := c.el.FindElement(".//PMID"); pmid != nil {
		return strings.TrimSpace(pmid.Text())
	}
	return ""
}

func (c treeCitation) OtherIDs() []string {
	var ids []string
	for _, el := range c.el.FindElements(".//OtherID") {
		if text := el.Text(); text != "" {
			ids = append(ids, text)
		}
	}
	return ids
}

func (c treeCitation) DataBanks() []DataBank {
	var banks []DataBank
	for _, list := range c.el.FindElements(".//DataBankList") {
		for _, db := range list.FindElements(".//DataBank") {
			bank := DataBank{}
			if name := db.FindElement("DataBankName"); name != nil {
				bank.Name = name.Text()
			}
			for _, acc := range db.FindElements(".//AccessionNumber") {
				if text := acc.Text(); text != "" {
					bank.Accessions = append(bank.Accessions, text)
				}
			}
			banks = append(banks, bank)
		}
	}
	return banks
}

func (c treeCitation) AbstractSegments() []string {
	var segments []string
	for _, el := range c.el.FindElements(".//AbstractText") {
		segments = append(segments, innerText(el))
	}
	return segments
}

// innerText concatenates all character data under el, descending into
// inline markup.
func innerText(el *etree.Element) string {
	var b strings.Builder
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch tt := tok.(type) {
			case *etree.CharData:
				b.WriteString(tt.Data)
			case *etree.Element:
				walk(tt)
			}
		}
	}
	walk(el)
	return b.String()
}
