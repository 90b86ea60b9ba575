// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pmid2nct/internal/pubmed"
	"github.com/pdiddy/pmid2nct/pkg/types"
)

// fakeFetcher serves canned documents keyed by the comma-joined batch.
type fakeFetcher struct {
	docs  map[string]string
	err   error
	calls [][]string
}

func (f *fakeFetcher) Fetch(_ context.Context, ids []string) ([]byte, error) {
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[strings.Join(ids, ",")]
	if !ok {
		return []byte(set()), nil
	}
	return []byte(doc), nil
}

func article(pmid, body string) string {
	return fmt.Sprintf(`<PubmedArticle><MedlineCitation><PMID Version="1">%s</PMID><Article>%s</Article></MedlineCitation></PubmedArticle>`, pmid, body)
}

func withAbstract(pmid, text string) string {
	return article(pmid, "<Abstract><AbstractText>"+text+"</AbstractText></Abstract>")
}

func withBank(pmid string, accessions ...string) string {
	var b strings.Builder
	b.WriteString("<DataBankList><DataBank><DataBankName>ClinicalTrials.gov</DataBankName><AccessionNumberList>")
	for _, a := range accessions {
		fmt.Fprintf(&b, "<AccessionNumber>%s</AccessionNumber>", a)
	}
	b.WriteString("</AccessionNumberList></DataBank></DataBankList>")
	return article(pmid, b.String())
}

func set(articles ...string) string {
	return `<?xml version="1.0"?><PubmedArticleSet>` + strings.Join(articles, "") + `</PubmedArticleSet>`
}

func newTestPipeline(f Fetcher, size int) (*Pipeline, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := types.DefaultConfig().NCBI
	cfg.BatchSize = size
	return NewPipeline(f, cfg, &buf), &buf
}

func nctMap(r types.Result) map[string][]string {
	m := make(map[string][]string, len(r.Entries))
	for _, e := range r.Entries {
		m[e.PMID] = e.NCTIDs
	}
	return m
}

func TestRun_MissingRecordIsNoneFound(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"111,222": set(withAbstract("111", "Registered as NCT00000111.")),
		"333":     set(withBank("333", "NCT00000333")),
	}}
	p, progress := newTestPipeline(f, 2)

	result, err := p.Run(context.Background(), []string{"111", "222", "333"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"111", "222"}, {"333"}}, f.calls)
	assert.Equal(t, map[string][]string{
		"111": {"NCT00000111"},
		"222": nil,
		"333": {"NCT00000333"},
	}, nctMap(result))
	assert.Equal(t, []string{"111", "222", "333"}, []string{
		result.Entries[0].PMID, result.Entries[1].PMID, result.Entries[2].PMID,
	})
	assert.Equal(t, types.Summary{InputRows: 3, UniquePMIDs: 3, WithTrials: 2}, result.Summary)
	assert.Contains(t, progress.String(), "batch 1/2")
	assert.Contains(t, progress.String(), "batch 2/2")
}

func TestRun_KeySetEqualsDedupedInput(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"5,3,9": set(withAbstract("9", "none"), withAbstract("5", "NCT12345678")),
	}}
	p, _ := newTestPipeline(f, 200)

	input := []string{"5", " 3", "", "5", "9", "3 "}
	result, err := p.Run(context.Background(), input)
	require.NoError(t, err)

	var keys []string
	for _, e := range result.Entries {
		keys = append(keys, e.PMID)
	}
	assert.Equal(t, []string{"5", "3", "9"}, keys)
	assert.Equal(t, 5, result.Summary.InputRows)
	assert.Equal(t, 3, result.Summary.UniquePMIDs)
	assert.Equal(t, 1, result.Summary.WithTrials)
}

func TestRun_FallsBackToTreeOnStructuredFailure(t *testing.T) {
	// &nbsp; is not an XML entity, so the strict decoder rejects the batch.
	doc := set(
		withAbstract("1", "Trial&nbsp;NCT11111111 enrolled adults."),
		withBank("2", "NCT22222222"),
	)
	f := &fakeFetcher{docs: map[string]string{"1,2,3": doc}}
	p, _ := newTestPipeline(f, 10)

	result, err := p.Run(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"1": {"NCT11111111"},
		"2": {"NCT22222222"},
		"3": nil,
	}, nctMap(result))
}

func TestRun_FallbackOnMalformedRecord(t *testing.T) {
	// A ClinicalTrials.gov bank without an accession list fails the
	// structured path; the tree path still reads the OtherID.
	doc := set(
		article("7", `<DataBankList><DataBank><DataBankName>ClinicalTrials.gov</DataBankName></DataBank></DataBankList>`),
		`<PubmedArticle><MedlineCitation><PMID>8</PMID><OtherID Source="NLM">NCT88888888</OtherID><Article/></MedlineCitation></PubmedArticle>`,
	)
	f := &fakeFetcher{docs: map[string]string{"7,8": doc}}
	p, _ := newTestPipeline(f, 10)

	result, err := p.Run(context.Background(), []string{"7", "8"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"7": nil,
		"8": {"NCT88888888"},
	}, nctMap(result))
}

func TestRun_RelookupFindsRecordSkippedByStructuredParse(t *testing.T) {
	// The typed decoder only reads PubmedArticle elements directly under
	// the set, so the wrapped record is missing from the structured parse
	// and must be recovered from the element tree by PMID.
	doc := set(
		withAbstract("1", "Registered as NCT10000000."),
		"<Wrapper>"+withBank("2", "NCT20000000")+"</Wrapper>",
	)
	f := &fakeFetcher{docs: map[string]string{"1,2,3": doc}}
	p, _ := newTestPipeline(f, 10)

	result, err := p.Run(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"1": {"NCT10000000"},
		"2": {"NCT20000000"},
		"3": nil,
	}, nctMap(result))
	assert.Equal(t, 2, result.Summary.WithTrials)
}

func TestRun_UnparseableDocumentAborts(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{"1": ""}}
	p, _ := newTestPipeline(f, 10)

	_, err := p.Run(context.Background(), []string{"1"})
	assert.Error(t, err)
}

func TestRun_IgnoresUnrequestedRecords(t *testing.T) {
	f := &fakeFetcher{docs: map[string]string{
		"1": set(withAbstract("1", "NCT10000000"), withAbstract("99", "NCT99999999")),
	}}
	p, _ := newTestPipeline(f, 10)

	result, err := p.Run(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"1": {"NCT10000000"}}, nctMap(result))
}

func TestRun_TierOrder(t *testing.T) {
	doc := set(
		`<PubmedArticle><MedlineCitation><PMID>1</PMID><OtherID Source="NLM">NCT00000001</OtherID><Article><Abstract><AbstractText>See NCT99999999.</AbstractText></Abstract></Article></MedlineCitation></PubmedArticle>`,
		withBank("2", "NCT01234567"),
		withAbstract("3", "Registered at ClinicalTrials.gov (NCT09876543)."),
		withAbstract("4", "No registration reported."),
	)
	f := &fakeFetcher{docs: map[string]string{"1,2,3,4": doc}}
	p, _ := newTestPipeline(f, 10)

	result, err := p.Run(context.Background(), []string{"1", "2", "3", "4"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"1": {"NCT00000001"},
		"2": {"NCT01234567"},
		"3": {"NCT09876543"},
		"4": nil,
	}, nctMap(result))
}

func TestRun_FetchErrorAborts(t *testing.T) {
	fetchErr := &pubmed.FetchError{StatusCode: 500, Class: pubmed.ErrorClassServer, Message: "500 Internal Server Error"}
	f := &fakeFetcher{err: fetchErr}
	p, _ := newTestPipeline(f, 2)

	result, err := p.Run(context.Background(), []string{"1", "2", "3"})
	require.Error(t, err)
	assert.Empty(t, result.Entries)
	assert.Len(t, f.calls, 1, "run stops at the first failed batch")

	var fe *pubmed.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, pubmed.ErrorClassServer, fe.Class)
}

func TestRun_CancelledContext(t *testing.T) {
	f := &fakeFetcher{}
	p, _ := newTestPipeline(f, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, []string{"1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.calls)
}

func TestRun_EmptyInput(t *testing.T) {
	f := &fakeFetcher{}
	p, _ := newTestPipeline(f, 2)

	result, err := p.Run(context.Background(), []string{"", "  "})
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.Empty(t, f.calls)
	assert.Equal(t, types.Summary{InputRows: 0}, result.Summary)
}
