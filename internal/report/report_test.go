// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pmid2nct/pkg/types"
)

func sampleResult() types.Result {
	return types.Result{
		Entries: []types.Entry{
			{PMID: "111", NCTIDs: []string{"NCT00000001", "NCT00000002"}},
			{PMID: "222"},
			{PMID: "333", NCTIDs: []string{"NCT00000003"}},
		},
		Summary: types.Summary{InputRows: 4, UniquePMIDs: 3, WithTrials: 2},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"table", FormatTable, false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"PMID", "NCT_IDs"},
		{"111", "NCT00000001, NCT00000002"},
		{"222", ""},
		{"333", "NCT00000003"},
	}, records)
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, types.Result{}))
	assert.Equal(t, "PMID,NCT_IDs\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResult()))

	var got types.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleResult(), got)
	assert.Contains(t, buf.String(), `"nct_ids": null`)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, sampleResult()))

	var got types.Result
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	want := sampleResult()
	assert.Equal(t, want.Summary, got.Summary)
	require.Len(t, got.Entries, len(want.Entries))
	for i, e := range want.Entries {
		assert.Equal(t, e.PMID, got.Entries[i].PMID)
		assert.Equal(t, e.Joined(), got.Entries[i].Joined())
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleResult()))

	lines := strings.Split(buf.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.True(t, strings.HasPrefix(lines[0], "PMID"))
	assert.Contains(t, lines[0], "NCT_IDs")
	assert.Contains(t, lines[1], "NCT00000001, NCT00000002")
	assert.Equal(t, "222", strings.Fields(lines[2])[0])
	assert.Equal(t, "-", strings.Fields(lines[2])[1])
	assert.Contains(t, buf.String(), "Unique PMIDs: 3")
	assert.Contains(t, buf.String(), "PMIDs with NCT IDs: 2")
}

func TestWrite_Dispatch(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatJSON, FormatYAML, FormatTable} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, sampleResult(), f), f)
		assert.NotEmpty(t, buf.String(), f)
	}
	assert.Error(t, Write(&bytes.Buffer{}, sampleResult(), Format("pdf")))
}
