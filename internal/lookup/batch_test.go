// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package lookup

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect(ids []string, size int) [][]string {
	var out [][]string
	for b := range Batches(ids, size) {
		out = append(out, b)
	}
	return out
}

func TestBatches(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		size int
		want [][]string
	}{
		{"empty", nil, 2, nil},
		{"exact multiple", []string{"1", "2", "3", "4"}, 2, [][]string{{"1", "2"}, {"3", "4"}}},
		{"short tail", []string{"1", "2", "3"}, 2, [][]string{{"1", "2"}, {"3"}}},
		{"size larger than input", []string{"1", "2"}, 200, [][]string{{"1", "2"}}},
		{"size one", []string{"1", "2"}, 1, [][]string{{"1"}, {"2"}}},
		{"zero size is one batch", []string{"1", "2", "3"}, 0, [][]string{{"1", "2", "3"}}},
		{"negative size is one batch", []string{"1", "2"}, -5, [][]string{{"1", "2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collect(tt.ids, tt.size))
			assert.Equal(t, len(tt.want), BatchCount(len(tt.ids), tt.size))
		})
	}
}

func TestBatches_Properties(t *testing.T) {
	for n := 0; n <= 25; n++ {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprint(i)
		}
		for size := 1; size <= 7; size++ {
			batches := collect(ids, size)
			var joined []string
			for _, b := range batches {
				assert.LessOrEqual(t, len(b), size)
				assert.NotEmpty(t, b)
				joined = append(joined, b...)
			}
			assert.True(t, slices.Equal(ids, joined), "n=%d size=%d", n, size)
			assert.Len(t, batches, BatchCount(n, size))
		}
	}
}

func TestBatches_Restartable(t *testing.T) {
	seq := Batches([]string{"1", "2", "3"}, 2)
	var first, second [][]string
	for b := range seq {
		first = append(first, b)
	}
	for b := range seq {
		second = append(second, b)
	}
	assert.Equal(t, first, second)
}

func TestBatches_EarlyStop(t *testing.T) {
	count := 0
	for range Batches([]string{"1", "2", "3", "4", "5"}, 2) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestBatches_AppendDoesNotClobberInput(t *testing.T) {
	ids := []string{"1", "2", "3"}
	for b := range Batches(ids, 2) {
		_ = append(b, "x")
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestUnique(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"keeps order", []string{"3", "1", "2"}, []string{"3", "1", "2"}},
		{"drops duplicates", []string{"1", "2", "1", "3", "2"}, []string{"1", "2", "3"}},
		{"trims and drops empty", []string{" 1 ", "", "  ", "1", "2\t"}, []string{"1", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unique(tt.in))
		})
	}
}
