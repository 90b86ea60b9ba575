// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lookup maps PMIDs to ClinicalTrials.gov identifiers. It splits
// the input into batches, fetches each batch from PubMed, extracts trial
// identifiers from the returned citations, and reconciles the result so
// that every requested PMID has exactly one entry.
package lookup

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pmid2nct/internal/extract"
	"github.com/pdiddy/pmid2nct/internal/logging"
	"github.com/pdiddy/pmid2nct/internal/metrics"
	"github.com/pdiddy/pmid2nct/pkg/types"
)

// Fetcher returns the efetch document for one batch of PMIDs.
type Fetcher interface {
	Fetch(ctx context.Context, ids []string) ([]byte, error)
}

// Pipeline runs lookups sequentially, one batch at a time.
type Pipeline struct {
	fetcher    Fetcher
	batchSize  int
	batchDelay time.Duration
	progress   io.Writer
	logger     zerolog.Logger
}

// NewPipeline creates a pipeline that fetches through f using the batch
// settings in cfg. Progress lines are written to w; nil discards them.
func NewPipeline(f Fetcher, cfg types.NCBIConfig, w io.Writer) *Pipeline {
	if w == nil {
		w = io.Discard
	}
	return &Pipeline{
		fetcher:    f,
		batchSize:  cfg.BatchSize,
		batchDelay: cfg.BatchDelay,
		progress:   w,
		logger:     logging.NewLogger("lookup"),
	}
}

// Run looks up every PMID in pmids and returns one entry per distinct PMID
// in first-occurrence order. Any fetch failure, or a batch neither parser
// can read, aborts the run and discards the partial mapping.
func (p *Pipeline) Run(ctx context.Context, pmids []string) (types.Result, error) {
	inputRows := 0
	for _, id := range pmids {
		if strings.TrimSpace(id) != "" {
			inputRows++
		}
	}
	ids := Unique(pmids)
	total := BatchCount(len(ids), p.batchSize)

	mapping := make(map[string][]string, len(ids))
	i := 0
	for batch := range Batches(ids, p.batchSize) {
		if err := ctx.Err(); err != nil {
			return types.Result{}, err
		}
		if i > 0 && p.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return types.Result{}, ctx.Err()
			case <-time.After(p.batchDelay):
			}
		}
		i++

		fmt.Fprintf(p.progress, "batch %d/%d: fetching %d PMIDs\n", i, total, len(batch))
		found, err := p.processBatch(ctx, batch)
		if err != nil {
			return types.Result{}, fmt.Errorf("batch %d/%d: %w", i, total, err)
		}
		for pmid, nct := range found {
			mapping[pmid] = nct
		}
		metrics.BatchesTotal.Inc()
	}

	result := types.Result{
		Entries: make([]types.Entry, 0, len(ids)),
		Summary: types.Summary{InputRows: inputRows, UniquePMIDs: len(ids)},
	}
	for _, id := range ids {
		entry := types.Entry{PMID: id, NCTIDs: mapping[id]}
		if entry.Found() {
			result.Summary.WithTrials++
		}
		result.Entries = append(result.Entries, entry)
	}

	fmt.Fprintf(p.progress, "done: %d unique PMIDs, %d with trial identifiers\n",
		result.Summary.UniquePMIDs, result.Summary.WithTrials)
	return result, nil
}

// processBatch fetches one batch and returns an entry for every PMID in
// it. The structured parser is tried first; if it rejects the document,
// its partial output is discarded and the whole batch is read from the
// element tree instead. Requested PMIDs still missing afterwards are
// looked up in the tree by PMID and, failing that, recorded as none found.
func (p *Pipeline) processBatch(ctx context.Context, batch []string) (map[string][]string, error) {
	doc, err := p.fetcher.Fetch(ctx, batch)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(batch))
	for _, id := range batch {
		requested[id] = true
	}

	var tree *extract.Tree
	path := "structured"
	citations, err := extract.ParseStructured(doc)
	if err != nil {
		metrics.ParseFallbacks.Inc()
		p.logger.Warn().Err(err).Int("batch_size", len(batch)).Msg("structured parse failed, using element tree")

		tree, err = extract.ParseTree(doc)
		if err != nil {
			return nil, fmt.Errorf("parsing efetch response: %w", err)
		}
		citations = tree.Citations()
		path = "tree"
	}

	found := make(map[string][]string, len(batch))
	for _, c := range citations {
		pmid := c.PMID()
		if !requested[pmid] {
			p.logger.Debug().Str("pmid", pmid).Str("path", path).Msg("ignoring unrequested record")
			continue
		}
		if _, done := found[pmid]; done {
			continue
		}
		found[pmid] = p.classify(c, path)
	}

	for _, pmid := range batch {
		if _, done := found[pmid]; done {
			continue
		}
		if tree == nil {
			tree, err = extract.ParseTree(doc)
			if err != nil {
				return nil, fmt.Errorf("parsing efetch response: %w", err)
			}
		}
		if c, ok := tree.Find(pmid); ok {
			found[pmid] = p.classify(c, "tree")
			continue
		}
		metrics.MissingRecords.Inc()
		p.logger.Debug().Str("pmid", pmid).Msg("no record returned")
		found[pmid] = nil
	}
	return found, nil
}

func (p *Pipeline) classify(c extract.Citation, path string) []string {
	ids, tier := extract.Classify(c)
	metrics.Records.WithLabelValues(string(tier)).Inc()
	p.logger.Debug().
		Str("pmid", c.PMID()).
		Str("tier", string(tier)).
		Str("path", path).
		Int("nct_ids", len(ids)).
		Msg("record classified")
	return ids
}
