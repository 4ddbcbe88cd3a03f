package crm

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/salesboard/backend/internal/types"
)

// UniqueIDs de-duplicates ids preserving first-seen order and dropping
// empties, so the fan-out never issues redundant lookups.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// FetchCallDetails fetches call drill-downs for the given ids on a
// bounded worker pool. Each worker writes only to its own claimed
// result slot. A failed fetch degrades that one record (it is omitted
// from the result map) and never aborts the batch.
func (c *Client) FetchCallDetails(ctx context.Context, ids []string) map[string]types.Record {
	ids = UniqueIDs(ids)
	results := make([]*types.Record, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			rec, err := c.FetchCallDetail(gctx, id)
			if err != nil {
				c.logger.Warn().Err(err).Str("call_id", id).Msg("call detail degraded")
				return nil
			}
			results[i] = &rec
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	out := make(map[string]types.Record, len(ids))
	for i, rec := range results {
		if rec != nil {
			out[ids[i]] = *rec
		}
	}
	return out
}

// FetchLeads fetches lead drill-downs for the given ids on a bounded
// worker pool, with the same degrade-don't-abort contract as
// FetchCallDetails.
func (c *Client) FetchLeads(ctx context.Context, ids []string) map[string]types.Lead {
	ids = UniqueIDs(ids)
	results := make([]*types.Lead, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			lead, err := c.FetchLeadDetail(gctx, id)
			if err != nil {
				c.logger.Warn().Err(err).Str("lead_id", id).Msg("lead detail degraded")
				return nil
			}
			results[i] = &lead
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]types.Lead, len(ids))
	for i, lead := range results {
		if lead != nil {
			out[ids[i]] = *lead
		}
	}
	return out
}
