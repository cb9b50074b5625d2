package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/pipeline"
)

// queryCache is the subset of memory.QueryCache that DataRetrievalService
// depends on, kept narrow so callers can substitute a fake in tests
// without importing the memory package.
type queryCache interface {
	Get(key string) (mdh.QueryResult, bool)
	Set(key string, value mdh.QueryResult)
}

// DataRetrievalService implements pipeline.DataRetrieval (C8.5): it
// executes a canonical query through the MDH adapter, with an optional
// short-lived result cache in front of it.
type DataRetrievalService struct {
	client mdh.Client
	cache  queryCache
}

// NewDataRetrievalService constructs a DataRetrievalService. cache may be
// nil to disable result caching entirely.
func NewDataRetrievalService(client mdh.Client, cache queryCache) *DataRetrievalService {
	return &DataRetrievalService{client: client, cache: cache}
}

// Retrieve executes query against the hub, preferring a cached result for
// an identical query fingerprint when caching is enabled.
func (s *DataRetrievalService) Retrieve(ctx context.Context, query mdh.CanonicalQuery) (mdh.QueryResult, error) {
	if s.cache != nil {
		key := FingerprintQuery(query)
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
		result, err := s.client.QueryRecords(ctx, query)
		if err != nil {
			return mdh.QueryResult{}, err
		}
		s.cache.Set(key, result)
		return result, nil
	}
	return s.client.QueryRecords(ctx, query)
}

// FingerprintQuery builds a deterministic string representation of a
// canonical query's shape, suitable for hashing into a cache key. Field
// and filter order don't affect equality: both are sorted before
// rendering, since QueryBuilder's map-derived ordering is otherwise
// nondeterministic across calls with the same logical query.
func FingerprintQuery(query mdh.CanonicalQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|limit=%d|offset=%s|group=%s", query.QueryType, query.ModelID, query.Limit, query.OffsetToken, query.GroupBy)

	fields := append([]string(nil), query.Fields...)
	sort.Strings(fields)
	b.WriteString("|fields=")
	b.WriteString(strings.Join(fields, ","))

	filters := append([]mdh.Filter(nil), query.Filters...)
	sort.SliceStable(filters, func(i, j int) bool {
		if filters[i].FieldID != filters[j].FieldID {
			return filters[i].FieldID < filters[j].FieldID
		}
		return filters[i].Value < filters[j].Value
	})
	b.WriteString("|filters=")
	for i, f := range filters {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(f.FieldID)
		b.WriteByte(':')
		b.WriteString(string(f.Operator))
		b.WriteByte(':')
		b.WriteString(f.Value)
	}
	return b.String()
}

var _ pipeline.DataRetrieval = (*DataRetrievalService)(nil)
