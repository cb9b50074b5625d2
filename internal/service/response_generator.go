package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/pipeline"
)

// maxListedItems is the stage 6 cap on how many records a LIST
// response enumerates before collapsing the rest into "... and X more".
const maxListedItems = 10

// largeDatasetThreshold is the record count above which ResponseGenerator
// switches from enumerating records to a statistical summary.
const largeDatasetThreshold = 100

// businessFieldPreference orders the field names ResponseGenerator tries,
// most to least preferred, when composing a record's display label.
// Matches worked examples like "<advertiser> - <product>" or
// "<firstname> <lastname>" for composite display labels.
var businessFieldPreference = [][]string{
	{"ADVERTISER", "PRODUCT"},
	{"FIRSTNAME", "LASTNAME"},
	{"NAME"},
	{"TITLE"},
}

// ResponseGeneratorService implements pipeline.ResponseGenerator (C8.6).
// It runs a rule-based formatter; an LLM-backed phrasing path can be
// layered in front of it by a caller that prefers one, since this service
// never needs the LLM to produce a non-empty response.
type ResponseGeneratorService struct{}

// NewResponseGeneratorService constructs a ResponseGeneratorService.
func NewResponseGeneratorService() *ResponseGeneratorService {
	return &ResponseGeneratorService{}
}

// Generate renders results into a FormattedResponse. The response is
// always non-empty, per the requirement that response generation
// recovers locally rather than surfacing blank output.
func (s *ResponseGeneratorService) Generate(_ context.Context, analyzed pipeline.AnalyzedQuery, results mdh.QueryResult) (pipeline.FormattedResponse, error) {
	if len(results.Records) == 0 {
		return pipeline.FormattedResponse{
			ResponseType: "NO_RESULTS",
			Message:      "I didn't find any matching records.",
		}, nil
	}

	if len(results.Records) > largeDatasetThreshold {
		return summarizeLargeDataset(results), nil
	}

	switch analyzed.Intent {
	case pipeline.IntentCount:
		return pipeline.FormattedResponse{
			ResponseType: "SUCCESS",
			Message:      fmt.Sprintf("I found %d %s.", countOf(results), subjectNoun(analyzed)),
		}, nil
	case pipeline.IntentCompare:
		return compareTable(results), nil
	default:
		return listRecords(results), nil
	}
}

// countOf prefers the hub's reported total match count over the page size
// actually returned, since a COUNT answer should reflect "how many exist",
// not "how many fit in one page".
func countOf(results mdh.QueryResult) int {
	if results.TotalCount > 0 {
		return results.TotalCount
	}
	return results.TotalReturned
}

// subjectNoun recovers the count-noun subject from the analyzed entities
// ("how many products" -> "products"), falling back to "records".
func subjectNoun(analyzed pipeline.AnalyzedQuery) string {
	for _, e := range analyzed.Entities {
		if e.Type == "count_noun" {
			return e.Text
		}
	}
	return "records"
}

// listRecords renders at most maxListedItems records using the best
// available business field label for each, collapsing the remainder.
func listRecords(results mdh.QueryResult) pipeline.FormattedResponse {
	labels := make([]string, 0, len(results.Records))
	for _, r := range results.Records {
		labels = append(labels, recordLabel(r))
	}

	shown := labels
	truncated := false
	if len(shown) > maxListedItems {
		shown = shown[:maxListedItems]
		truncated = true
	}

	var b strings.Builder
	for i, label := range shown {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(label)
	}
	if truncated {
		fmt.Fprintf(&b, "\n... and %d more", len(labels)-maxListedItems)
	}

	return pipeline.FormattedResponse{
		ResponseType: "SUCCESS",
		Message:      b.String(),
	}
}

// recordLabel composes a human-readable label for a record, trying each
// business-field-preference group in order and falling back to the first
// non-internal field when none match.
func recordLabel(r mdh.Record) string {
	for _, group := range businessFieldPreference {
		parts := make([]string, 0, len(group))
		matched := false
		for _, field := range group {
			if v, ok := r[field]; ok && v != "" {
				parts = append(parts, v)
				matched = true
			}
		}
		if matched {
			return strings.Join(parts, " - ")
		}
	}

	keys := make([]string, 0, len(r))
	for k := range r {
		if k == mdh.RecordIDKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		return r[keys[0]]
	}
	return "(unnamed record)"
}

// compareTable renders a small grouped table for COMPARE intents.
func compareTable(results mdh.QueryResult) pipeline.FormattedResponse {
	header := []string{"label", "count"}
	counts := make(map[string]int)
	var order []string
	for _, r := range results.Records {
		label := recordLabel(r)
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}
	sort.Strings(order)

	table := [][]string{header}
	for _, label := range order {
		table = append(table, []string{label, strconv.Itoa(counts[label])})
	}

	return pipeline.FormattedResponse{
		ResponseType: "SUCCESS",
		Message:      fmt.Sprintf("Comparison across %d groups.", len(order)),
		Table:        table,
	}
}

// summarizeLargeDataset produces min/max/avg for numeric fields and
// unique-value counts for categorical fields stage 6's >100
// record branch.
func summarizeLargeDataset(results mdh.QueryResult) pipeline.FormattedResponse {
	numeric := make(map[string][]float64)
	categorical := make(map[string]map[string]bool)

	for _, r := range results.Records {
		for field, value := range r {
			if field == mdh.RecordIDKey {
				continue
			}
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				numeric[field] = append(numeric[field], n)
				continue
			}
			if categorical[field] == nil {
				categorical[field] = make(map[string]bool)
			}
			categorical[field][value] = true
		}
	}

	summary := make(map[string]string)
	for field, values := range numeric {
		min, max, sum := values[0], values[0], 0.0
		for _, v := range values {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			sum += v
		}
		avg := sum / float64(len(values))
		summary[field] = fmt.Sprintf("min=%.2f max=%.2f avg=%.2f", min, max, avg)
	}
	for field, set := range categorical {
		summary[field] = fmt.Sprintf("%d unique values", len(set))
	}

	return pipeline.FormattedResponse{
		ResponseType: "SUCCESS",
		Message:      fmt.Sprintf("This returned %d records; here's a summary instead of the full list.", len(results.Records)),
		Summary:      summary,
	}
}

var _ pipeline.ResponseGenerator = (*ResponseGeneratorService)(nil)
