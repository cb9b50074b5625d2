// Package mdh defines the domain types shared with the remote master-data
// hub: model catalog descriptors, canonical queries, and query results.
// Grounded on the spec's the normalized-descriptor and
// canonical-query shapes; the wire XML dialect lives in pkg/mdhxml.
package mdh

// PublicationStatus is a model's catalog lifecycle state.
type PublicationStatus string

const (
	PublicationPublish PublicationStatus = "publish"
	PublicationDraft   PublicationStatus = "draft"
)

// FieldDescriptor is one field of a model, as exposed to downstream
// stages: the Name is the upper-cased canonical identifier; OriginalName
// preserves the hub's own casing.
type FieldDescriptor struct {
	Name         string
	OriginalName string
	Type         string
	Required     bool
	Repeatable   bool
	UniqueID     bool
}

// ModelDescriptor is the normalized catalog entry for one MDH model.
type ModelDescriptor struct {
	ID                string
	Name              string
	PublicationStatus PublicationStatus
	LatestVersion     int
	Fields            []FieldDescriptor
	Sources           []string
	MatchRules        []string
	RecordTitleFields []string
}

// FieldByName looks up a field by its upper-cased canonical name.
func (m ModelDescriptor) FieldByName(name string) (FieldDescriptor, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Operator is a query filter comparison operator.
type Operator string

const (
	OperatorEquals   Operator = "EQUALS"
	OperatorContains Operator = "CONTAINS"
)

// Filter is one canonical-query filter clause.
type Filter struct {
	FieldID  string
	Operator Operator
	Value    string
}

// QueryType mirrors the pipeline's intent for the purposes of query
// construction; COUNT queries are selects with client-side counting since
// the hub supports only record selection.
type QueryType string

const (
	QueryTypeSelect QueryType = "select"
)

// CanonicalQuery is the structured query built by QueryBuilder (C8.4) and
// executed by DataRetrieval (C8.5) through the MDH adapter (C7).
type CanonicalQuery struct {
	QueryType  QueryType
	ModelID    string
	Operations []string // always a single-element list: ["select"]
	Filters    []Filter
	Fields     []string
	GroupBy    string
	Metadata   map[string]string
	Hints      map[string]string
	Limit      int
	OffsetToken string
}

// Record is one canonical record returned from the hub: field names are
// upper-cased canonical identifiers, with `_record_id` always present.
type Record map[string]string

// RecordIDKey is the reserved key under which a record's hub-assigned
// identifier is stored.
const RecordIDKey = "_record_id"

// QueryResult is the outcome of executing a CanonicalQuery.
type QueryResult struct {
	Records         []Record
	TotalReturned   int
	TotalCount      int
	HasMore         bool
	NextOffsetToken string
}

// ClampLimit enforces the [1, 1000] input constraint.
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
