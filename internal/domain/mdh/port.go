package mdh

import "context"

// Client is the port through which the catalog and pipeline stages reach
// the remote master-data hub (C7). The concrete implementation lives in
// internal/adapter/outbound/mdh.
type Client interface {
	GetAllModels(ctx context.Context) ([]ModelDescriptor, error)
	GetModelByID(ctx context.Context, id string) (ModelDescriptor, error)
	GetModelFields(ctx context.Context, id string) ([]FieldDescriptor, error)
	QueryRecords(ctx context.Context, query CanonicalQuery) (QueryResult, error)
}

// Troubleshooting accompanies a QueryError with guidance surfaced back
// through the pipeline on failure.
type Troubleshooting struct {
	PossibleCauses []string
	NextSteps      []string
}

// QueryError is returned by Client.QueryRecords when the hub responds
// with a non-2xx status. A 401 on the query path never retries; the
// caller is expected to surface Troubleshooting verbatim.
type QueryError struct {
	Message         string
	StatusCode      int
	Troubleshooting Troubleshooting
}

func (e *QueryError) Error() string {
	return e.Message
}

// UnauthorizedTroubleshooting is attached to every 401 QueryError.
func UnauthorizedTroubleshooting() Troubleshooting {
	return Troubleshooting{
		PossibleCauses: []string{
			"query credentials are missing or invalid",
			"the configured credentials have been rotated on the hub side",
		},
		NextSteps: []string{
			"verify mdh.query_username / mdh.query_password (or mdh.username / mdh.password)",
			"confirm the credentials have not been revoked on the hub",
		},
	}
}
