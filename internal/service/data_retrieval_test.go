package service

import (
	"context"
	"errors"
	"testing"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
)

type fakeMDHClient struct {
	calls  int
	result mdh.QueryResult
	err    error
}

func (f *fakeMDHClient) GetAllModels(context.Context) ([]mdh.ModelDescriptor, error) { return nil, nil }
func (f *fakeMDHClient) GetModelByID(context.Context, string) (mdh.ModelDescriptor, error) {
	return mdh.ModelDescriptor{}, nil
}
func (f *fakeMDHClient) GetModelFields(context.Context, string) ([]mdh.FieldDescriptor, error) {
	return nil, nil
}
func (f *fakeMDHClient) QueryRecords(context.Context, mdh.CanonicalQuery) (mdh.QueryResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeQueryCache struct {
	store map[string]mdh.QueryResult
}

func newFakeQueryCache() *fakeQueryCache {
	return &fakeQueryCache{store: make(map[string]mdh.QueryResult)}
}

func (c *fakeQueryCache) Get(key string) (mdh.QueryResult, bool) {
	v, ok := c.store[key]
	return v, ok
}

func (c *fakeQueryCache) Set(key string, value mdh.QueryResult) {
	c.store[key] = value
}

func TestDataRetrieval_NoCachePassesThrough(t *testing.T) {
	client := &fakeMDHClient{result: mdh.QueryResult{TotalReturned: 2}}
	s := NewDataRetrievalService(client, nil)

	got, err := s.Retrieve(context.Background(), mdh.CanonicalQuery{ModelID: "Advertisements"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if got.TotalReturned != 2 {
		t.Errorf("TotalReturned = %d, want 2", got.TotalReturned)
	}
	if client.calls != 1 {
		t.Errorf("client.calls = %d, want 1", client.calls)
	}
}

func TestDataRetrieval_CacheHitAvoidsSecondCall(t *testing.T) {
	client := &fakeMDHClient{result: mdh.QueryResult{TotalReturned: 5}}
	cache := newFakeQueryCache()
	s := NewDataRetrievalService(client, cache)
	query := mdh.CanonicalQuery{ModelID: "Advertisements", Fields: []string{"ADVERTISER"}}

	if _, err := s.Retrieve(context.Background(), query); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if _, err := s.Retrieve(context.Background(), query); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if client.calls != 1 {
		t.Errorf("client.calls = %d, want 1 (second call should hit cache)", client.calls)
	}
}

func TestDataRetrieval_ErrorNotCached(t *testing.T) {
	client := &fakeMDHClient{err: errors.New("boom")}
	cache := newFakeQueryCache()
	s := NewDataRetrievalService(client, cache)
	query := mdh.CanonicalQuery{ModelID: "Advertisements"}

	if _, err := s.Retrieve(context.Background(), query); err == nil {
		t.Fatal("expected error")
	}
	if cache.store[FingerprintQuery(query)].TotalReturned != 0 {
		t.Error("error result must not be cached")
	}
	if len(cache.store) != 0 {
		t.Errorf("cache should remain empty after an error, got %d entries", len(cache.store))
	}
}

func TestFingerprintQuery_OrderIndependent(t *testing.T) {
	a := mdh.CanonicalQuery{
		ModelID: "Advertisements",
		Fields:  []string{"PRODUCT", "ADVERTISER"},
		Filters: []mdh.Filter{
			{FieldID: "PRODUCT", Operator: mdh.OperatorContains, Value: "widget"},
			{FieldID: "ADVERTISER", Operator: mdh.OperatorEquals, Value: "acme"},
		},
	}
	b := mdh.CanonicalQuery{
		ModelID: "Advertisements",
		Fields:  []string{"ADVERTISER", "PRODUCT"},
		Filters: []mdh.Filter{
			{FieldID: "ADVERTISER", Operator: mdh.OperatorEquals, Value: "acme"},
			{FieldID: "PRODUCT", Operator: mdh.OperatorContains, Value: "widget"},
		},
	}

	if FingerprintQuery(a) != FingerprintQuery(b) {
		t.Error("expected fingerprints to match regardless of field/filter order")
	}
}

func TestFingerprintQuery_DifferentFiltersDiffer(t *testing.T) {
	a := mdh.CanonicalQuery{ModelID: "Advertisements", Filters: []mdh.Filter{{FieldID: "ADVERTISER", Value: "acme"}}}
	b := mdh.CanonicalQuery{ModelID: "Advertisements", Filters: []mdh.Filter{{FieldID: "ADVERTISER", Value: "other"}}}

	if FingerprintQuery(a) == FingerprintQuery(b) {
		t.Error("expected different filter values to produce different fingerprints")
	}
}
