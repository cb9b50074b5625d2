package mdhxml

import (
	"strings"
	"testing"
)

func TestBuildRecordQueryRequest_NoFilter(t *testing.T) {
	body, err := BuildRecordQueryRequest([]string{"NAME", "PRODUCT"}, nil, 50, "")
	if err != nil {
		t.Fatalf("BuildRecordQueryRequest() error = %v", err)
	}
	s := string(body)

	if !strings.Contains(s, `limit="50"`) {
		t.Errorf("body missing limit attribute: %s", s)
	}
	if strings.Contains(s, "offsetToken") {
		t.Errorf("body should omit offsetToken when empty: %s", s)
	}
	if !strings.Contains(s, "<fieldId>NAME</fieldId>") || !strings.Contains(s, "<fieldId>PRODUCT</fieldId>") {
		t.Errorf("body missing view field ids: %s", s)
	}
	if strings.Contains(s, "<filter") {
		t.Errorf("body should omit <filter> when no filters given: %s", s)
	}
}

func TestBuildRecordQueryRequest_WithFilterAndOffset(t *testing.T) {
	filters := []FilterClause{
		{FieldID: "STATUS", Operator: "EQUALS", Value: "active"},
	}
	body, err := BuildRecordQueryRequest([]string{"STATUS"}, filters, 2000, "tok-1")
	if err != nil {
		t.Fatalf("BuildRecordQueryRequest() error = %v", err)
	}
	s := string(body)

	if !strings.Contains(s, `offsetToken="tok-1"`) {
		t.Errorf("body missing offsetToken attribute: %s", s)
	}
	if !strings.Contains(s, `<filter op="AND">`) {
		t.Errorf("body missing filter op=AND: %s", s)
	}
	if !strings.Contains(s, "<fieldId>STATUS</fieldId><operator>EQUALS</operator><value>active</value>") {
		t.Errorf("body missing fieldValue contents: %s", s)
	}
}
