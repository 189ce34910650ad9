package algorithm

import "testing"

func TestAggregationServiceURLPresent(t *testing.T) {
	p := Params{AggregationServiceURLKey: "https://aggregate.example.com/update"}
	if p.AggregationServiceURL() != "https://aggregate.example.com/update" {
		t.Errorf("unexpected URL: %s", p.AggregationServiceURL())
	}
}

func TestAggregationServiceURLAbsent(t *testing.T) {
	p := Params{}
	if p.AggregationServiceURL() != "" {
		t.Errorf("expected empty string, got %q", p.AggregationServiceURL())
	}
}

func TestAggregationServiceURLWrongType(t *testing.T) {
	p := Params{AggregationServiceURLKey: 42}
	if p.AggregationServiceURL() != "" {
		t.Errorf("expected empty string for non-string value, got %q", p.AggregationServiceURL())
	}
}
