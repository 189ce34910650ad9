package scale

import (
	"testing"

	"github.com/opal-project/opalrunner/internal/partial"
)

func TestApplyScalesEveryValue(t *testing.T) {
	p := partial.Partial{"x": 10}
	scaled := Apply(p, 0.5)

	if scaled["x"] != 5 {
		t.Errorf("expected 5, got %v", scaled["x"])
	}
}

func TestApplyNegativeWeightPassesThrough(t *testing.T) {
	p := partial.Partial{"x": 10}
	scaled := Apply(p, -1)

	if scaled["x"] != -10 {
		t.Errorf("expected -10, got %v", scaled["x"])
	}
}
