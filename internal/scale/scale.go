// Package scale implements the Scaler, multiplying every numeric value
// of a validated Partial by the subject's weight.
package scale

import "github.com/opal-project/opalrunner/internal/partial"

// Apply multiplies every value in p by weight, returning a new Partial.
// Weight 1 is the identity; no rounding is performed, and negative
// weights are not rejected (the weights file is trusted).
func Apply(p partial.Partial, weight float64) partial.Partial {
	return p.Scale(weight)
}
