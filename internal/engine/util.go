package engine

import (
	"fmt"

	"github.com/kittclouds/aigan/pkg/uncertain"
)

// Result pairs a resolved trait value with any error hit while resolving
// it, so callers iterating a whole trait set via GetTraits don't
// abort the batch on the first failure.
type Result struct {
	Value uncertain.Value
	Err   error
}

// wrapf wraps a sentinel error with a formatted, id/label-carrying message.
func wrapf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, args...)...)
}
