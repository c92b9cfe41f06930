//go:build !(js && wasm)

package dom

import (
	"context"

	"github.com/matthewbaird/addrcascade/internal/cascade"
	"github.com/matthewbaird/addrcascade/internal/platform/logger"
)

// Form is an attached set of fields. Outside a browser it is never created.
type Form struct{}

// Attach always fails outside a browser.
func Attach(_ context.Context, _ []byte, _ cascade.Source, _ *logger.Logger) (*Form, error) {
	return nil, ErrNoDOM
}

// Close does nothing.
func (f *Form) Close() {}
