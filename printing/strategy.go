package printing

import (
	"context"
)

// Strategy prints a request on the configured printer. Implementations differ in how the
// document reaches the device but produce equivalent output for the same request.
type Strategy interface {
	Name() string
	Print(ctx context.Context, req Request) error
}
