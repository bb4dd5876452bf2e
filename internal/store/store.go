// Package store persists validated shift records. A [Sink] receives each
// record once it has passed validation; what happens afterwards (payroll
// export, reporting) is outside this module.
package store

import (
	"context"

	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

// Sink receives validated shift records.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Save persists rec. Saving the same (date, shift) twice supersedes the
	// earlier rows.
	Save(ctx context.Context, rec *shift.Record) error
}

// SinkFunc adapts a plain function to [Sink].
type SinkFunc func(ctx context.Context, rec *shift.Record) error

// Save calls f.
func (f SinkFunc) Save(ctx context.Context, rec *shift.Record) error { return f(ctx, rec) }
