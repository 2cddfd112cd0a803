// Package garage implements the stateful maintenance flows: task lifecycle,
// mileage update propagation, and service completion.
//
// All computation is delegated to the pure schedule package; this package
// owns transaction boundaries, ownership checks, and the denormalized
// due-point cache. Multi-row updates for a motorcycle run inside a single
// transaction so a crash cannot leave sibling tasks rebased against
// different mileages.
package garage

import (
	"context"
	"time"

	"github.com/dmelton/wrenchlog/internal/notify"
	"gorm.io/gorm"
)

// DefaultDedupWindow is how close together two identical odometer updates
// must be to reuse the same mileage log entry.
const DefaultDedupWindow = 60 * time.Second

// Publisher is the outbound event sink consumed as a fire-and-forget call.
type Publisher interface {
	Publish(ctx context.Context, ev notify.Event)
}

// Options configures a Service.
type Options struct {
	// DedupWindow overrides DefaultDedupWindow when positive.
	DedupWindow time.Duration
	// Events receives mileage_updated events. Optional.
	Events Publisher
}

// Service executes maintenance flows against the database.
type Service struct {
	db          *gorm.DB
	dedupWindow time.Duration
	events      Publisher
}

// New creates a Service.
func New(db *gorm.DB, opts Options) *Service {
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = DefaultDedupWindow
	}
	return &Service{
		db:          db,
		dedupWindow: opts.DedupWindow,
		events:      opts.Events,
	}
}
