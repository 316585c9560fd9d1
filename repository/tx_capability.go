package repository

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/chatspire/susanoo/utils"
	"gorm.io/gorm"
)

// TxCapability is the cached answer to "does the store support transactions".
type TxCapability int

const (
	TxCapabilityUnknown TxCapability = iota
	TxCapabilitySupported
	TxCapabilityUnsupported
)

// String returns the string representation of the capability
func (c TxCapability) String() string {
	switch c {
	case TxCapabilitySupported:
		return "supported"
	case TxCapabilityUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// TxRunner executes a unit of work either inside a real transaction or, when
// the store cannot provide one, as a plain sequential pass.
type TxRunner interface {
	Run(ctx context.Context, fn func(context.Context) error) error
	Capability() TxCapability
}

// CapabilityTxRunner probes the store once for transaction support and caches
// the verdict. A failed probe is re-tried after the cooldown elapses, so a
// store that gains transaction support after a topology change is picked up
// without a restart.
type CapabilityTxRunner struct {
	db       *gorm.DB
	logger   *log.Logger
	cooldown time.Duration

	mu         sync.Mutex
	capability TxCapability
	probedAt   time.Time
}

// NewCapabilityTxRunner creates a runner probing the given database
func NewCapabilityTxRunner(db *gorm.DB, logger *log.Logger, cooldown time.Duration) *CapabilityTxRunner {
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &CapabilityTxRunner{
		db:       db,
		logger:   logger,
		cooldown: cooldown,
	}
}

// Capability returns the cached probe verdict, probing on first use
func (r *CapabilityTxRunner) Capability() TxCapability {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.probeLocked()
}

func (r *CapabilityTxRunner) probeLocked() TxCapability {
	if r.capability == TxCapabilitySupported {
		return r.capability
	}
	if r.capability == TxCapabilityUnsupported && utils.UTCNow().Sub(r.probedAt) < r.cooldown {
		return r.capability
	}

	tx := r.db.Begin()
	if tx.Error != nil {
		r.capability = TxCapabilityUnsupported
		r.probedAt = utils.UTCNow()
		if r.logger != nil {
			r.logger.Printf("transaction probe failed, running in degraded sequential mode: %v", tx.Error)
		}
		return r.capability
	}
	tx.Rollback()

	r.capability = TxCapabilitySupported
	r.probedAt = utils.UTCNow()
	return r.capability
}

// Run executes fn transactionally when the store supports it; otherwise fn
// runs against the bare connection and partial writes are possible.
func (r *CapabilityTxRunner) Run(ctx context.Context, fn func(context.Context) error) error {
	if r.Capability() == TxCapabilitySupported {
		return WithTransaction(ctx, r.db, fn)
	}
	return fn(ctx)
}
