package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/field-report-api/internal/config"
	"github.com/yukikurage/field-report-api/internal/constants"
	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/repository"
	"github.com/yukikurage/field-report-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNumberGenerationFailed = fmt.Errorf("project number generation failed: %w", apierrors.ErrStorage)
	ErrCounterContention      = fmt.Errorf("%w: project counter is contended", apierrors.ErrConflict)
)

const (
	BackendAtomicCounter = "atomic_counter"
	BackendScanDerived   = "scan_derived"

	// casSpins bounds compare-and-increment rounds within one allocation attempt.
	casSpins = 8
)

// Numbering is the resolved numbering scheme of a tenant.
type Numbering struct {
	TenantID uint64
	Prefix   string
	Format   *utils.NumberFormat
	Mode     models.NumberingMode
}

// CounterBackend hands out the next sequence for a tenant and year.
type CounterBackend interface {
	Name() string
	Next(ctx context.Context, numbering Numbering, year int) (int64, error)
}

// AtomicCounterStore allocates from the project_counters row with a
// conditional update, so two callers can never receive the same value.
// A missing row is seeded past the numbers already in use, which covers
// tenants moving off the scan path.
type AtomicCounterStore struct {
	counters repository.ProjectCounterRepository
	seed     CounterBackend
}

func NewAtomicCounterStore(counters repository.ProjectCounterRepository, seed CounterBackend) *AtomicCounterStore {
	return &AtomicCounterStore{counters: counters, seed: seed}
}

func (s *AtomicCounterStore) Name() string { return BackendAtomicCounter }

// Next returns the pre-increment value of the counter row, creating the row
// at the first unused sequence when it does not exist yet.
func (s *AtomicCounterStore) Next(ctx context.Context, numbering Numbering, year int) (int64, error) {
	for spin := 0; spin < casSpins; spin++ {
		counter, err := s.counters.Get(ctx, numbering.TenantID, year)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			first, err := s.seed.Next(ctx, numbering, year)
			if err != nil {
				return 0, err
			}
			seed := &models.ProjectCounter{TenantID: numbering.TenantID, Year: year, NextSeq: first}
			// A duplicate key means a concurrent caller seeded it first; re-read either way.
			if err := s.counters.Insert(ctx, seed); err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
				return 0, storageError("seed project counter", err)
			}
			continue
		}
		if err != nil {
			return 0, storageError("read project counter", err)
		}

		won, err := s.counters.CompareAndIncrement(ctx, numbering.TenantID, year, counter.NextSeq)
		if err != nil {
			return 0, storageError("increment project counter", err)
		}
		if won {
			return counter.NextSeq, nil
		}
	}
	return 0, ErrCounterContention
}

// ScanDerivedCounter derives the next sequence from the highest existing
// project number. Two concurrent callers may compute the same value; the
// project insert retry resolves that.
type ScanDerivedCounter struct {
	projects repository.ProjectRepository
}

func NewScanDerivedCounter(projects repository.ProjectRepository) *ScanDerivedCounter {
	return &ScanDerivedCounter{projects: projects}
}

func (s *ScanDerivedCounter) Name() string { return BackendScanDerived }

func (s *ScanDerivedCounter) Next(ctx context.Context, numbering Numbering, year int) (int64, error) {
	numbers, err := s.projects.ListNumbersLike(ctx, numbering.TenantID, numbering.Format.LikePattern(numbering.Prefix, year))
	if err != nil {
		return 0, storageError("scan project numbers", err)
	}

	var max int64
	for _, number := range numbers {
		if seq, ok := numbering.Format.ParseSequence(numbering.Prefix, year, number); ok && seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

// AllocatedNumber is one sequence handed out by the Allocator.
type AllocatedNumber struct {
	Sequence  int64  `json:"sequence"`
	Formatted string `json:"formatted_number"`
	Backend   string `json:"backend"`

	numbering Numbering
	year      int
}

// WithSequence formats seq with the same tenant scheme and year.
func (n *AllocatedNumber) WithSequence(seq int64) string {
	return n.numbering.Format.Format(n.numbering.Prefix, n.year, seq)
}

// Allocator produces tenant-scoped, year-bucketed project sequence numbers.
type Allocator struct {
	tenants    repository.TenantRepository
	counters   repository.ProjectCounterRepository
	atomic     CounterBackend
	scan       CounterBackend
	cfg        config.NumberingConfig
	defaultFmt *utils.NumberFormat
	logger     *zap.Logger
}

// NewAllocator creates an Allocator over the given repositories.
func NewAllocator(
	tenants repository.TenantRepository,
	counters repository.ProjectCounterRepository,
	projects repository.ProjectRepository,
	cfg config.NumberingConfig,
	logger *zap.Logger,
) *Allocator {
	if cfg.DefaultPrefix == "" {
		cfg.DefaultPrefix = constants.DefaultProjectPrefix
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	scan := NewScanDerivedCounter(projects)
	return &Allocator{
		tenants:    tenants,
		counters:   counters,
		atomic:     NewAtomicCounterStore(counters, scan),
		scan:       scan,
		cfg:        cfg,
		defaultFmt: utils.MustParseNumberFormat(constants.DefaultProjectNumberFormat),
		logger:     logger,
	}
}

// AllocateProjectNumber returns the next sequence for the tenant and year
// together with the formatted project number.
func (a *Allocator) AllocateProjectNumber(ctx context.Context, tenantID uint64, year int) (*AllocatedNumber, error) {
	numbering := a.resolveNumbering(ctx, tenantID)

	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		seq, backend, err := a.tryOnce(ctx, numbering, year)
		if err == nil {
			return &AllocatedNumber{
				Sequence:  seq,
				Formatted: numbering.Format.Format(numbering.Prefix, year, seq),
				Backend:   backend,
				numbering: numbering,
				year:      year,
			}, nil
		}
		lastErr = err

		a.logger.Warn("project number allocation attempt failed",
			zap.Uint64("tenant_id", tenantID),
			zap.Int("year", year),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt == a.cfg.MaxAttempts {
			break
		}
		if err := sleepContext(ctx, a.backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	a.logger.Error("project number allocation exhausted",
		zap.Uint64("tenant_id", tenantID),
		zap.Int("year", year),
		zap.Error(lastErr),
	)
	return nil, fmt.Errorf("%w: tenant %d year %d: %w", ErrNumberGenerationFailed, tenantID, year, lastErr)
}

// NextCandidate picks the sequence to try after taken turned out to be in
// use: taken+1, or past the highest existing number when that is further.
func (a *Allocator) NextCandidate(ctx context.Context, n *AllocatedNumber, taken int64) int64 {
	next := taken + 1

	scanCtx, cancel := a.storeContext(ctx)
	defer cancel()
	seq, err := a.scan.Next(scanCtx, n.numbering, n.year)
	if err != nil {
		a.logger.Warn("project number scan failed, trying next sequence",
			zap.Uint64("tenant_id", n.numbering.TenantID),
			zap.Int("year", n.year),
			zap.Error(err),
		)
		return next
	}
	if seq > next {
		next = seq
	}
	return next
}

// Advance moves the tenant counter past used once a project was stored at a
// sequence other than the one the counter handed out.
func (a *Allocator) Advance(ctx context.Context, n *AllocatedNumber, used int64) {
	if n.Backend != BackendAtomicCounter {
		return
	}

	raiseCtx, cancel := a.storeContext(ctx)
	defer cancel()
	if _, err := a.counters.RaiseTo(raiseCtx, n.numbering.TenantID, n.year, used+1); err != nil {
		a.logger.Warn("failed to advance project counter",
			zap.Uint64("tenant_id", n.numbering.TenantID),
			zap.Int("year", n.year),
			zap.Int64("next_seq", used+1),
			zap.Error(err),
		)
	}
}

// tryOnce runs one allocation attempt. Storage failures on the atomic path
// fall through to the scan; contention does not.
func (a *Allocator) tryOnce(ctx context.Context, numbering Numbering, year int) (int64, string, error) {
	if numbering.Mode != models.NumberingModeScan {
		seq, handled, err := a.tryAtomic(ctx, numbering, year)
		if handled {
			return seq, a.atomic.Name(), err
		}
	}

	scanCtx, cancel := a.storeContext(ctx)
	defer cancel()
	seq, err := a.scan.Next(scanCtx, numbering, year)
	return seq, a.scan.Name(), err
}

// tryAtomic reports handled=false when the caller should derive the sequence by scan.
func (a *Allocator) tryAtomic(ctx context.Context, numbering Numbering, year int) (seq int64, handled bool, err error) {
	atomicCtx, cancel := a.storeContext(ctx)
	defer cancel()

	if !a.counters.Available(atomicCtx) {
		return 0, false, nil
	}

	seq, err = a.atomic.Next(atomicCtx, numbering, year)
	if err == nil || errors.Is(err, ErrCounterContention) {
		return seq, true, err
	}

	a.logger.Warn("atomic project counter failed, deriving sequence by scan",
		zap.Uint64("tenant_id", numbering.TenantID),
		zap.Int("year", year),
		zap.Error(err),
	)
	return 0, false, nil
}

// resolveNumbering falls back to the default prefix when the tenant cannot be read.
func (a *Allocator) resolveNumbering(ctx context.Context, tenantID uint64) Numbering {
	numbering := Numbering{
		TenantID: tenantID,
		Prefix:   a.cfg.DefaultPrefix,
		Format:   a.defaultFmt,
		Mode:     models.NumberingModeCounter,
	}

	lookupCtx, cancel := a.storeContext(ctx)
	defer cancel()

	tenant, err := a.tenants.FindByID(lookupCtx, tenantID)
	if err != nil {
		a.logger.Warn("tenant lookup failed, using default project prefix",
			zap.Uint64("tenant_id", tenantID),
			zap.String("prefix", numbering.Prefix),
			zap.Error(err),
		)
		return numbering
	}

	if tenant.ProjectNumberPrefix != "" {
		numbering.Prefix = tenant.ProjectNumberPrefix
	}
	if tenant.NumberingMode == models.NumberingModeScan {
		numbering.Mode = models.NumberingModeScan
	}
	if tenant.ProjectNumberFormat != "" {
		format, err := utils.ParseNumberFormat(tenant.ProjectNumberFormat)
		if err != nil {
			a.logger.Warn("invalid tenant number format, using default",
				zap.Uint64("tenant_id", tenantID),
				zap.String("format", tenant.ProjectNumberFormat),
				zap.Error(err),
			)
		} else {
			numbering.Format = format
		}
	}
	return numbering
}

func (a *Allocator) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.StoreTimeout)
}

// backoff grows linearly with the attempt number.
func (a *Allocator) backoff(attempt int) time.Duration {
	return a.cfg.Backoff * time.Duration(attempt)
}
