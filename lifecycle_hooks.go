package payreq

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/payreq-foundation/payreq/types"
)

// ============================================================================
// Lifecycle Hook Context Types
// ============================================================================

// CreateHookContext contains information passed to create hooks
type CreateHookContext struct {
	Ctx       context.Context
	EventID   uuid.UUID
	Owner     types.Identity
	RequestID uint64
	Private   bool
	Timestamp time.Time
}

// SettleHookContext contains information passed to settle hooks
type SettleHookContext struct {
	Ctx       context.Context
	EventID   uuid.UUID
	Owner     types.Identity
	RequestID uint64
	Payer     types.Identity
	Amount    uint64
	Private   bool
	Timestamp time.Time
}

// SettleResultHookContext contains the settle result and its context
type SettleResultHookContext struct {
	SettleHookContext
	Result   SettleResult
	Duration time.Duration
}

// SettleFailureHookContext contains a settle failure and its context
type SettleFailureHookContext struct {
	SettleHookContext
	Err      error
	Duration time.Duration
}

// SweepHookContext contains information passed to sweep hooks
type SweepHookContext struct {
	Ctx       context.Context
	EventID   uuid.UUID
	Owner     types.Identity
	RequestID uint64
	Receiver  types.Identity
	Private   bool
	Timestamp time.Time
}

// SweepResultHookContext contains the sweep result and its context
type SweepResultHookContext struct {
	SweepHookContext
	Result   SweepResult
	Duration time.Duration
}

// SweepFailureHookContext contains a sweep failure and its context
type SweepFailureHookContext struct {
	SweepHookContext
	Err      error
	Duration time.Duration
}

// BeforeHookResult represents the result of a "before" hook.
// If Abort is true, the transition is rejected with ErrCodeOperationAborted
// and the given Reason before any side effect.
type BeforeHookResult struct {
	Abort  bool
	Reason string
}

// ============================================================================
// Lifecycle Hook Function Types
// ============================================================================

// AfterCreateHook is called after a request entity is persisted
type AfterCreateHook func(CreateHookContext) error

// BeforeSettleHook is called after the entity is loaded and its preconditions
// hold, before the fund transfer
type BeforeSettleHook func(SettleHookContext) (*BeforeHookResult, error)

// AfterSettleHook is called after a successful settle. Errors returned here
// are logged, not propagated: the transition has already committed.
type AfterSettleHook func(SettleResultHookContext) error

// OnSettleFailureHook is called when a settle transition fails
type OnSettleFailureHook func(SettleFailureHookContext)

// BeforeSweepHook is called after authorization and state checks pass, before
// the escrow debit
type BeforeSweepHook func(SweepHookContext) (*BeforeHookResult, error)

// AfterSweepHook is called after a successful sweep. Errors returned here are
// logged, not propagated.
type AfterSweepHook func(SweepResultHookContext) error

// OnSweepFailureHook is called when a sweep transition fails
type OnSweepFailureHook func(SweepFailureHookContext)

// ============================================================================
// Hook Registration
// ============================================================================

func (l *RequestLifecycle) OnAfterCreate(hook AfterCreateHook) *RequestLifecycle {
	l.afterCreateHooks = append(l.afterCreateHooks, hook)
	return l
}

func (l *RequestLifecycle) OnBeforeSettle(hook BeforeSettleHook) *RequestLifecycle {
	l.beforeSettleHooks = append(l.beforeSettleHooks, hook)
	return l
}

func (l *RequestLifecycle) OnAfterSettle(hook AfterSettleHook) *RequestLifecycle {
	l.afterSettleHooks = append(l.afterSettleHooks, hook)
	return l
}

func (l *RequestLifecycle) OnSettleFailure(hook OnSettleFailureHook) *RequestLifecycle {
	l.onSettleFailureHooks = append(l.onSettleFailureHooks, hook)
	return l
}

func (l *RequestLifecycle) OnBeforeSweep(hook BeforeSweepHook) *RequestLifecycle {
	l.beforeSweepHooks = append(l.beforeSweepHooks, hook)
	return l
}

func (l *RequestLifecycle) OnAfterSweep(hook AfterSweepHook) *RequestLifecycle {
	l.afterSweepHooks = append(l.afterSweepHooks, hook)
	return l
}

func (l *RequestLifecycle) OnSweepFailure(hook OnSweepFailureHook) *RequestLifecycle {
	l.onSweepFailureHooks = append(l.onSweepFailureHooks, hook)
	return l
}

// ============================================================================
// Hook Runners
// ============================================================================

func (l *RequestLifecycle) runAfterCreateHooks(hctx CreateHookContext) {
	for _, hook := range l.afterCreateHooks {
		if err := hook(hctx); err != nil {
			l.logger.Warn("after-create hook failed: " + err.Error())
		}
	}
}

func (l *RequestLifecycle) runBeforeSettleHooks(hctx SettleHookContext) error {
	for _, hook := range l.beforeSettleHooks {
		result, err := hook(hctx)
		if err != nil {
			return err
		}
		if result != nil && result.Abort {
			return NewProtocolError(ErrCodeOperationAborted, result.Reason, nil)
		}
	}
	return nil
}

func (l *RequestLifecycle) runAfterSettleHooks(hctx SettleResultHookContext) {
	for _, hook := range l.afterSettleHooks {
		if err := hook(hctx); err != nil {
			l.logger.Warn("after-settle hook failed: " + err.Error())
		}
	}
}

func (l *RequestLifecycle) runSettleFailureHooks(hctx SettleFailureHookContext) {
	for _, hook := range l.onSettleFailureHooks {
		hook(hctx)
	}
}

func (l *RequestLifecycle) runBeforeSweepHooks(hctx SweepHookContext) error {
	for _, hook := range l.beforeSweepHooks {
		result, err := hook(hctx)
		if err != nil {
			return err
		}
		if result != nil && result.Abort {
			return NewProtocolError(ErrCodeOperationAborted, result.Reason, nil)
		}
	}
	return nil
}

func (l *RequestLifecycle) runAfterSweepHooks(hctx SweepResultHookContext) {
	for _, hook := range l.afterSweepHooks {
		if err := hook(hctx); err != nil {
			l.logger.Warn("after-sweep hook failed: " + err.Error())
		}
	}
}

func (l *RequestLifecycle) runSweepFailureHooks(hctx SweepFailureHookContext) {
	for _, hook := range l.onSweepFailureHooks {
		hook(hctx)
	}
}
