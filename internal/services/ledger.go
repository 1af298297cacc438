package services

import (
	"context"
	"errors"
	"math"
	"time"

	"roleadmin/internal/apperr"
	"roleadmin/internal/events"
	"roleadmin/internal/metrics"
	"roleadmin/internal/models"
	"roleadmin/internal/store"
	console "roleadmin/internal/utils/logger"
)

var ledgerLog = console.New("LEDGER")

const (
	SystemActor = "system"

	DefaultTransactionLimit = 50
	MaxTransactionLimit     = 500
)

// BalanceChange is the outcome of a mutation. Delta is the requested change,
// which differs from New-Old when an adjustment was clamped at zero.
type BalanceChange struct {
	Old   float64 `json:"oldBalance"`
	New   float64 `json:"newBalance"`
	Delta float64 `json:"change"`
}

// Ledger applies credit mutations with one audit transaction each.
type Ledger struct {
	users    store.UserStore
	balances store.BalanceStore
	events   events.Emitter
	now      func() time.Time
}

func NewLedger(users store.UserStore, balances store.BalanceStore, emitter events.Emitter) *Ledger {
	return &Ledger{users: users, balances: balances, events: emitter, now: time.Now}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (l *Ledger) requireUser(ctx context.Context, userID string) error {
	_, err := l.users.GetUser(ctx, userID)
	return err
}

func (l *Ledger) applied(userID, context string, change BalanceChange, actorID string) {
	metrics.BalanceMutations.WithLabelValues(context).Inc()
	if l.events == nil {
		return
	}
	l.events.Emit(events.BalanceChanged, events.BalanceEvent{
		UserID:  userID,
		Context: context,
		Old:     change.Old,
		New:     change.New,
		Delta:   change.Delta,
		ActorID: actorID,
		At:      l.now(),
	})
}

// SetBalance overwrites the user's credits with newValue.
func (l *Ledger) SetBalance(ctx context.Context, userID string, newValue float64, reason, actorID string) (BalanceChange, error) {
	if !finite(newValue) || newValue < 0 {
		return BalanceChange{}, apperr.Validation("balance must be a non-negative number")
	}
	if err := l.requireUser(ctx, userID); err != nil {
		return BalanceChange{}, err
	}

	var change BalanceChange
	_, _, err := l.balances.UpdateBalance(ctx, userID, func(b *models.Balance) (*models.Transaction, error) {
		change = BalanceChange{Old: b.TokenCredits, New: newValue, Delta: newValue - b.TokenCredits}
		b.TokenCredits = newValue
		return models.NewTransaction(userID, models.ContextBalanceSet, change.Delta, reason, actorID), nil
	})
	if err != nil {
		return BalanceChange{}, err
	}
	ledgerLog.Info("balance of %s set %.2f -> %.2f by %s", userID, change.Old, change.New, actorID)
	l.applied(userID, models.ContextBalanceSet, change, actorID)
	return change, nil
}

// AdjustBalance adds delta to the user's credits, clamping the result at zero.
// The transaction records the requested delta, not the clamped difference.
func (l *Ledger) AdjustBalance(ctx context.Context, userID string, delta float64, reason, actorID string) (BalanceChange, error) {
	if !finite(delta) {
		return BalanceChange{}, apperr.Validation("amount must be a finite number")
	}
	if err := l.requireUser(ctx, userID); err != nil {
		return BalanceChange{}, err
	}

	var change BalanceChange
	_, _, err := l.balances.UpdateBalance(ctx, userID, func(b *models.Balance) (*models.Transaction, error) {
		next := math.Max(0, b.TokenCredits+delta)
		change = BalanceChange{Old: b.TokenCredits, New: next, Delta: delta}
		b.TokenCredits = next
		return models.NewTransaction(userID, models.ContextBalanceAdjust, delta, reason, actorID), nil
	})
	if err != nil {
		return BalanceChange{}, err
	}
	if change.New-change.Old != delta {
		ledgerLog.Warn("adjustment of %s clamped: requested %.2f, applied %.2f", userID, delta, change.New-change.Old)
	}
	ledgerLog.Info("balance of %s adjusted %.2f -> %.2f by %s", userID, change.Old, change.New, actorID)
	l.applied(userID, models.ContextBalanceAdjust, change, actorID)
	return change, nil
}

// ConfigureAutoRefill stores the refill policy of a user. Enabling a previously
// disabled policy restarts the interval from now.
func (l *Ledger) ConfigureAutoRefill(ctx context.Context, userID string, policy models.RefillPolicy) (*models.Balance, error) {
	if policy.IntervalValue < 1 {
		return nil, apperr.Validation("refill interval must be at least 1")
	}
	if !models.IsValidRefillUnit(policy.IntervalUnit) {
		return nil, apperr.Validation("unknown refill interval unit %q", policy.IntervalUnit)
	}
	if !finite(policy.Amount) || policy.Amount < 0 {
		return nil, apperr.Validation("refill amount must be a non-negative number")
	}
	if err := l.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	now := l.now()
	b, _, err := l.balances.UpdateBalance(ctx, userID, func(b *models.Balance) (*models.Transaction, error) {
		if policy.Enabled && !b.AutoRefillEnabled {
			b.LastRefill = now
		}
		b.AutoRefillEnabled = policy.Enabled
		b.RefillIntervalValue = policy.IntervalValue
		b.RefillIntervalUnit = policy.IntervalUnit
		b.RefillAmount = policy.Amount
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	ledgerLog.Info("auto refill of %s: enabled=%t every %d %s amount %.2f",
		userID, policy.Enabled, policy.IntervalValue, policy.IntervalUnit, policy.Amount)
	return b, nil
}

// Refill credits the user's refill amount when the policy says one is due at now.
func (l *Ledger) Refill(ctx context.Context, userID string, now time.Time) (BalanceChange, bool, error) {
	var (
		change  BalanceChange
		applied bool
	)
	_, _, err := l.balances.UpdateBalance(ctx, userID, func(b *models.Balance) (*models.Transaction, error) {
		if !b.RefillDue(now) {
			return nil, store.ErrNoChange
		}
		change = BalanceChange{Old: b.TokenCredits, New: b.TokenCredits + b.RefillAmount, Delta: b.RefillAmount}
		b.TokenCredits = change.New
		b.LastRefill = now
		applied = true
		return models.NewTransaction(userID, models.ContextAutoRefill, change.Delta, "auto refill", SystemActor), nil
	})
	if err != nil {
		return BalanceChange{}, false, err
	}
	if applied {
		l.applied(userID, models.ContextAutoRefill, change, SystemActor)
	}
	return change, applied, nil
}

// RefillDue applies every refill that is due at now and reports how many were applied.
// A failure on one user does not stop the others.
func (l *Ledger) RefillDue(ctx context.Context, now time.Time) (int, error) {
	candidates, err := l.balances.ListRefillCandidates(ctx)
	if err != nil {
		return 0, err
	}
	var (
		count int
		errs  []error
	)
	for _, b := range candidates {
		if !b.RefillDue(now) {
			continue
		}
		_, ok, err := l.Refill(ctx, b.UserID, now)
		if err != nil {
			errs = append(errs, ledgerLog.Error("refilling %s", err, b.UserID))
			continue
		}
		if ok {
			count++
		}
	}
	if count > 0 {
		ledgerLog.Success("applied %d auto refill(s)", count)
	}
	return count, errors.Join(errs...)
}

// Transactions returns the newest transactions of a user.
func (l *Ledger) Transactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	if limit > MaxTransactionLimit {
		limit = MaxTransactionLimit
	}
	if err := l.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return l.balances.ListTransactions(ctx, store.TransactionFilter{UserID: userID, Limit: limit})
}
