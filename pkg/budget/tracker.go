// Package budget implements per-user daily/monthly cost accounting with
// a TOCTOU-safe reservation pathway and a legacy direct-record pathway,
// plus atomic JSON persistence.
package budget

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// UserSpend is the per-user spend record. Effective totals are
// spent+reserved; budget checks compare against effective.
type UserSpend struct {
	DailySpent      float64   `json:"daily_spent"`
	DailyReserved   float64   `json:"daily_reserved"`
	MonthlySpent    float64   `json:"monthly_spent"`
	MonthlyReserved float64   `json:"monthly_reserved"`
	LastDailyReset  time.Time `json:"last_daily_reset"`
	LastMonthlyReset time.Time `json:"last_monthly_reset"`
}

// DailyEffective returns spent+reserved for the daily window.
func (s UserSpend) DailyEffective() float64 { return s.DailySpent + s.DailyReserved }

// MonthlyEffective returns spent+reserved for the monthly window.
func (s UserSpend) MonthlyEffective() float64 { return s.MonthlySpent + s.MonthlyReserved }

// ResultKind enumerates the outcome of a budget check.
type ResultKind int

const (
	Approved ResultKind = iota
	DailyLimitExceeded
	MonthlyLimitExceeded
)

// Result is the outcome of ReserveBudget / CheckBudget.
type Result struct {
	Kind  ResultKind
	Spent float64
	Limit float64
}

func (r Result) String() string {
	switch r.Kind {
	case Approved:
		return "approved"
	case DailyLimitExceeded:
		return fmt.Sprintf("daily limit exceeded: %.6f > %.6f", r.Spent, r.Limit)
	case MonthlyLimitExceeded:
		return fmt.Sprintf("monthly limit exceeded: %.6f > %.6f", r.Spent, r.Limit)
	}
	return "unknown"
}

// CostSnapshot is the on-disk persisted form of a Tracker.
type CostSnapshot struct {
	Spends       map[string]UserSpend `json:"spends"`
	ResetHourUTC int                  `json:"reset_hour_utc"`
}

// Tracker is a per-user cost tracker guarded by a single exclusive
// lock covering the read-reset-check-mutate critical section.
type Tracker struct {
	mu               sync.Mutex
	spends           map[string]UserSpend
	resetHourUTC     int
	persistenceEnabled bool
	persistencePath  string
}

// New creates a Tracker. resetHourUTC values outside [0,23] clamp to 0.
func New(resetHourUTC int) *Tracker {
	if resetHourUTC < 0 || resetHourUTC >= 24 {
		resetHourUTC = 0
	}
	return &Tracker{
		spends:       make(map[string]UserSpend),
		resetHourUTC: resetHourUTC,
	}
}

// WithPersistence enables atomic JSON persistence to path.
func (t *Tracker) WithPersistence(path string) *Tracker {
	t.persistenceEnabled = true
	t.persistencePath = path
	return t
}

// ReserveBudget atomically checks effective spend against the given
// limits and, if both pass, adds estimatedCost to both reserved
// fields. Zero limits are unlimited and skipped. Non-positive
// estimatedCost is always Approved and mutates nothing.
func (t *Tracker) ReserveBudget(sender string, estimatedCost, dailyLimit, monthlyLimit float64) Result {
	if estimatedCost <= 0 {
		return Result{Kind: Approved}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	spend := t.maybeResetLocked(sender, now)

	if dailyLimit != 0 {
		if eff := spend.DailyEffective() + estimatedCost; eff > dailyLimit {
			return Result{Kind: DailyLimitExceeded, Spent: eff, Limit: dailyLimit}
		}
	}
	if monthlyLimit != 0 {
		if eff := spend.MonthlyEffective() + estimatedCost; eff > monthlyLimit {
			return Result{Kind: MonthlyLimitExceeded, Spent: eff, Limit: monthlyLimit}
		}
	}

	spend.DailyReserved += estimatedCost
	spend.MonthlyReserved += estimatedCost
	t.spends[sender] = spend
	return Result{Kind: Approved}
}

// CheckBudget is the read-only variant of ReserveBudget: it performs
// the same limit checks (including boundary resets) but never
// mutates reserved amounts.
func (t *Tracker) CheckBudget(sender string, estimatedCost, dailyLimit, monthlyLimit float64) Result {
	if estimatedCost <= 0 {
		return Result{Kind: Approved}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	spend := t.maybeResetLocked(sender, now)

	if dailyLimit != 0 {
		if eff := spend.DailyEffective() + estimatedCost; eff > dailyLimit {
			return Result{Kind: DailyLimitExceeded, Spent: eff, Limit: dailyLimit}
		}
	}
	if monthlyLimit != 0 {
		if eff := spend.MonthlyEffective() + estimatedCost; eff > monthlyLimit {
			return Result{Kind: MonthlyLimitExceeded, Spent: eff, Limit: monthlyLimit}
		}
	}
	return Result{Kind: Approved}
}

// ReconcileActual clamp-to-zero subtracts estimated from both reserved
// fields and adds actual to both spent fields.
func (t *Tracker) ReconcileActual(sender string, estimated, actual float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	spend := t.spends[sender]
	spend.DailyReserved = clampZero(spend.DailyReserved - estimated)
	spend.MonthlyReserved = clampZero(spend.MonthlyReserved - estimated)
	spend.DailySpent = clampZero(spend.DailySpent + actual)
	spend.MonthlySpent = clampZero(spend.MonthlySpent + actual)
	t.spends[sender] = spend
}

// RecordEstimated is the legacy pathway: it adds estimatedCost
// directly to spent (not reserved).
func (t *Tracker) RecordEstimated(sender string, estimatedCost float64) {
	if estimatedCost <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	spend := t.maybeResetLocked(sender, now)
	spend.DailySpent += estimatedCost
	spend.MonthlySpent += estimatedCost
	t.spends[sender] = spend
}

// RecordActual is the legacy pathway's reconciliation: it adds the
// clamped delta (actual-estimated) to spent.
func (t *Tracker) RecordActual(sender string, estimated, actual float64) {
	delta := clampZero(actual - estimated)
	if delta == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	spend := t.spends[sender]
	spend.DailySpent += delta
	spend.MonthlySpent += delta
	t.spends[sender] = spend
}

// EstimateCost computes cost = costPer1kTokens * tokens / 1000.
func EstimateCost(costPer1kTokens float64, estimatedTokens int) float64 {
	return costPer1kTokens * float64(estimatedTokens) / 1000.0
}

// GetSpend returns (dailyEffective, monthlyEffective) for sender,
// defaulting to (0,0) if unseen.
func (t *Tracker) GetSpend(sender string) (daily, monthly float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	spend, ok := t.spends[sender]
	if !ok {
		return 0, 0
	}
	return spend.DailyEffective(), spend.MonthlyEffective()
}

// maybeResetLocked resets sender's counters across day/month
// boundaries. Caller must hold t.mu. Monthly reset takes precedence
// and also resets the daily fields.
func (t *Tracker) maybeResetLocked(sender string, now time.Time) UserSpend {
	spend, ok := t.spends[sender]
	if !ok {
		spend = UserSpend{LastDailyReset: now, LastMonthlyReset: now}
		t.spends[sender] = spend
		return spend
	}

	if t.shouldResetMonthly(now, spend.LastMonthlyReset) {
		spend.DailySpent = 0
		spend.DailyReserved = 0
		spend.MonthlySpent = 0
		spend.MonthlyReserved = 0
		spend.LastDailyReset = now
		spend.LastMonthlyReset = now
	} else if t.shouldResetDaily(now, spend.LastDailyReset) {
		spend.DailySpent = 0
		spend.DailyReserved = 0
		spend.LastDailyReset = now
	}
	t.spends[sender] = spend
	return spend
}

// shouldResetDaily compares shifted-by-resetHourUTC calendar dates.
func (t *Tracker) shouldResetDaily(now, lastReset time.Time) bool {
	shift := time.Duration(t.resetHourUTC) * time.Hour
	nowDate := now.Add(-shift)
	lastDate := lastReset.Add(-shift)
	ny, nm, nd := nowDate.Date()
	ly, lm, ld := lastDate.Date()
	return ny != ly || nm != lm || nd != ld
}

// shouldResetMonthly compares (year, month) pairs.
func (t *Tracker) shouldResetMonthly(now, lastReset time.Time) bool {
	ny, nm, _ := now.Date()
	ly, lm, _ := lastReset.Date()
	return ny != ly || nm != lm
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Persist writes the tracker's state to its configured path via an
// atomic temp-file-then-rename, with 0600 permissions on POSIX.
func (t *Tracker) Persist() error {
	if !t.persistenceEnabled {
		return nil
	}

	t.mu.Lock()
	snap := CostSnapshot{
		Spends:       make(map[string]UserSpend, len(t.spends)),
		ResetHourUTC: t.resetHourUTC,
	}
	for k, v := range t.spends {
		snap.Spends[k] = v
	}
	t.mu.Unlock()

	// Guard the temp-file-then-rename sequence against a concurrent
	// writer in another process with an advisory file lock.
	fl := flock.New(t.persistencePath + ".lock")
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("budget: acquire persistence lock: %w", err)
	}
	defer fl.Unlock()

	return persistSnapshot(t.persistencePath, snap)
}

// Load replaces the tracker's in-memory state with the contents of
// its configured persistence path.
func (t *Tracker) Load() error {
	if !t.persistenceEnabled {
		return nil
	}
	snap, err := loadSnapshot(t.persistencePath)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.spends = snap.Spends
	if t.spends == nil {
		t.spends = make(map[string]UserSpend)
	}
	t.resetHourUTC = snap.ResetHourUTC
	return nil
}

func persistSnapshot(path string, snap CostSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("budget: marshal snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("budget: write temp snapshot: %w", err)
	}
	if err := chmodPersisted(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("budget: rename snapshot: %w", err)
	}
	return nil
}

func loadSnapshot(path string) (CostSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CostSnapshot{}, fmt.Errorf("budget: read snapshot: %w", err)
	}
	var snap CostSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return CostSnapshot{}, fmt.Errorf("budget: unmarshal snapshot: %w", err)
	}
	return snap, nil
}
