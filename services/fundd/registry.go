package fundd

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"fundflow/core/events"
	"fundflow/native/common"
	"fundflow/native/crowdfund"
	"fundflow/native/stream"
	"fundflow/observability"
)

var (
	ErrLedgerNotFound = errors.New("fundd: ledger not found")
	ErrStreamNotFound = errors.New("fundd: stream not found")
)

type ledgerEntry struct {
	mu        sync.RWMutex
	ledger    *crowdfund.Ledger
	createdAt time.Time
	version   uint64
}

type streamEntry struct {
	mu        sync.RWMutex
	stream    *stream.Stream
	createdAt time.Time
	version   uint64
}

// Registry holds every ledger and stream served by fundd. Each instance has
// its own lock: mutations take the write lock so the check and the update
// happen atomically, reads take the read lock.
type Registry struct {
	mu      sync.RWMutex
	ledgers map[string]*ledgerEntry
	streams map[string]*streamEntry

	emitter       events.Emitter
	pauses        common.PauseView
	metrics       *observability.FunddMetrics
	logger        *slog.Logger
	defaultPolicy crowdfund.Policy
	places        int32
	newID         func() string
	nowFn         func() time.Time
}

// Option customises a Registry.
type Option func(*Registry)

func WithEmitter(emitter events.Emitter) Option {
	return func(r *Registry) {
		if emitter != nil {
			r.emitter = emitter
		}
	}
}

func WithPauses(p common.PauseView) Option {
	return func(r *Registry) { r.pauses = p }
}

func WithMetrics(m *observability.FunddMetrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDefaultPolicy sets the policy used when a ledger is created without one.
func WithDefaultPolicy(p crowdfund.Policy) Option {
	return func(r *Registry) { r.defaultPolicy = p }
}

// WithDisplayPlaces sets the decimal places used when amounts are rendered
// into events.
func WithDisplayPlaces(places int32) Option {
	return func(r *Registry) { r.places = places }
}

func WithIDFunc(fn func() string) Option {
	return func(r *Registry) {
		if fn != nil {
			r.newID = fn
		}
	}
}

func WithNowFunc(fn func() time.Time) Option {
	return func(r *Registry) {
		if fn != nil {
			r.nowFn = fn
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		ledgers:       make(map[string]*ledgerEntry),
		streams:       make(map[string]*streamEntry),
		emitter:       events.NoopEmitter{},
		logger:        slog.Default(),
		defaultPolicy: crowdfund.PolicyAnyFunding,
		places:        crowdfund.DefaultDisplayPlaces,
		newID:         func() string { return uuid.NewString() },
		nowFn:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LedgerSnapshot is a consistent copy of a ledger taken under its read lock.
type LedgerSnapshot struct {
	ID        string
	CreatedAt time.Time
	Version   uint64
	Ledger    *crowdfund.Ledger
}

// StreamSnapshot is a consistent copy of a stream taken under its read lock.
type StreamSnapshot struct {
	ID        string
	CreatedAt time.Time
	Version   uint64
	Stream    *stream.Stream
}

func (r *Registry) observe(module, op string, start time.Time, err error) {
	r.metrics.Observe(module, op, r.nowFn().Sub(start), err)
}

// CreateLedger opens a ledger for goal. An empty policy selects the registry
// default.
func (r *Registry) CreateLedger(goal *big.Rat, policy crowdfund.Policy) (snap LedgerSnapshot, err error) {
	start := r.nowFn()
	defer func() { r.observe(common.ModuleCrowdfund, "create", start, err) }()
	if err := common.Guard(r.pauses, common.ModuleCrowdfund); err != nil {
		return LedgerSnapshot{}, err
	}
	if policy == "" {
		policy = r.defaultPolicy
	}
	ledger, err := crowdfund.NewWithPolicy(goal, policy)
	if err != nil {
		return LedgerSnapshot{}, err
	}
	entry := &ledgerEntry{ledger: ledger, createdAt: r.nowFn().UTC(), version: 1}
	id := r.newID()

	r.mu.Lock()
	r.ledgers[id] = entry
	count := len(r.ledgers)
	r.mu.Unlock()

	r.metrics.SetInstances(common.ModuleCrowdfund, count)
	r.emitter.Emit(crowdfund.WrapEvent(crowdfund.LedgerCreatedEvent(id, r.format(goal), policy)))
	r.logger.Info("ledger created", slog.String("ledger", id), slog.String("policy", string(policy)))
	return LedgerSnapshot{ID: id, CreatedAt: entry.createdAt, Version: entry.version, Ledger: ledger.Clone()}, nil
}

// Ledger returns a snapshot of the ledger with the given id.
func (r *Registry) Ledger(id string) (LedgerSnapshot, error) {
	entry, err := r.ledgerEntry(id)
	if err != nil {
		return LedgerSnapshot{}, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return LedgerSnapshot{ID: id, CreatedAt: entry.createdAt, Version: entry.version, Ledger: entry.ledger.Clone()}, nil
}

// LedgerIDs returns the ids of every ledger in sorted order.
func (r *Registry) LedgerIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.ledgers))
	for id := range r.ledgers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Contribute adds a contribution to ledger id.
func (r *Registry) Contribute(id, contributor string, amount *big.Rat) (receipt crowdfund.Receipt, err error) {
	start := r.nowFn()
	defer func() { r.observe(common.ModuleCrowdfund, "contribute", start, err) }()
	if err := common.Guard(r.pauses, common.ModuleCrowdfund); err != nil {
		return crowdfund.Receipt{}, err
	}
	entry, err := r.ledgerEntry(id)
	if err != nil {
		return crowdfund.Receipt{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	wasFunded := entry.ledger.Funded()
	receipt, err = entry.ledger.AddContribution(contributor, amount)
	if err != nil {
		return crowdfund.Receipt{}, err
	}
	entry.version++
	r.metrics.AddContributed(amount)
	accepted := entry.ledger.Contributions()
	stored := accepted[len(accepted)-1].Contributor
	r.emitter.Emit(crowdfund.WrapEvent(crowdfund.ContributionAcceptedEvent(id, stored, r.format(amount), r.format(receipt.Total))))
	if receipt.Funded && !wasFunded {
		contributors := len(accepted)
		r.emitter.Emit(crowdfund.WrapEvent(crowdfund.LedgerFundedEvent(id, r.format(entry.ledger.Goal()), contributors)))
		r.logger.Info("ledger funded", slog.String("ledger", id), slog.Int("contributions", contributors))
	}
	return receipt, nil
}

// Distribute splits cost across the contributions of ledger id.
func (r *Registry) Distribute(id string, cost *big.Rat) (payouts []crowdfund.Payout, err error) {
	start := r.nowFn()
	defer func() { r.observe(common.ModuleCrowdfund, "distribute", start, err) }()
	if err := common.Guard(r.pauses, common.ModuleCrowdfund); err != nil {
		return nil, err
	}
	entry, err := r.ledgerEntry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()
	payouts, err = entry.ledger.Distribute(cost)
	if err != nil {
		return nil, err
	}
	r.emitter.Emit(crowdfund.WrapEvent(crowdfund.PayoutsComputedEvent(id, r.format(cost), len(payouts))))
	return payouts, nil
}

// CreateStream opens a stream.
func (r *Registry) CreateStream(recipient string, deposit *uint256.Int, startBlock, durationBlocks uint64) (snap StreamSnapshot, err error) {
	start := r.nowFn()
	defer func() { r.observe(common.ModuleStream, "create", start, err) }()
	if err := common.Guard(r.pauses, common.ModuleStream); err != nil {
		return StreamSnapshot{}, err
	}
	s, err := stream.New(recipient, deposit, startBlock, durationBlocks)
	if err != nil {
		return StreamSnapshot{}, err
	}
	entry := &streamEntry{stream: s, createdAt: r.nowFn().UTC(), version: 1}
	id := r.newID()

	r.mu.Lock()
	r.streams[id] = entry
	count := len(r.streams)
	r.mu.Unlock()

	r.metrics.SetInstances(common.ModuleStream, count)
	r.emitter.Emit(stream.WrapEvent(stream.CreatedEvent(id, s)))
	r.logger.Info("stream created", slog.String("stream", id), slog.Uint64("stopBlock", s.StopBlock()))
	return StreamSnapshot{ID: id, CreatedAt: entry.createdAt, Version: entry.version, Stream: s.Clone()}, nil
}

// Stream returns a snapshot of the stream with the given id.
func (r *Registry) Stream(id string) (StreamSnapshot, error) {
	entry, err := r.streamEntry(id)
	if err != nil {
		return StreamSnapshot{}, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return StreamSnapshot{ID: id, CreatedAt: entry.createdAt, Version: entry.version, Stream: entry.stream.Clone()}, nil
}

// StreamIDs returns the ids of every stream in sorted order.
func (r *Registry) StreamIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.streams))
	for id := range r.streams {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Withdraw pays amount out of stream id at block and returns the new
// cumulative withdrawn total.
func (r *Registry) Withdraw(id string, block uint64, amount *uint256.Int) (withdrawn *uint256.Int, err error) {
	start := r.nowFn()
	defer func() { r.observe(common.ModuleStream, "withdraw", start, err) }()
	if err := common.Guard(r.pauses, common.ModuleStream); err != nil {
		return nil, err
	}
	entry, err := r.streamEntry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	withdrawn, err = entry.stream.Withdraw(block, amount)
	if err != nil {
		return nil, err
	}
	entry.version++
	r.metrics.AddWithdrawn(amount.ToBig())
	r.emitter.Emit(stream.WrapEvent(stream.WithdrawnEvent(id, entry.stream.Recipient(), block, amount, withdrawn)))
	return withdrawn, nil
}

// TopUp extends stream id at block.
func (r *Registry) TopUp(id string, block uint64, deposit *uint256.Int, additionalBlocks uint64) (snap StreamSnapshot, err error) {
	start := r.nowFn()
	defer func() { r.observe(common.ModuleStream, "topup", start, err) }()
	if err := common.Guard(r.pauses, common.ModuleStream); err != nil {
		return StreamSnapshot{}, err
	}
	entry, err := r.streamEntry(id)
	if err != nil {
		return StreamSnapshot{}, err
	}
	if deposit == nil {
		deposit = new(uint256.Int)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := entry.stream.TopUp(block, deposit, additionalBlocks); err != nil {
		return StreamSnapshot{}, err
	}
	entry.version++
	r.emitter.Emit(stream.WrapEvent(stream.ToppedUpEvent(id, entry.stream, block, deposit, additionalBlocks)))
	r.logger.Info("stream topped up",
		slog.String("stream", id),
		slog.Uint64("block", block),
		slog.Uint64("stopBlock", entry.stream.StopBlock()))
	return StreamSnapshot{ID: id, CreatedAt: entry.createdAt, Version: entry.version, Stream: entry.stream.Clone()}, nil
}

func (r *Registry) ledgerEntry(id string) (*ledgerEntry, error) {
	r.mu.RLock()
	entry, ok := r.ledgers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLedgerNotFound, id)
	}
	return entry, nil
}

func (r *Registry) streamEntry(id string) (*streamEntry, error) {
	r.mu.RLock()
	entry, ok := r.streams[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStreamNotFound, id)
	}
	return entry, nil
}

func (r *Registry) format(v *big.Rat) string {
	return crowdfund.FormatAmount(v, r.places)
}
