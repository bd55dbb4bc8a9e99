// Package credits keeps the reward balance earned at checkout and persists it
// to a key-value storage slot.
package credits

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// DefaultKey is the storage slot holding the balance.
const DefaultKey = "@starship_shop_credits"

// Storage is a string-keyed persistent slot store. A missing key is reported
// with found=false and a nil error.
type Storage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
}

// StorageError indicates the balance could not be read or written.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s credits %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ErrCorrupt is wrapped by a StorageError when the stored value is not a
// non-negative base-10 integer.
var ErrCorrupt = errors.New("stored balance is not a non-negative integer")

// ErrOverflow is returned when an award would push the balance past the
// largest representable value.
var ErrOverflow = errors.New("balance overflow")

// State is a snapshot of the store for display.
type State struct {
	Balance int64
	Loading bool
	Err     error
}

// Store owns the process-wide reward balance. Persistence failures are
// captured in the state and also returned, so the in-memory balance stays
// usable when storage is down.
type Store struct {
	storage Storage
	key     string
	lg      *zap.Logger

	mu      sync.Mutex
	balance int64
	loading bool
	err     error
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage slot.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Store) { s.lg = lg }
}

// NewStore creates a Store with a zero balance. Call Load before displaying
// the balance.
func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		key:     DefaultKey,
		lg:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load reads the persisted balance. A missing key yields 0. On failure the
// balance is left unchanged.
func (s *Store) Load(ctx context.Context) (int64, error) {
	s.begin()

	raw, found, err := s.storage.Get(ctx, s.key)
	if err != nil {
		return s.fail(&StorageError{Op: "load", Key: s.key, Err: err})
	}

	var balance int64
	if found {
		balance, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || balance < 0 {
			return s.fail(&StorageError{Op: "load", Key: s.key, Err: errors.Wrapf(ErrCorrupt, "value %q", raw)})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.balance = balance
	s.lg.Debug("Credits loaded", zap.Int64("balance", balance), zap.Bool("found", found))
	return balance, nil
}

// Save writes balance to storage and, on success, makes it the in-memory
// balance.
func (s *Store) Save(ctx context.Context, balance int64) (int64, error) {
	if balance < 0 {
		return 0, &StorageError{Op: "save", Key: s.key, Err: ErrCorrupt}
	}
	s.begin()

	if err := s.storage.Set(ctx, s.key, strconv.FormatInt(balance, 10)); err != nil {
		return s.fail(&StorageError{Op: "save", Key: s.key, Err: err})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.balance = balance
	return balance, nil
}

// Add increments the in-memory balance and returns the new value. It does not
// persist. Negative amounts are ignored. An increment that does not fit leaves
// the balance unchanged and returns ErrOverflow.
func (s *Store) Add(amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount <= 0 {
		return s.balance, nil
	}
	next, ok := AddBalance(s.balance, amount)
	if !ok {
		return s.balance, errors.Wrapf(ErrOverflow, "add %d to %d", amount, s.balance)
	}
	s.balance = next
	return next, nil
}

// AddBalance sums a balance and a non-negative award, reporting false when
// the result would exceed math.MaxInt64.
func AddBalance(balance, amount int64) (int64, bool) {
	if amount > math.MaxInt64-balance {
		return balance, false
	}
	return balance + amount, true
}

// Reset zeroes the in-memory balance.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = 0
}

// Balance returns the in-memory balance.
func (s *Store) Balance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Err returns the last captured storage error, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Balance: s.balance, Loading: s.loading, Err: s.err}
}

// Ping checks the underlying storage.
func (s *Store) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.err = nil
}

func (s *Store) fail(err *StorageError) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.err = err
	s.lg.Warn("Credits storage failed", zap.String("op", err.Op), zap.Error(err))
	return s.balance, err
}
