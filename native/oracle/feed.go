package oracle

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"riskgate/core/fixed"
	"riskgate/crypto"
	"riskgate/native/common"
	"riskgate/observability"
)

const moduleName = "oracle"

var (
	ErrUnauthorized = errors.New("oracle: caller is not the price poster")
	ErrInvalidPrice = errors.New("oracle: price must be positive")
	errNilStore     = errors.New("oracle: store not configured")
)

type feedState interface {
	OraclePrice(asset crypto.Address) (fixed.Exp, uint64, bool, error)
	PutOraclePrice(asset crypto.Address, price fixed.Exp, updatedAt uint64) error
}

// Feed is a posted-price oracle. A single poster identity publishes prices;
// readers get zero for assets never priced or whose price is older than the
// configured maximum age.
type Feed struct {
	state   feedState
	poster  crypto.Address
	maxAge  time.Duration
	now     func() time.Time
	pauses  common.PauseView
	logger  *slog.Logger
	metrics *observability.OracleMetrics
}

// Option configures a Feed.
type Option func(*Feed)

// WithMaxAge makes prices older than maxAge read as unavailable. Zero keeps
// prices valid forever.
func WithMaxAge(maxAge time.Duration) Option {
	return func(f *Feed) { f.maxAge = maxAge }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLogger installs a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Feed) {
		if l != nil {
			f.logger = l.With("component", moduleName)
		}
	}
}

// WithPauses wires the operator kill switch consulted before posting.
func WithPauses(p common.PauseView) Option {
	return func(f *Feed) { f.pauses = p }
}

// NewFeed constructs a feed persisting prices to state.
func NewFeed(state feedState, poster crypto.Address, opts ...Option) *Feed {
	f := &Feed{
		state:   state,
		poster:  poster,
		now:     time.Now,
		logger:  slog.Default().With("component", moduleName),
		metrics: observability.Oracle(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Poster returns the identity allowed to post prices.
func (f *Feed) Poster() crypto.Address { return f.poster }

// Price returns the current price of asset, or zero when unavailable.
func (f *Feed) Price(asset crypto.Address) (fixed.Exp, error) {
	if f == nil || f.state == nil {
		return fixed.Exp{}, errNilStore
	}
	price, updatedAt, ok, err := f.state.OraclePrice(asset)
	if err != nil {
		return fixed.Exp{}, err
	}
	if !ok {
		return fixed.Exp{}, nil
	}
	age := f.now().Sub(time.Unix(int64(updatedAt), 0))
	f.metrics.RecordFreshness(asset.String(), age)
	if f.maxAge > 0 && age > f.maxAge {
		return fixed.Exp{}, nil
	}
	return price, nil
}

// SetPrice publishes a price for asset on behalf of caller.
func (f *Feed) SetPrice(caller, asset crypto.Address, price fixed.Exp) error {
	if f == nil || f.state == nil {
		return errNilStore
	}
	if err := common.Guard(f.pauses, moduleName); err != nil {
		f.metrics.RecordRejection("paused")
		return err
	}
	if f.poster.IsZero() || caller != f.poster {
		f.metrics.RecordRejection("unauthorized")
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	return f.Seed(asset, price)
}

// Seed stores a price without an authorization check. It is meant for
// genesis bootstrap.
func (f *Feed) Seed(asset crypto.Address, price fixed.Exp) error {
	if f == nil || f.state == nil {
		return errNilStore
	}
	if price.IsZero() {
		f.metrics.RecordRejection("invalid_price")
		return ErrInvalidPrice
	}
	if err := f.state.PutOraclePrice(asset, price, uint64(f.now().Unix())); err != nil {
		return err
	}
	f.metrics.RecordPosting(asset.String())
	f.logger.Info("price posted",
		slog.String("asset", asset.String()),
		slog.String("price", price.String()))
	return nil
}
