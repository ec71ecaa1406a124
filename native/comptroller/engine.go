package comptroller

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"riskgate/crypto"
	"riskgate/observability/metrics"
)

// State is the persistence surface the engine reads and mutates. Snapshot and
// RevertToSnapshot bracket every top-level operation so a failed or denied
// call leaves no trace.
type State interface {
	ComptrollerMarket(asset crypto.Address) (*Market, bool, error)
	PutComptrollerMarket(market *Market) error
	ComptrollerMarkets() ([]crypto.Address, error)
	PutComptrollerMarkets(assets []crypto.Address) error
	ComptrollerMembership(account crypto.Address) (*AssetSet, error)
	PutComptrollerMembership(account crypto.Address, set *AssetSet) error
	ComptrollerParams() (*RiskParameters, error)
	PutComptrollerParams(params *RiskParameters) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// Engine is the risk policy engine. Every exported method holds the engine
// mutex for its whole duration, so callers observe operations one at a time.
type Engine struct {
	mu       sync.Mutex
	address  crypto.Address
	state    State
	oracle   Oracle
	assets   AssetResolver
	verifier Verifier
	logger   *slog.Logger
	metrics  *metrics.ComptrollerMetrics
}

// NewEngine constructs an engine identified by address. Assets report that
// address from RegistryOf when they answer to this engine.
func NewEngine(address crypto.Address) *Engine {
	return &Engine{
		address:  address,
		verifier: NopVerifier{},
		logger:   slog.Default().With("component", "comptroller"),
		metrics:  metrics.Comptroller(),
	}
}

// Address returns the engine's registry identity.
func (e *Engine) Address() crypto.Address { return e.address }

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
}

// SetAssets configures how asset collaborators are resolved.
func (e *Engine) SetAssets(assets AssetResolver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.assets = assets
}

// SetOracle wires the price oracle at startup. Governance replaces it later
// through SetPriceOracle.
func (e *Engine) SetOracle(oracle Oracle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.oracle = oracle
}

// SetVerifier replaces the post-action hook. A nil verifier restores the
// no-op default.
func (e *Engine) SetVerifier(verifier Verifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if verifier == nil {
		verifier = NopVerifier{}
	}
	e.verifier = verifier
}

// SetLogger overrides the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = logger.With("component", "comptroller")
}

// Oracle returns the configured price oracle, if any.
func (e *Engine) Oracle() Oracle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.oracle
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) params() (*RiskParameters, error) {
	params, err := e.state.ComptrollerParams()
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &RiskParameters{}
	}
	return params, nil
}

func (e *Engine) asset(addr crypto.Address) (Asset, error) {
	if e.assets == nil {
		return nil, errNilAssets
	}
	asset, ok := e.assets.Asset(addr)
	if !ok || asset == nil {
		return nil, fmt.Errorf("%w: %s", errAssetNotFound, addr)
	}
	return asset, nil
}

// atomically runs fn inside a state snapshot, reverting on any error.
func (e *Engine) atomically(fn func() error) error {
	snapshot := e.state.Snapshot()
	if err := fn(); err != nil {
		e.state.RevertToSnapshot(snapshot)
		return err
	}
	return nil
}

// decide runs a check atomically and folds business denials into a Decision.
// Every other failure aborts.
func (e *Engine) decide(operation string, fn func() error) (Decision, error) {
	err := e.atomically(fn)
	if err == nil {
		e.metrics.RecordDecision(operation, ReasonNone.String(), true)
		return allowed, nil
	}
	var denial *DenialError
	if errors.As(err, &denial) {
		e.metrics.RecordDecision(operation, denial.Reason.String(), false)
		e.logger.Debug("action denied",
			slog.String("operation", operation),
			slog.String("reason", denial.Reason.String()))
		return Decision{Allowed: false, Reason: denial.Reason}, nil
	}
	e.metrics.RecordAbort(operation)
	e.logger.Warn("policy check aborted",
		slog.String("operation", operation),
		slog.Any("error", err))
	return Decision{}, err
}
