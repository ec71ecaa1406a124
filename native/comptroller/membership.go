package comptroller

import (
	"fmt"

	"riskgate/crypto"
)

// addToMarket records membership of account in a listed market. Entering a
// market twice is a no-op.
func (e *Engine) addToMarket(asset, account crypto.Address) error {
	if _, err := e.listedMarket(asset); err != nil {
		return err
	}
	membership, err := e.state.ComptrollerMembership(account)
	if err != nil {
		return err
	}
	if !membership.Add(asset) {
		return nil
	}
	return e.state.PutComptrollerMembership(account, membership)
}

// EnterMarkets adds the caller to each listed market and returns one decision
// per requested asset. Unlisted markets are denied individually; any other
// failure aborts the whole batch.
func (e *Engine) EnterMarkets(caller crypto.Address, assets []crypto.Address) ([]Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	results := make([]Decision, 0, len(assets))
	err := e.atomically(func() error {
		for _, asset := range assets {
			decision, err := e.decide("enter_market", func() error {
				return e.addToMarket(asset, caller)
			})
			if err != nil {
				return err
			}
			results = append(results, decision)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ExitMarket removes the caller from asset's market. The caller must owe
// nothing in that market and must stay solvent with its whole balance
// treated as redeemed.
func (e *Engine) ExitMarket(caller, asset crypto.Address) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return Decision{}, err
	}
	return e.decide("exit_market", func() error {
		collaborator, err := e.asset(asset)
		if err != nil {
			return err
		}
		held, owed, err := collaborator.AccountSnapshot(caller)
		if err != nil {
			return err
		}
		if owed != nil && !owed.IsZero() {
			return deny(ReasonNonzeroBorrowBalance)
		}
		if err := e.redeemAllowed(asset, caller, held); err != nil {
			return err
		}
		membership, err := e.state.ComptrollerMembership(caller)
		if err != nil {
			return err
		}
		removed, err := membership.Remove(asset)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
		return e.state.PutComptrollerMembership(caller, membership)
	})
}

// AssetsIn returns the markets account has entered, in membership order.
func (e *Engine) AssetsIn(account crypto.Address) ([]crypto.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	membership, err := e.state.ComptrollerMembership(account)
	if err != nil {
		return nil, err
	}
	return membership.Assets(), nil
}

// CheckMembership reports whether account has entered asset's market.
func (e *Engine) CheckMembership(account, asset crypto.Address) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return false, err
	}
	membership, err := e.state.ComptrollerMembership(account)
	if err != nil {
		return false, err
	}
	return membership.Contains(asset), nil
}

func (e *Engine) assertMember(account, asset crypto.Address) error {
	membership, err := e.state.ComptrollerMembership(account)
	if err != nil {
		return err
	}
	if !membership.Contains(asset) {
		return fmt.Errorf("%w: %s missing from %s after entry", ErrConsistency, asset, account)
	}
	return nil
}
