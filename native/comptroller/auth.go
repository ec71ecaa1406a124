package comptroller

import (
	"fmt"
	"log/slog"
	"strings"

	"riskgate/crypto"
)

// Role names a governance identity consulted by the authorization layer.
type Role uint8

const (
	RoleAdmin Role = iota + 1
	RolePendingAdmin
	RolePauseGuardian
	RoleCapGuardian
	RoleProxyAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RolePendingAdmin:
		return "pending_admin"
	case RolePauseGuardian:
		return "pause_guardian"
	case RoleCapGuardian:
		return "cap_guardian"
	case RoleProxyAdmin:
		return "proxy_admin"
	default:
		return "unknown"
	}
}

// Holder returns the identity currently holding role.
func (p *RiskParameters) Holder(role Role) crypto.Address {
	if p == nil {
		return crypto.Address{}
	}
	switch role {
	case RoleAdmin:
		return p.Admin
	case RolePendingAdmin:
		return p.PendingAdmin
	case RolePauseGuardian:
		return p.PauseGuardian
	case RoleCapGuardian:
		return p.CapGuardian
	case RoleProxyAdmin:
		return p.ProxyAdmin
	default:
		return crypto.Address{}
	}
}

// authorize succeeds when caller holds at least one of roles. Unassigned
// roles never match, including for the zero caller.
func authorize(params *RiskParameters, caller crypto.Address, roles ...Role) error {
	if !caller.IsZero() {
		for _, role := range roles {
			if holder := params.Holder(role); !holder.IsZero() && holder == caller {
				return nil
			}
		}
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = role.String()
	}
	return fmt.Errorf("%w: %s is not %s", ErrAuthorization, caller, strings.Join(names, " or "))
}

// govern runs a mutating governance operation atomically. fn performs its own
// authorization against the loaded parameters.
func (e *Engine) govern(operation string, caller crypto.Address, fn func(params *RiskParameters) error) error {
	if err := e.ready(); err != nil {
		return err
	}
	err := e.atomically(func() error {
		params, err := e.params()
		if err != nil {
			return err
		}
		return fn(params)
	})
	if err != nil {
		e.logger.Warn("governance change rejected",
			slog.String("operation", operation),
			slog.String("caller", caller.String()),
			slog.Any("error", err))
		return err
	}
	e.metrics.RecordGovernance(operation)
	e.logger.Info("governance change applied",
		slog.String("operation", operation),
		slog.String("caller", caller.String()))
	return nil
}

// Initialize assigns the first administrator. It only succeeds on a store
// that has never had one; the admin also becomes the proxy administrator and
// the engine's address becomes the active implementation.
func (e *Engine) Initialize(admin crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if admin.IsZero() {
		return errZeroIdentity
	}
	return e.govern("initialize", admin, func(params *RiskParameters) error {
		if !params.Admin.IsZero() {
			return errAlreadyBooted
		}
		params.Admin = admin
		params.ProxyAdmin = admin
		params.Implementation = e.address
		return e.state.PutComptrollerParams(params)
	})
}

// SetPendingAdmin nominates the next administrator. The nominee takes over
// only after calling AcceptAdmin.
func (e *Engine) SetPendingAdmin(caller, pending crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("set_pending_admin", caller, func(params *RiskParameters) error {
		if err := authorize(params, caller, RoleAdmin); err != nil {
			return err
		}
		params.PendingAdmin = pending
		return e.state.PutComptrollerParams(params)
	})
}

// AcceptAdmin completes an administrator hand-over.
func (e *Engine) AcceptAdmin(caller crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("accept_admin", caller, func(params *RiskParameters) error {
		if err := authorize(params, caller, RolePendingAdmin); err != nil {
			return err
		}
		params.Admin = params.PendingAdmin
		params.PendingAdmin = crypto.Address{}
		return e.state.PutComptrollerParams(params)
	})
}

// SetPauseGuardian assigns the identity allowed to pause actions.
func (e *Engine) SetPauseGuardian(caller, guardian crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("set_pause_guardian", caller, func(params *RiskParameters) error {
		if err := authorize(params, caller, RoleAdmin); err != nil {
			return err
		}
		params.PauseGuardian = guardian
		return e.state.PutComptrollerParams(params)
	})
}

// SetCapGuardian assigns the identity allowed to change market caps.
func (e *Engine) SetCapGuardian(caller, guardian crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("set_cap_guardian", caller, func(params *RiskParameters) error {
		if err := authorize(params, caller, RoleAdmin); err != nil {
			return err
		}
		params.CapGuardian = guardian
		return e.state.PutComptrollerParams(params)
	})
}

// SetPendingImplementation stages an implementation migration.
func (e *Engine) SetPendingImplementation(caller, implementation crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("set_pending_implementation", caller, func(params *RiskParameters) error {
		if err := authorize(params, caller, RoleProxyAdmin); err != nil {
			return err
		}
		params.PendingImplementation = implementation
		return e.state.PutComptrollerParams(params)
	})
}

// Become activates the staged implementation. Only the proxy administrator
// may call it and implementation must match the staged one.
func (e *Engine) Become(caller, implementation crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("become", caller, func(params *RiskParameters) error {
		if err := authorize(params, caller, RoleProxyAdmin); err != nil {
			return err
		}
		if implementation.IsZero() || implementation != params.PendingImplementation {
			return deny(ReasonImplementationMismatch)
		}
		params.Implementation = implementation
		params.PendingImplementation = crypto.Address{}
		return e.state.PutComptrollerParams(params)
	})
}
