package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
	"riskgate/native/comptroller"
)

func (s *Server) adminRoutes(r chi.Router) {
	engine := s.node.Engine
	r.Post("/markets", s.handleListMarket)
	r.Post("/markets/{asset}/collateral-factor", s.handleSetCollateralFactor)
	r.Post("/close-factor", s.handleSetCloseFactor)
	r.Post("/liquidation-incentive", s.handleSetLiquidationIncentive)
	r.Post("/supply-caps", s.handleSetCaps(engine.SetMarketSupplyCaps))
	r.Post("/borrow-caps", s.handleSetCaps(engine.SetMarketBorrowCaps))
	r.Post("/pause", s.handleSetPaused)
	r.Post("/price-oracle", s.handleResetOracle)
	r.Post("/pause-guardian", s.handleSetAddress(engine.SetPauseGuardian))
	r.Post("/cap-guardian", s.handleSetAddress(engine.SetCapGuardian))
	r.Post("/pending-admin", s.handleSetAddress(engine.SetPendingAdmin))
	r.Post("/accept-admin", s.handleAcceptAdmin)
	r.Post("/pending-implementation", s.handleSetAddress(engine.SetPendingImplementation))
	r.Post("/become", s.handleSetAddress(engine.Become))
}

type (
	capSetter     func(caller crypto.Address, assets []crypto.Address, caps []*uint256.Int) error
	addressSetter func(caller, target crypto.Address) error
)

// paramsAfter applies a governance change and answers with the resulting
// parameters.
func (s *Server) paramsAfter(w http.ResponseWriter, r *http.Request, apply func() error) {
	s.mutate(w, r, func() (any, error) {
		if err := apply(); err != nil {
			return nil, err
		}
		params, err := s.node.Engine.Params()
		if err != nil {
			return nil, err
		}
		return toParamsView(params), nil
	})
}

// marketAfter applies a governance change to asset and answers with the
// resulting market.
func (s *Server) marketAfter(w http.ResponseWriter, r *http.Request, asset crypto.Address, apply func() error) {
	s.mutate(w, r, func() (any, error) {
		if err := apply(); err != nil {
			return nil, err
		}
		market, err := s.node.Engine.Market(asset)
		if err != nil {
			return nil, err
		}
		return s.toMarketView(market), nil
	})
}

type listMarketRequest struct {
	Asset string `json:"asset"`
}

func (s *Server) handleListMarket(w http.ResponseWriter, r *http.Request) {
	var req listMarketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	addr, err := s.resolveAsset(req.Asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.marketAfter(w, r, addr, func() error {
		return s.node.Engine.ListMarket(caller(r), addr)
	})
}

type factorRequest struct {
	Value string `json:"value"`
}

func decodeFactor(w http.ResponseWriter, r *http.Request) (fixed.Exp, error) {
	var req factorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return fixed.Exp{}, err
	}
	return fixed.Parse(req.Value)
}

func (s *Server) handleSetCollateralFactor(w http.ResponseWriter, r *http.Request) {
	addr, err := s.assetParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	factor, err := decodeFactor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.marketAfter(w, r, addr, func() error {
		return s.node.Engine.SetCollateralFactor(caller(r), addr, factor)
	})
}

func (s *Server) handleSetCloseFactor(w http.ResponseWriter, r *http.Request) {
	factor, err := decodeFactor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.paramsAfter(w, r, func() error {
		return s.node.Engine.SetCloseFactor(caller(r), factor)
	})
}

func (s *Server) handleSetLiquidationIncentive(w http.ResponseWriter, r *http.Request) {
	incentive, err := decodeFactor(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.paramsAfter(w, r, func() error {
		return s.node.Engine.SetLiquidationIncentive(caller(r), incentive)
	})
}

type capsRequest struct {
	Assets []string `json:"assets"`
	Caps   []string `json:"caps"`
}

func (s *Server) handleSetCaps(set capSetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req capsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		assets := make([]crypto.Address, 0, len(req.Assets))
		for _, ref := range req.Assets {
			addr, err := s.resolveAsset(ref)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			assets = append(assets, addr)
		}
		caps := make([]*uint256.Int, 0, len(req.Caps))
		for _, raw := range req.Caps {
			limit, err := parseAmount(raw)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			caps = append(caps, limit)
		}
		s.mutate(w, r, func() (any, error) {
			if err := set(caller(r), assets, caps); err != nil {
				return nil, err
			}
			views := make([]marketView, 0, len(assets))
			for _, addr := range assets {
				market, err := s.node.Engine.Market(addr)
				if err != nil {
					return nil, err
				}
				views = append(views, s.toMarketView(market))
			}
			return views, nil
		})
	}
}

type pauseRequest struct {
	Action string `json:"action"`
	Asset  string `json:"asset"`
	Paused bool   `json:"paused"`
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	action, ok := comptroller.ParseAction(req.Action)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: unknown action %q", errBadRequest, req.Action))
		return
	}
	var asset crypto.Address
	if req.Asset != "" {
		var err error
		if asset, err = s.resolveAsset(req.Asset); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	apply := func() error {
		return s.node.Engine.SetPaused(caller(r), action, asset, req.Paused)
	}
	if action == comptroller.ActionMint || action == comptroller.ActionBorrow {
		s.marketAfter(w, r, asset, apply)
		return
	}
	s.paramsAfter(w, r, apply)
}

// handleResetOracle points the engine back at the node's price feed.
func (s *Server) handleResetOracle(w http.ResponseWriter, r *http.Request) {
	s.paramsAfter(w, r, func() error {
		return s.node.Engine.SetPriceOracle(caller(r), s.node.Feed)
	})
}

type addressRequest struct {
	Address string `json:"address"`
}

func (s *Server) handleSetAddress(set addressSetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addressRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		target, err := parseAddress(req.Address)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.paramsAfter(w, r, func() error {
			return set(caller(r), target)
		})
	}
}

func (s *Server) handleAcceptAdmin(w http.ResponseWriter, r *http.Request) {
	s.paramsAfter(w, r, func() error {
		return s.node.Engine.AcceptAdmin(caller(r))
	})
}
