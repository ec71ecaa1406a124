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

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func() (any, error) {
		assets, err := s.node.Engine.AllMarkets()
		if err != nil {
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

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func() (any, error) {
		addr, err := s.assetParam(r)
		if err != nil {
			return nil, err
		}
		market, err := s.node.Engine.Market(addr)
		if err != nil {
			return nil, err
		}
		return s.toMarketView(market), nil
	})
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func() (any, error) {
		params, err := s.node.Engine.Params()
		if err != nil {
			return nil, err
		}
		return toParamsView(params), nil
	})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func() (any, error) {
		addr, err := s.assetParam(r)
		if err != nil {
			return nil, err
		}
		price, err := s.node.Feed.Price(addr)
		if err != nil {
			return nil, err
		}
		return map[string]string{"asset": addr.String(), "price": price.String()}, nil
	})
}

func (s *Server) handleAssetsIn(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func() (any, error) {
		account, err := accountParam(r)
		if err != nil {
			return nil, err
		}
		assets, err := s.node.Engine.AssetsIn(account)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(assets))
		for _, addr := range assets {
			out = append(out, addr.String())
		}
		return map[string][]string{"assets": out}, nil
	})
}

func (s *Server) handleMembership(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func() (any, error) {
		account, err := accountParam(r)
		if err != nil {
			return nil, err
		}
		addr, err := s.assetParam(r)
		if err != nil {
			return nil, err
		}
		member, err := s.node.Engine.CheckMembership(account, addr)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"member": member}, nil
	})
}

func (s *Server) handleLiquidity(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func() (any, error) {
		account, err := accountParam(r)
		if err != nil {
			return nil, err
		}
		liquidity, err := s.node.Engine.AccountLiquidity(account)
		if err != nil {
			return nil, err
		}
		return toLiquidityView(liquidity), nil
	})
}

type hypotheticalRequest struct {
	Asset        string `json:"asset"`
	RedeemTokens string `json:"redeem_tokens"`
	BorrowAmount string `json:"borrow_amount"`
}

func (s *Server) handleHypothetical(w http.ResponseWriter, r *http.Request) {
	var req hypotheticalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.query(w, r, func() (any, error) {
		account, err := accountParam(r)
		if err != nil {
			return nil, err
		}
		addr, err := s.resolveAsset(req.Asset)
		if err != nil {
			return nil, err
		}
		redeem, err := parseOptionalAmount(req.RedeemTokens)
		if err != nil {
			return nil, err
		}
		borrow, err := parseOptionalAmount(req.BorrowAmount)
		if err != nil {
			return nil, err
		}
		liquidity, err := s.node.Engine.HypotheticalAccountLiquidity(account, addr, redeem, borrow)
		if err != nil {
			return nil, err
		}
		return toLiquidityView(liquidity), nil
	})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func() (any, error) {
		book, ok := s.node.Book(chi.URLParam(r, "asset"))
		if !ok {
			return nil, fmt.Errorf("%w: unknown asset %q", errBadRequest, chi.URLParam(r, "asset"))
		}
		account, err := accountParam(r)
		if err != nil {
			return nil, err
		}
		tokens, borrowed, err := book.AccountSnapshot(account)
		if err != nil {
			return nil, err
		}
		return positionView{Tokens: intString(tokens), Borrowed: intString(borrowed)}, nil
	})
}

type seizeRequest struct {
	Borrowed    string `json:"borrowed"`
	Collateral  string `json:"collateral"`
	RepayAmount string `json:"repay_amount"`
}

func (s *Server) handleSeizeTokens(w http.ResponseWriter, r *http.Request) {
	var req seizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.query(w, r, func() (any, error) {
		borrowed, err := s.resolveAsset(req.Borrowed)
		if err != nil {
			return nil, err
		}
		collateral, err := s.resolveAsset(req.Collateral)
		if err != nil {
			return nil, err
		}
		repay, err := parseAmount(req.RepayAmount)
		if err != nil {
			return nil, err
		}
		tokens, err := s.node.Engine.LiquidateCalculateSeizeTokens(borrowed, collateral, repay)
		if err != nil {
			return nil, err
		}
		return map[string]string{"seize_tokens": tokens.Dec()}, nil
	})
}

type checkRequest struct {
	Caller          string `json:"caller"`
	Asset           string `json:"asset"`
	CollateralAsset string `json:"collateral_asset"`
	Account         string `json:"account"`
	Counterparty    string `json:"counterparty"`
	Amount          string `json:"amount"`
}

// handleCheck evaluates a policy check as a dry run. Side effects such as
// borrow auto-entry are discarded.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	action, ok := comptroller.ParseAction(chi.URLParam(r, "action"))
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: unknown action %q", errBadRequest, chi.URLParam(r, "action")))
		return
	}
	var req checkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.query(w, r, func() (any, error) {
		check, err := s.toCheckRequest(req)
		if err != nil {
			return nil, err
		}
		decision, err := s.node.Engine.Check(action, check)
		if err != nil {
			return nil, err
		}
		return toDecisionView(decision), nil
	})
}

func (s *Server) toCheckRequest(req checkRequest) (comptroller.CheckRequest, error) {
	var out comptroller.CheckRequest
	var err error
	if out.Caller, err = parseOptionalAddress(req.Caller); err != nil {
		return out, err
	}
	if out.Asset, err = s.resolveAsset(req.Asset); err != nil {
		return out, err
	}
	if req.CollateralAsset != "" {
		if out.CollateralAsset, err = s.resolveAsset(req.CollateralAsset); err != nil {
			return out, err
		}
	}
	if out.Account, err = parseAddress(req.Account); err != nil {
		return out, err
	}
	if out.Counterparty, err = parseOptionalAddress(req.Counterparty); err != nil {
		return out, err
	}
	if out.Amount, err = parseOptionalAmount(req.Amount); err != nil {
		return out, err
	}
	return out, nil
}

type enterRequest struct {
	Assets []string `json:"assets"`
}

type enterResult struct {
	Asset string `json:"asset"`
	decisionView
}

func (s *Server) handleEnterMarkets(w http.ResponseWriter, r *http.Request) {
	var req enterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, func() (any, error) {
		assets := make([]crypto.Address, 0, len(req.Assets))
		for _, ref := range req.Assets {
			addr, err := s.resolveAsset(ref)
			if err != nil {
				return nil, err
			}
			assets = append(assets, addr)
		}
		decisions, err := s.node.Engine.EnterMarkets(caller(r), assets)
		if err != nil {
			return nil, err
		}
		results := make([]enterResult, 0, len(decisions))
		for i, decision := range decisions {
			results = append(results, enterResult{Asset: assets[i].String(), decisionView: toDecisionView(decision)})
		}
		return results, nil
	})
}

type exitRequest struct {
	Asset string `json:"asset"`
}

func (s *Server) handleExitMarket(w http.ResponseWriter, r *http.Request) {
	var req exitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, func() (any, error) {
		addr, err := s.resolveAsset(req.Asset)
		if err != nil {
			return nil, err
		}
		decision, err := s.node.Engine.ExitMarket(caller(r), addr)
		if err != nil {
			return nil, err
		}
		return toDecisionView(decision), nil
	})
}

type assetOperationRequest struct {
	Amount     string `json:"amount"`
	Borrower   string `json:"borrower"`
	Recipient  string `json:"recipient"`
	Collateral string `json:"collateral"`
}

// handleAssetOperation drives a hosted market on behalf of the caller. Every
// operation passes through the risk engine before balances move.
func (s *Server) handleAssetOperation(w http.ResponseWriter, r *http.Request) {
	var req assetOperationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	operation := chi.URLParam(r, "operation")
	s.mutate(w, r, func() (any, error) {
		book, ok := s.node.Book(chi.URLParam(r, "asset"))
		if !ok {
			return nil, fmt.Errorf("%w: unknown asset %q", errBadRequest, chi.URLParam(r, "asset"))
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		actor := caller(r)
		result := map[string]string{"operation": operation, "asset": book.Address().String()}
		switch operation {
		case "mint":
			err = book.Mint(actor, amount)
		case "redeem":
			err = book.Redeem(actor, amount)
		case "borrow":
			err = book.Borrow(actor, amount)
		case "repay":
			borrower := actor
			if req.Borrower != "" {
				if borrower, err = parseAddress(req.Borrower); err != nil {
					return nil, err
				}
			}
			err = book.RepayBorrow(actor, borrower, amount)
		case "transfer":
			var recipient crypto.Address
			if recipient, err = parseAddress(req.Recipient); err != nil {
				return nil, err
			}
			err = book.Transfer(actor, recipient, amount)
		case "liquidate":
			var borrower crypto.Address
			if borrower, err = parseAddress(req.Borrower); err != nil {
				return nil, err
			}
			collateral, ok := s.node.Book(req.Collateral)
			if !ok {
				return nil, fmt.Errorf("%w: unknown collateral %q", errBadRequest, req.Collateral)
			}
			var seized *uint256.Int
			if seized, err = book.LiquidateBorrow(actor, borrower, amount, collateral); err == nil {
				result["seized_tokens"] = seized.Dec()
			}
		default:
			return nil, fmt.Errorf("%w: unknown operation %q", errBadRequest, operation)
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	})
}

type priceRequest struct {
	Asset string `json:"asset"`
	Price string `json:"price"`
}

func (s *Server) handlePostPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, func() (any, error) {
		addr, err := s.resolveAsset(req.Asset)
		if err != nil {
			return nil, err
		}
		price, err := fixed.Parse(req.Price)
		if err != nil {
			return nil, err
		}
		if err := s.node.Feed.SetPrice(caller(r), addr, price); err != nil {
			return nil, err
		}
		return map[string]string{"asset": addr.String(), "price": price.String()}, nil
	})
}

// resolveAsset accepts a bech32 address or a hosted market symbol.
func (s *Server) resolveAsset(ref string) (crypto.Address, error) {
	if book, ok := s.node.Assets.BySymbol(ref); ok {
		return book.Address(), nil
	}
	return parseAddress(ref)
}
