package server

import (
	"errors"
	"net/http"

	"riskgate/core/fixed"
	"riskgate/native/asset"
	"riskgate/native/common"
	"riskgate/native/comptroller"
	"riskgate/native/oracle"
)

// errBadRequest marks malformed input detected by the HTTP layer.
var errBadRequest = errors.New("bad request")

// errorBody is the JSON error envelope.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// toStatus maps an engine or market error to an HTTP status and body.
func toStatus(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}
	var denial *comptroller.DenialError
	if errors.As(err, &denial) {
		body.Reason = denial.Reason.String()
	}
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, fixed.ErrInvalidDecimal),
		errors.Is(err, asset.ErrInvalidAmount),
		errors.Is(err, asset.ErrSelfLiquidation),
		errors.Is(err, oracle.ErrInvalidPrice):
		return http.StatusBadRequest, body
	case errors.Is(err, comptroller.ErrAuthorization), errors.Is(err, oracle.ErrUnauthorized):
		return http.StatusForbidden, body
	case errors.Is(err, common.ErrModulePaused):
		return http.StatusServiceUnavailable, body
	case errors.Is(err, comptroller.ErrPricing):
		return http.StatusConflict, body
	case errors.Is(err, comptroller.ErrConsistency), errors.Is(err, comptroller.ErrArithmetic):
		return http.StatusInternalServerError, errorBody{Error: "internal error"}
	case errors.Is(err, comptroller.ErrConfiguration),
		errors.Is(err, comptroller.ErrSolvency),
		errors.Is(err, comptroller.ErrCapacity),
		errors.Is(err, comptroller.ErrPaused),
		errors.Is(err, asset.ErrInsufficientBalance),
		errors.Is(err, asset.ErrInsufficientDebt),
		errors.Is(err, asset.ErrInsufficientCollateral):
		return http.StatusUnprocessableEntity, body
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error"}
	}
}
