package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"devtoken/crypto"
	"devtoken/native/staking"
	"devtoken/native/token"
)

const maxBodyBytes = 1 << 20

// Amount decodes a base-unit integer given either as a JSON string or a bare
// JSON number.
type Amount struct {
	*big.Int
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		a.Int = nil
		return nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return fmt.Errorf("invalid amount %q", raw)
	}
	a.Int = v
	return nil
}

func (a Amount) required() (*big.Int, error) {
	if a.Int == nil {
		return nil, errors.New("amount is required")
	}
	return a.Int, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func parseAddress(field, raw string) (crypto.Address, error) {
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}

func pathAddress(r *http.Request, param string) (crypto.Address, error) {
	return parseAddress(param, chi.URLParam(r, param))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSONError(w, http.StatusBadRequest, "bad_request", err)
}

func writeJSONError(w http.ResponseWriter, status int, code string, err error) {
	message := ""
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// classify maps ledger errors onto an HTTP status and a stable error code.
func classify(err error) (int, string) {
	reason := staking.Reason(err)
	if reason == "internal" {
		reason = token.Reason(err)
	}
	switch reason {
	case "invalid_amount", "zero_address", "amount_overflow":
		return http.StatusBadRequest, reason
	case "insufficient_balance", "insufficient_stake", "allowance_exceeded":
		return http.StatusUnprocessableEntity, reason
	case "slot_not_found":
		return http.StatusNotFound, reason
	case "not_owner":
		return http.StatusForbidden, reason
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "canceled"
	}
	return http.StatusInternalServerError, "internal"
}

// writeLedgerError reports a failed ledger call. Internal failures are logged
// and answered without their detail.
func writeLedgerError(w http.ResponseWriter, logger *slog.Logger, operation string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("ledger call failed", "operation", operation, "error", err)
		writeJSONError(w, status, code, errors.New(http.StatusText(status)))
		return
	}
	writeJSONError(w, status, code, err)
}
