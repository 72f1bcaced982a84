package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"devtoken/crypto"
	"devtoken/gateway/middleware"
)

type tokenRoutes struct {
	ledger Ledger
	logger *slog.Logger
}

type transferRequest struct {
	To     string `json:"to"`
	Amount Amount `json:"amount"`
}

type approveRequest struct {
	Spender string `json:"spender"`
	Amount  Amount `json:"amount"`
}

type transferFromRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount Amount `json:"amount"`
}

type mintRequest struct {
	To     string `json:"to"`
	Amount Amount `json:"amount"`
}

type burnRequest struct {
	From   string `json:"from"`
	Amount Amount `json:"amount"`
}

type ownershipRequest struct {
	NewOwner string `json:"newOwner"`
}

type tokenResponse struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
	Owner       string `json:"owner,omitempty"`
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type allowanceResponse struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance string `json:"allowance"`
}

type operationResponse struct {
	Operation string `json:"operation"`
	Caller    string `json:"caller"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Amount    string `json:"amount,omitempty"`
}

var zeroAddress [crypto.AddressLength]byte

func (t *tokenRoutes) info(w http.ResponseWriter, r *http.Request) {
	info, err := t.ledger.TokenInfo(r.Context())
	if err != nil {
		writeLedgerError(w, t.logger, "token", err)
		return
	}
	resp := tokenResponse{
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		TotalSupply: amountString(info.TotalSupply),
	}
	if info.Owner != zeroAddress {
		resp.Owner = crypto.FromArray(info.Owner).String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (t *tokenRoutes) balance(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	balance, err := t.ledger.Balance(r.Context(), addr.Array())
	if err != nil {
		writeLedgerError(w, t.logger, "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: addr.String(), Balance: amountString(balance)})
}

func (t *tokenRoutes) allowance(w http.ResponseWriter, r *http.Request) {
	owner, err := pathAddress(r, "owner")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	spender, err := pathAddress(r, "spender")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	allowance, err := t.ledger.Allowance(r.Context(), owner.Array(), spender.Array())
	if err != nil {
		writeLedgerError(w, t.logger, "allowance", err)
		return
	}
	writeJSON(w, http.StatusOK, allowanceResponse{
		Owner:     owner.String(),
		Spender:   spender.String(),
		Allowance: amountString(allowance),
	})
}

func (t *tokenRoutes) transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req transferRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := req.Amount.required()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := t.ledger.Transfer(r.Context(), caller.Array(), to.Array(), amount); err != nil {
		writeLedgerError(w, t.logger, "transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, operationResponse{
		Operation: "transfer",
		Caller:    caller.String(),
		From:      caller.String(),
		To:        to.String(),
		Amount:    amount.String(),
	})
}

func (t *tokenRoutes) approve(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req approveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	spender, err := parseAddress("spender", req.Spender)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := req.Amount.required()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := t.ledger.Approve(r.Context(), caller.Array(), spender.Array(), amount); err != nil {
		writeLedgerError(w, t.logger, "approve", err)
		return
	}
	writeJSON(w, http.StatusOK, operationResponse{
		Operation: "approve",
		Caller:    caller.String(),
		To:        spender.String(),
		Amount:    amount.String(),
	})
}

func (t *tokenRoutes) transferFrom(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req transferFromRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	from, err := parseAddress("from", req.From)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := req.Amount.required()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := t.ledger.TransferFrom(r.Context(), caller.Array(), from.Array(), to.Array(), amount); err != nil {
		writeLedgerError(w, t.logger, "transferFrom", err)
		return
	}
	writeJSON(w, http.StatusOK, operationResponse{
		Operation: "transferFrom",
		Caller:    caller.String(),
		From:      from.String(),
		To:        to.String(),
		Amount:    amount.String(),
	})
}

func (t *tokenRoutes) mint(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req mintRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := req.Amount.required()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := t.ledger.Mint(r.Context(), caller.Array(), to.Array(), amount); err != nil {
		writeLedgerError(w, t.logger, "mint", err)
		return
	}
	writeJSON(w, http.StatusOK, operationResponse{
		Operation: "mint",
		Caller:    caller.String(),
		To:        to.String(),
		Amount:    amount.String(),
	})
}

func (t *tokenRoutes) burn(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req burnRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	from, err := parseAddress("from", req.From)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := req.Amount.required()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := t.ledger.Burn(r.Context(), caller.Array(), from.Array(), amount); err != nil {
		writeLedgerError(w, t.logger, "burn", err)
		return
	}
	writeJSON(w, http.StatusOK, operationResponse{
		Operation: "burn",
		Caller:    caller.String(),
		From:      from.String(),
		Amount:    amount.String(),
	})
}

func (t *tokenRoutes) transferOwnership(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req ownershipRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.NewOwner == "" {
		writeBadRequest(w, errors.New("newOwner is required"))
		return
	}
	newOwner, err := parseAddress("newOwner", req.NewOwner)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := t.ledger.TransferOwnership(r.Context(), caller.Array(), newOwner.Array()); err != nil {
		writeLedgerError(w, t.logger, "transferOwnership", err)
		return
	}
	writeJSON(w, http.StatusOK, operationResponse{
		Operation: "transferOwnership",
		Caller:    caller.String(),
		To:        newOwner.String(),
	})
}

func (t *tokenRoutes) renounceOwnership(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err := t.ledger.RenounceOwnership(r.Context(), caller.Array()); err != nil {
		writeLedgerError(w, t.logger, "renounceOwnership", err)
		return
	}
	writeJSON(w, http.StatusOK, operationResponse{Operation: "renounceOwnership", Caller: caller.String()})
}
