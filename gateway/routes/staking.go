package routes

import (
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"devtoken/crypto"
	"devtoken/gateway/middleware"
)

type stakingRoutes struct {
	ledger Ledger
	logger *slog.Logger
}

type stakeRequest struct {
	Amount Amount `json:"amount"`
}

type withdrawRequest struct {
	Amount Amount  `json:"amount"`
	Slot   *uint64 `json:"slot"`
}

type receiptResponse struct {
	Address string `json:"address"`
	Slot    uint64 `json:"slot"`
	Index   uint64 `json:"index"`
	Amount  string `json:"amount"`
	Since   int64  `json:"since"`
}

type withdrawalResponse struct {
	Address    string `json:"address"`
	Slot       uint64 `json:"slot"`
	Principal  string `json:"principal"`
	Reward     string `json:"reward"`
	Total      string `json:"total"`
	Remaining  string `json:"remaining"`
	Tombstoned bool   `json:"tombstoned"`
}

type slotResponse struct {
	Slot      uint64 `json:"slot"`
	State     string `json:"state"`
	Owner     string `json:"owner,omitempty"`
	Amount    string `json:"amount"`
	Since     int64  `json:"since"`
	Claimable string `json:"claimable"`
}

type summaryResponse struct {
	Address     string         `json:"address"`
	Staked      bool           `json:"staked"`
	TotalAmount string         `json:"totalAmount"`
	Stakes      []slotResponse `json:"stakes"`
}

type stakeholderResponse struct {
	Address    string `json:"address"`
	Index      uint64 `json:"index"`
	Registered bool   `json:"registered"`
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func (s *stakingRoutes) stake(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req stakeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := req.Amount.required()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	receipt, err := s.ledger.Stake(r.Context(), caller.Array(), amount)
	if err != nil {
		writeLedgerError(w, s.logger, "stake", err)
		return
	}
	writeJSON(w, http.StatusCreated, receiptResponse{
		Address: caller.String(),
		Slot:    receipt.Slot,
		Index:   receipt.Index,
		Amount:  amountString(receipt.Amount),
		Since:   receipt.Since,
	})
}

func (s *stakingRoutes) withdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req withdrawRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	amount, err := req.Amount.required()
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.Slot == nil {
		writeBadRequest(w, errors.New("slot is required"))
		return
	}
	withdrawal, err := s.ledger.Withdraw(r.Context(), caller.Array(), amount, *req.Slot)
	if err != nil {
		writeLedgerError(w, s.logger, "withdraw", err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawalResponse{
		Address:    caller.String(),
		Slot:       withdrawal.Slot,
		Principal:  amountString(withdrawal.Principal),
		Reward:     amountString(withdrawal.Reward),
		Total:      withdrawal.Total().String(),
		Remaining:  amountString(withdrawal.Remaining),
		Tombstoned: withdrawal.Tombstoned,
	})
}

func (s *stakingRoutes) stakes(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	summary, err := s.ledger.HasStake(r.Context(), addr.Array())
	if err != nil {
		writeLedgerError(w, s.logger, "stakes", err)
		return
	}
	resp := summaryResponse{
		Address:     addr.String(),
		TotalAmount: amountString(summary.TotalAmount),
		Stakes:      make([]slotResponse, 0, len(summary.Stakes)),
	}
	for _, entry := range summary.Stakes {
		slot := slotResponse{Slot: entry.Slot, Claimable: amountString(entry.Claimable), Amount: "0"}
		if entry.Stake != nil {
			slot.State = entry.Stake.State.String()
			slot.Amount = amountString(entry.Stake.Amount)
			slot.Since = entry.Stake.Since
			if entry.Stake.Active() {
				slot.Owner = crypto.FromArray(entry.Stake.Owner).String()
			}
		}
		resp.Stakes = append(resp.Stakes, slot)
	}
	resp.Staked = summary.TotalAmount != nil && summary.TotalAmount.Sign() > 0
	writeJSON(w, http.StatusOK, resp)
}

func (s *stakingRoutes) stakeholder(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	index, err := s.ledger.RegistryIndexOf(r.Context(), addr.Array())
	if err != nil {
		writeLedgerError(w, s.logger, "stakeholder", err)
		return
	}
	writeJSON(w, http.StatusOK, stakeholderResponse{
		Address:    addr.String(),
		Index:      index,
		Registered: index != 0,
	})
}
