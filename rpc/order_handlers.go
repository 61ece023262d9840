package rpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"payprotector/core/types"
	"payprotector/native/order"
	"payprotector/observability"
)

const (
	codeOrderInvalidParams = -32031
	codeOrderInvalidAmount = -32032
	codeOrderNotFound      = -32033
	codeOrderForbidden     = -32034
	codeOrderConflict      = -32035
	codeOrderBidTooLow     = -32036
	codeOrderInsufficient  = -32037
	codeOrderInternal      = -32038
)

type orderCreateParams struct {
	Caller string `json:"caller"`
	Seller string `json:"seller"`
	Amount string `json:"amount"`
	Value  string `json:"value"`
}

type orderIDParams struct {
	ID uint64 `json:"id"`
}

type orderActorParams struct {
	ID     uint64 `json:"id"`
	Caller string `json:"caller"`
}

type orderInsureParams struct {
	ID     uint64 `json:"id"`
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

type orderResolveParams struct {
	ID     uint64 `json:"id"`
	Caller string `json:"caller"`
	Claim  bool   `json:"claim"`
}

type balanceParams struct {
	Address string `json:"address"`
}

type orderCreateResult struct {
	ID uint64 `json:"id"`
}

type orderStatusResult struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
}

type minBidResult struct {
	ID     uint64 `json:"id"`
	MinBid string `json:"minBid"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type orderJSON struct {
	ID             uint64  `json:"id"`
	Buyer          string  `json:"buyer"`
	Seller         string  `json:"seller"`
	Amount         string  `json:"amount"`
	Deposit        string  `json:"deposit"`
	Insurer        *string `json:"insurer,omitempty"`
	BidAmount      *string `json:"bidAmount,omitempty"`
	Status         string  `json:"status"`
	StartTimestamp int64   `json:"startTimestamp"`
	Timespan       uint64  `json:"timespan"`
	LowestAmount   string  `json:"lowestAmount"`
}

func newOrderJSON(ord *order.Order, auc *order.Auction) orderJSON {
	out := orderJSON{
		ID:             ord.ID,
		Buyer:          common.Address(ord.Buyer).Hex(),
		Seller:         common.Address(ord.Seller).Hex(),
		Amount:         ord.Amount.String(),
		Deposit:        ord.Deposit.String(),
		Status:         ord.Status.String(),
		StartTimestamp: auc.StartTimestamp,
		Timespan:       auc.Timespan,
		LowestAmount:   auc.LowestAmount.String(),
	}
	if ord.Insured() {
		insurer := common.Address(ord.Insurer).Hex()
		bid := ord.BidAmount.String()
		out.Insurer = &insurer
		out.BidAmount = &bid
	}
	return out
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, errors.New("invalid hex address")
	}
	return common.HexToAddress(trimmed), nil
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	parsed, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, errors.New("invalid decimal amount")
	}
	if parsed.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}
	return parsed, nil
}

// writeOrderError maps the settlement error taxonomy onto stable JSON-RPC
// codes so callers can branch without string matching.
func (s *Server) writeOrderError(w http.ResponseWriter, req *RPCRequest, err error) int {
	status, code, message := http.StatusInternalServerError, codeOrderInternal, "internal error"
	switch {
	case errors.Is(err, order.ErrInvalidAmount):
		status, code, message = http.StatusBadRequest, codeOrderInvalidAmount, "invalid_amount"
	case errors.Is(err, order.ErrNotFound):
		status, code, message = http.StatusNotFound, codeOrderNotFound, "not_found"
	case errors.Is(err, order.ErrUnauthorized):
		status, code, message = http.StatusForbidden, codeOrderForbidden, "unauthorized"
	case errors.Is(err, order.ErrInvalidState):
		status, code, message = http.StatusConflict, codeOrderConflict, "invalid_state"
	case errors.Is(err, order.ErrBidTooLow):
		status, code, message = http.StatusBadRequest, codeOrderBidTooLow, "bid_too_low"
	case errors.Is(err, order.ErrInsufficientFunds):
		status, code, message = http.StatusBadRequest, codeOrderInsufficient, "insufficient_funds"
	}
	writeError(w, status, req.ID, code, message, err.Error())
	return status
}

func (s *Server) observe(method string, start time.Time, status int) {
	observability.SettlementMetrics().Observe(method, status, time.Since(start))
	if status >= 400 {
		s.log.Warn("settlement call rejected", "method", method, "status", status)
	}
}

func (s *Server) handleOrderCreate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "order_create"
	start := time.Now()
	var params orderCreateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	buyer, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", "caller: "+err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	seller, err := parseAddress(params.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", "seller: "+err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", "amount: "+err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	value, err := parsePositiveBigInt(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", "value: "+err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	ord, _, err := s.node.CreateOrder(buyer, seller, amount, value)
	if err != nil {
		s.observe(method, start, s.writeOrderError(w, req, err))
		return
	}
	s.log.Info("order created", "id", ord.ID, "buyer", params.Caller, "amount", amount.String())
	writeResult(w, req.ID, orderCreateResult{ID: ord.ID})
	s.observe(method, start, http.StatusOK)
}

func (s *Server) handleOrderCancel(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "order_cancel"
	start := time.Now()
	var params orderActorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", "caller: "+err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	ord, err := s.node.CancelOrder(params.ID, caller)
	if err != nil {
		s.observe(method, start, s.writeOrderError(w, req, err))
		return
	}
	s.log.Info("order cancelled", "id", ord.ID)
	writeResult(w, req.ID, orderStatusResult{ID: ord.ID, Status: ord.Status.String()})
	s.observe(method, start, http.StatusOK)
}

func (s *Server) handleOrderInsure(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "order_insure"
	start := time.Now()
	var params orderInsureParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", "caller: "+err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	value, err := parsePositiveBigInt(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", "value: "+err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	ord, err := s.node.InsureOrder(params.ID, caller, value)
	if err != nil {
		s.observe(method, start, s.writeOrderError(w, req, err))
		return
	}
	s.log.Info("order insured", "id", ord.ID, "insurer", params.Caller, "bid", value.String())
	writeResult(w, req.ID, orderStatusResult{ID: ord.ID, Status: ord.Status.String()})
	s.observe(method, start, http.StatusOK)
}

func (s *Server) handleOrderResolve(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "order_resolve"
	start := time.Now()
	var params orderResolveParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", "caller: "+err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	ord, err := s.node.ResolveOrder(params.ID, caller, params.Claim)
	if err != nil {
		s.observe(method, start, s.writeOrderError(w, req, err))
		return
	}
	s.log.Info("order resolved", "id", ord.ID, "claimed", params.Claim)
	writeResult(w, req.ID, orderStatusResult{ID: ord.ID, Status: ord.Status.String()})
	s.observe(method, start, http.StatusOK)
}

func (s *Server) handleOrderMinBid(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "order_minBid"
	start := time.Now()
	var params orderIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	min, err := s.node.MinBid(params.ID)
	if err != nil {
		s.observe(method, start, s.writeOrderError(w, req, err))
		return
	}
	writeResult(w, req.ID, minBidResult{ID: params.ID, MinBid: min.String()})
	s.observe(method, start, http.StatusOK)
}

func (s *Server) handleOrderGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "order_get"
	start := time.Now()
	var params orderIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	ord, auc, err := s.node.GetOrder(params.ID)
	if err != nil {
		s.observe(method, start, s.writeOrderError(w, req, err))
		return
	}
	writeResult(w, req.ID, newOrderJSON(ord, auc))
	s.observe(method, start, http.StatusOK)
}

func (s *Server) handleOrderGetBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "order_getBalance"
	start := time.Now()
	var params balanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeOrderInvalidParams, "invalid_params", "address: "+err.Error())
		s.observe(method, start, http.StatusBadRequest)
		return
	}
	acc, err := s.node.GetAccount(addr)
	if err != nil {
		s.observe(method, start, s.writeOrderError(w, req, err))
		return
	}
	writeResult(w, req.ID, balanceResult{Address: common.Address(addr).Hex(), Balance: balanceString(acc)})
	s.observe(method, start, http.StatusOK)
}

func balanceString(acc *types.Account) string {
	if acc == nil || acc.Balance == nil {
		return "0"
	}
	return acc.Balance.String()
}

func (s *Server) handleOrderEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "order_events"
	start := time.Now()
	recent := s.node.RecentEvents()
	payload := make([]*types.Event, 0, len(recent))
	for _, evt := range recent {
		carrier, ok := evt.(interface{ Event() *types.Event })
		if !ok {
			continue
		}
		payload = append(payload, carrier.Event())
	}
	writeResult(w, req.ID, payload)
	s.observe(method, start, http.StatusOK)
}
