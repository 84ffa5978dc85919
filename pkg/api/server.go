package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/spotdex/pkg/app/core"
	"github.com/uhyunpark/spotdex/pkg/app/core/exchange"
	"github.com/uhyunpark/spotdex/pkg/app/core/orderbook"
)

// Server exposes the exchange over REST and streams its event feed over
// WebSocket. All state transitions go through the exchange's own
// serialization point; handlers only translate between HTTP and the core.
type Server struct {
	ex     *exchange.Exchange
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

func NewServer(ex *exchange.Exchange, log *zap.SugaredLogger) *Server {
	s := &Server{
		ex:     ex,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}
	ex.Feed().Attach(s.hub)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Ledger endpoints
	api.HandleFunc("/balances/{asset}/{account}", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/deposits", s.handleDeposit).Methods("POST")
	api.HandleFunc("/withdrawals", s.handleWithdraw).Methods("POST")

	// Order endpoints
	api.HandleFunc("/orders", s.handleGetOrders).Methods("GET")
	api.HandleFunc("/orders", s.handleMakeOrder).Methods("POST")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{id}/fill", s.handleFillOrder).Methods("POST")
	api.HandleFunc("/orders/{id}/cancel", s.handleCancelOrder).Methods("POST")

	// Exchange configuration
	api.HandleFunc("/fees", s.handleGetFees).Methods("GET")

	// Event stream
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and serves HTTP until the listener fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	asset, ok := parseAddress(vars["asset"])
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid asset", "")
		return
	}
	account, ok := parseAddress(vars["account"])
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid account", "")
		return
	}

	balance := s.ex.BalanceOf(asset, account)
	respondJSON(w, BalanceInfo{
		Asset:    asset.Hex(),
		Account:  account.Hex(),
		Balance:  strconv.FormatUint(balance, 10),
		Rendered: formatUnits(balance),
	})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}

	asset, account, amount, ok := parseMovement(w, req.Asset, req.Account, req.Amount)
	if !ok {
		return
	}

	var balance core.Amount
	var err error
	if asset == core.NativeAsset {
		balance, err = s.ex.DepositEther(account, amount)
	} else {
		balance, err = s.ex.DepositToken(asset, account, amount)
	}
	if err != nil {
		respondCoreError(w, err)
		return
	}

	respondJSON(w, BalanceInfo{
		Asset:    asset.Hex(),
		Account:  account.Hex(),
		Balance:  strconv.FormatUint(balance, 10),
		Rendered: formatUnits(balance),
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}

	asset, account, amount, ok := parseMovement(w, req.Asset, req.Account, req.Amount)
	if !ok {
		return
	}

	var balance core.Amount
	var err error
	if asset == core.NativeAsset {
		balance, err = s.ex.WithdrawEther(account, amount)
	} else {
		balance, err = s.ex.WithdrawToken(asset, account, amount)
	}
	if err != nil {
		respondCoreError(w, err)
		return
	}

	respondJSON(w, BalanceInfo{
		Asset:    asset.Hex(),
		Account:  account.Hex(),
		Balance:  strconv.FormatUint(balance, 10),
		Rendered: formatUnits(balance),
	})
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.ex.Orders()
	response := make([]OrderInfo, len(orders))
	for i, o := range orders {
		response[i] = s.orderInfo(o)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}
	o, err := s.ex.Order(id)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, s.orderInfo(o))
}

func (s *Server) handleMakeOrder(w http.ResponseWriter, r *http.Request) {
	var req MakeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}

	maker, ok := parseAddress(req.Maker)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid maker", "")
		return
	}
	wantedAsset, ok := parseAddress(req.WantedAsset)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid wantedAsset", "")
		return
	}
	offeredAsset, ok := parseAddress(req.OfferedAsset)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid offeredAsset", "")
		return
	}
	wantedAmount, err := strconv.ParseUint(req.WantedAmount, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid wantedAmount", err.Error())
		return
	}
	offeredAmount, err := strconv.ParseUint(req.OfferedAmount, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid offeredAmount", err.Error())
		return
	}

	id, err := s.ex.MakeOrder(maker, wantedAsset, wantedAmount, offeredAsset, offeredAmount)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, MakeOrderResponse{ID: id})
}

func (s *Server) handleFillOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req FillOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	taker, ok := parseAddress(req.Taker)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid taker", "")
		return
	}

	if err := s.ex.FillOrder(taker, id); err != nil {
		respondCoreError(w, err)
		return
	}
	o, err := s.ex.Order(id)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, s.orderInfo(o))
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid caller", "")
		return
	}

	if err := s.ex.CancelOrder(caller, id); err != nil {
		respondCoreError(w, err)
		return
	}
	o, err := s.ex.Order(id)
	if err != nil {
		respondCoreError(w, err)
		return
	}
	respondJSON(w, s.orderInfo(o))
}

func (s *Server) handleGetFees(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, FeeInfo{
		FeeAccount: s.ex.FeeAccount().Hex(),
		FeePercent: s.ex.FeePercent(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{"status": "ok", "orders": s.ex.OrderCount()})
}

// ==============================
// Helpers
// ==============================

func (s *Server) orderInfo(o *orderbook.Order) OrderInfo {
	return OrderInfo{
		ID:            o.ID,
		Maker:         o.Maker.Hex(),
		WantedAsset:   o.WantedAsset.Hex(),
		WantedAmount:  strconv.FormatUint(o.WantedAmount, 10),
		OfferedAsset:  o.OfferedAsset.Hex(),
		OfferedAmount: strconv.FormatUint(o.OfferedAmount, 10),
		CreatedAt:     o.CreatedAt,
		Filled:        s.ex.OrderFilled(o.ID),
		Cancelled:     s.ex.OrderCancelled(o.ID),
	}
}

// parseAddress accepts a hex address; the empty string means the native
// asset sentinel.
func parseAddress(s string) (common.Address, bool) {
	if s == "" {
		return core.NativeAsset, true
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

func parseMovement(w http.ResponseWriter, assetStr, accountStr, amountStr string) (asset core.Asset, account common.Address, amount core.Amount, ok bool) {
	asset, ok = parseAddress(assetStr)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid asset", "")
		return
	}
	account, ok = parseAddress(accountStr)
	if !ok || account == (common.Address{}) {
		respondError(w, http.StatusBadRequest, "invalid account", "")
		ok = false
		return
	}
	var err error
	amount, err = strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount", err.Error())
		ok = false
		return
	}
	ok = true
	return
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id", err.Error())
		return 0, false
	}
	return id, true
}

// respondCoreError maps exchange error kinds onto HTTP statuses.
func respondCoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.ErrUnknownOrder.Has(err):
		status = http.StatusNotFound
	case core.ErrNotOrderOwner.Has(err):
		status = http.StatusForbidden
	case core.ErrAlreadyFilled.Has(err), core.ErrAlreadyCancelled.Has(err):
		status = http.StatusConflict
	case core.ErrInsufficientBalance.Has(err), core.ErrInvalidAsset.Has(err), core.ErrArithmeticOverflow.Has(err):
		status = http.StatusBadRequest
	case core.ErrExternalTransfer.Has(err):
		status = http.StatusBadGateway
	}
	respondError(w, status, err.Error(), "")
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
