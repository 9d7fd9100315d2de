package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/matchsim/pkg/history"
	"github.com/uhyunpark/matchsim/pkg/matching"
	"github.com/uhyunpark/matchsim/pkg/model"
	"github.com/uhyunpark/matchsim/pkg/util"
)

const defaultHistoryLimit = 100

// Kernel is the part of the simulation kernel the API drives. Do serializes
// access to everything the kernel owns; the other methods are only called
// inside Do.
type Kernel interface {
	Do(fn func())
	Now() int64
	Alloc(tsMs int64) uint64
	Pending() int
	NextAt() (int64, bool)
}

// Server handles REST API and WebSocket connections
type Server struct {
	k       Kernel
	unit    *matching.Unit
	history history.Reader
	router  *mux.Router
	hub     *Hub
	origins []string
	log     *zap.SugaredLogger

	httpSrv *http.Server
	unsubs  []func()
}

type Option func(*Server)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Server) { s.log = l }
}

func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// NewServer creates the API server and subscribes it to book notifications.
// Call before the kernel starts running, or from inside Do.
func NewServer(k Kernel, unit *matching.Unit, hist history.Reader, opts ...Option) *Server {
	s := &Server{
		k:       k,
		unit:    unit,
		history: hist,
		router:  mux.NewRouter(),
		origins: []string{"http://localhost:3000"},
		log:     util.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.log)

	s.unsubs = append(s.unsubs,
		unit.Book.OnSubmitted(func(orders []model.Order) {
			s.hub.BroadcastToChannel(ChannelOrders, StreamMessage{
				Type:      "orders_submitted",
				Orders:    orders,
				SimTimeMs: k.Now(),
			})
		}),
		unit.Book.OnCancelled(func(ids []string) {
			s.hub.BroadcastToChannel(ChannelOrders, StreamMessage{
				Type:      "orders_cancelled",
				IDs:       ids,
				SimTimeMs: k.Now(),
			})
		}),
	)

	s.setupRoutes()
	return s
}

// RecordFilled pushes a fill to "fills" subscribers. The server is wired as
// one of the history sinks.
func (s *Server) RecordFilled(o model.Order) error {
	s.hub.BroadcastToChannel(ChannelFills, StreamMessage{
		Type:      "order_filled",
		Orders:    []model.Order{o},
		SimTimeMs: o.TimestampInUs / 1000,
	})
	return nil
}

var _ history.Sink = (*Server)(nil)

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Order endpoints
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders", s.handleSubmitOrders).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrders).Methods("POST")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")

	// Ranges and fills
	api.HandleFunc("/ranges", s.handleListRanges).Methods("GET")
	api.HandleFunc("/ranges/{product}", s.handleGetRange).Methods("GET")
	api.HandleFunc("/history", s.handleListHistory).Methods("GET")
	api.HandleFunc("/history/{id}", s.handleGetHistory).Methods("GET")

	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped with CORS
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start serves on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Infow("api_listening", "addr", addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server, closes websocket sessions and drops the
// book subscriptions
func (s *Server) Shutdown(ctx context.Context) error {
	s.k.Do(func() {
		for _, unsub := range s.unsubs {
			unsub()
		}
		s.unsubs = nil
	})
	s.hub.Close()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	var orders []model.Order
	s.k.Do(func() { orders = s.unit.Book.List() })
	if orders == nil {
		orders = []model.Order{}
	}
	respondJSON(w, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var (
		o  model.Order
		ok bool
	)
	s.k.Do(func() { o, ok = s.unit.Book.Get(id) })
	if !ok {
		respondError(w, http.StatusNotFound, "order not found", id)
		return
	}
	respondJSON(w, o)
}

func (s *Server) handleSubmitOrders(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrdersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Orders) == 0 {
		respondError(w, http.StatusBadRequest, "no orders", "")
		return
	}

	var (
		err     error
		eventID uint64
	)
	s.k.Do(func() {
		if err = s.unit.Book.Submit(req.Orders...); err != nil {
			return
		}
		// fill at the current time without waiting for the next bar
		eventID = s.k.Alloc(s.k.Now())
	})
	if err != nil {
		s.log.Infow("api_submit_rejected", "orders", len(req.Orders), "err", err)
		respondError(w, http.StatusBadRequest, "order rejected", err.Error())
		return
	}

	ids := make([]string, len(req.Orders))
	for i := range req.Orders {
		ids[i] = req.Orders[i].ClientOrderID
	}
	s.log.Infow("api_orders_submitted", "orders", len(ids), "event_id", eventID)

	respondJSON(w, SubmitOrdersResponse{
		Status:   "submitted",
		OrderIDs: ids,
		EventID:  eventID,
	})
}

func (s *Server) handleCancelOrders(w http.ResponseWriter, r *http.Request) {
	var req CancelOrdersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "no ids", "")
		return
	}

	s.k.Do(func() {
		s.unit.Book.Cancel(req.IDs...)
		s.k.Alloc(s.k.Now())
	})
	s.log.Infow("api_orders_cancelled", "ids", len(req.IDs))

	respondJSON(w, CancelOrdersResponse{Status: "cancelled", IDs: req.IDs})
}

func (s *Server) handleListRanges(w http.ResponseWriter, r *http.Request) {
	var ranges []RangeInfo
	s.k.Do(func() {
		for _, id := range s.unit.Ranges.Products() {
			rg, _ := s.unit.Ranges.Range(id)
			ranges = append(ranges, RangeInfo{ProductID: id, Ask: rg.Ask, Bid: rg.Bid})
		}
	})
	if ranges == nil {
		ranges = []RangeInfo{}
	}
	respondJSON(w, ranges)
}

func (s *Server) handleGetRange(w http.ResponseWriter, r *http.Request) {
	product := mux.Vars(r)["product"]

	var (
		rg matching.Range
		ok bool
	)
	s.k.Do(func() { rg, ok = s.unit.Ranges.Range(product) })
	if !ok {
		respondError(w, http.StatusNotFound, "no range for product", product)
		return
	}
	respondJSON(w, RangeInfo{ProductID: product, Ask: rg.Ask, Bid: rg.Bid})
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = n
	}

	orders, err := s.history.List(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history unavailable", err.Error())
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	respondJSON(w, orders)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	o, err := s.history.Get(id)
	if errors.Is(err, history.ErrNotFound) {
		respondError(w, http.StatusNotFound, "fill not found", id)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history unavailable", err.Error())
		return
	}
	respondJSON(w, o)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	var status StatusInfo
	s.k.Do(func() {
		status = StatusInfo{
			SimTimeMs:     s.k.Now(),
			PendingOrders: s.unit.Book.Len(),
			Fills:         s.unit.Fills(),
			QueuedEvents:  s.k.Pending(),
			Products:      len(s.unit.Ranges.Products()),
		}
		if next, ok := s.k.NextAt(); ok {
			status.NextEventMs = &next
		}
	})
	respondJSON(w, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"clients":   s.hub.Clients(),
	})
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data interface{}) {
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
