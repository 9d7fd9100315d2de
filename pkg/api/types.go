package api

import (
	"github.com/uhyunpark/matchsim/pkg/matching"
	"github.com/uhyunpark/matchsim/pkg/model"
)

// API request/response types for REST endpoints and WebSocket messages

// SubmitOrdersRequest submits one batch; the batch is accepted or rejected whole
type SubmitOrdersRequest struct {
	Orders []model.Order `json:"orders"`
}

type SubmitOrdersResponse struct {
	Status   string   `json:"status"`
	OrderIDs []string `json:"orderIds"`
	EventID  uint64   `json:"eventId"` // matching pass scheduled for the submission
}

type CancelOrdersRequest struct {
	IDs []string `json:"ids"`
}

type CancelOrdersResponse struct {
	Status string   `json:"status"`
	IDs    []string `json:"ids"`
}

// RangeInfo is the current matchable range of a product
type RangeInfo struct {
	ProductID string        `json:"productId"`
	Ask       matching.Band `json:"ask"`
	Bid       matching.Band `json:"bid"`
}

type StatusInfo struct {
	SimTimeMs     int64  `json:"simTimeMs"`
	PendingOrders int    `json:"pendingOrders"`
	Fills         uint64 `json:"fills"`
	QueuedEvents  int    `json:"queuedEvents"`
	NextEventMs   *int64 `json:"nextEventMs,omitempty"`
	Products      int    `json:"products"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WSSubscribeRequest is sent by clients: {"op":"subscribe","channels":["fills"]}
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

// Stream channels
const (
	ChannelOrders = "orders"
	ChannelFills  = "fills"
)

// StreamMessage is pushed to websocket subscribers
type StreamMessage struct {
	Type      string        `json:"type"` // orders_submitted, orders_cancelled, order_filled
	Orders    []model.Order `json:"orders,omitempty"`
	IDs       []string      `json:"ids,omitempty"`
	SimTimeMs int64         `json:"simTimeMs"`
}
