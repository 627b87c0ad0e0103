package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"kycut-bot/internal/httpapi"
	"kycut-bot/internal/model"
)

// ErrOrderNotFound is returned when no order matches the given id or
// order number.
var ErrOrderNotFound = errors.New("order not found in your account")

// OrdersPerPage is the client-side page size; the website returns the
// full list and the bot paginates in memory.
const OrdersPerPage = 5

// Order status values the bot forwards to the website.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// OrderService reads and updates orders through the website API.
type OrderService struct {
	api *httpapi.Client
}

func NewOrderService(api *httpapi.Client) *OrderService {
	return &OrderService{api: api}
}

type ordersResponse struct {
	Orders []model.Order `json:"orders"`
}

// List fetches every order for the session's user. A session with a
// bot token queries the user-scoped endpoint; otherwise the lookup
// goes by Telegram id under the shared secret.
func (s *OrderService) List(ctx context.Context, sess model.Session) ([]model.Order, error) {
	req := httpapi.Request{Endpoint: httpapi.EndpointOrdersUser, Method: "GET", Bearer: sess.BotToken}
	if sess.BotToken == "" {
		req = httpapi.Request{
			Endpoint: httpapi.EndpointOrdersByID,
			Method:   "GET",
			Query:    url.Values{"telegram_user_id": {strconv.FormatInt(sess.TelegramUserID, 10)}},
		}
	}

	res := s.api.Do(ctx, req)
	if !res.Success {
		return nil, fmt.Errorf("%s", res.Error)
	}

	var payload ordersResponse
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Orders, nil
}

// Find fetches the order list and linearly searches for a matching id
// or order number.
func (s *OrderService) Find(ctx context.Context, sess model.Session, orderID string) (model.Order, error) {
	orders, err := s.List(ctx, sess)
	if err != nil {
		return model.Order{}, err
	}
	for _, order := range orders {
		if order.ID == orderID || order.OrderNumber == orderID {
			return order, nil
		}
	}
	return model.Order{}, ErrOrderNotFound
}

type statusPayload struct {
	Status         string `json:"status"`
	TelegramUserID int64  `json:"telegram_user_id"`
	UpdatedVia     string `json:"updated_via"`
}

type statusResponse struct {
	Order model.Order `json:"order"`
}

// UpdateStatus forwards a confirm/cancel transition to the website and
// returns the order view from the response when present.
func (s *OrderService) UpdateStatus(ctx context.Context, sess model.Session, orderID, status string) (model.Order, error) {
	res := s.api.Do(ctx, httpapi.Request{
		Endpoint: httpapi.EndpointOrderStatus,
		Method:   "PATCH",
		OrderID:  orderID,
		Bearer:   sess.BotToken,
		Body: statusPayload{
			Status:         status,
			TelegramUserID: sess.TelegramUserID,
			UpdatedVia:     "telegram_bot",
		},
	})
	if !res.Success {
		return model.Order{}, fmt.Errorf("%s", res.Error)
	}

	var payload statusResponse
	if err := res.Decode(&payload); err != nil {
		// Some deployments return only {"success": true}; the caller
		// already knows the id and status.
		return model.Order{ID: orderID, Status: status}, nil
	}
	if payload.Order.ID == "" {
		payload.Order.ID = orderID
	}
	if payload.Order.Status == "" {
		payload.Order.Status = status
	}
	return payload.Order, nil
}

type statsResponse struct {
	Stats model.OrderStats `json:"stats"`
}

// RemoteStats fetches server-computed order statistics.
func (s *OrderService) RemoteStats(ctx context.Context, sess model.Session) (model.OrderStats, error) {
	res := s.api.Do(ctx, httpapi.Request{
		Endpoint: httpapi.EndpointOrdersStats,
		Method:   "GET",
		Bearer:   sess.BotToken,
	})
	if !res.Success {
		return model.OrderStats{}, fmt.Errorf("%s", res.Error)
	}

	var payload statsResponse
	if err := res.Decode(&payload); err != nil {
		return model.OrderStats{}, err
	}
	return payload.Stats, nil
}

// Paginate slices the order list into the requested page and returns
// the page contents, the page actually shown (out-of-range requests
// are clamped), and the total page count.
func Paginate(orders []model.Order, page int) ([]model.Order, int, int) {
	if len(orders) == 0 {
		return nil, 0, 0
	}
	totalPages := (len(orders) + OrdersPerPage - 1) / OrdersPerPage
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}
	start := page * OrdersPerPage
	end := start + OrdersPerPage
	if end > len(orders) {
		end = len(orders)
	}
	return orders[start:end], page, totalPages
}

// Summary is the locally computed fallback for order statistics.
type Summary struct {
	Count      int
	TotalSpent float64
	Pending    int
	Completed  int
}

// Summarize aggregates a fetched order list.
func Summarize(orders []model.Order) Summary {
	var sum Summary
	sum.Count = len(orders)
	for _, order := range orders {
		sum.TotalSpent += order.TotalAmount
		switch strings.ToLower(order.Status) {
		case "pending":
			sum.Pending++
		case "delivered", "completed":
			sum.Completed++
		}
	}
	return sum
}
