// Package operations implements the four order operations on top of an
// orders.Store. Results are reported as orders.OrderResponse values; storage
// failures never escape as errors.
package operations

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-order-gateway/internal/aws"
	"github.com/imrishuroy/go-order-gateway/internal/orders"
)

// Result messages.
const (
	MsgCreated  = "order created"
	MsgRead     = "order retrieved"
	MsgUpdated  = "order updated"
	MsgDeleted  = "order deleted"
	MsgNotFound = "order not found"
	MsgStorage  = "storage error"
	MsgInternal = "internal server error"
)

// EventPublisher receives an event after every successful write.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev aws.OrderEvent) error
}

// Service runs order operations. It holds no per-request state and is built
// once per process.
type Service struct {
	store   orders.Store
	events  EventPublisher
	logger  *zap.Logger
	nowFunc func() time.Time
	newID   func() string
}

// NewService returns a Service. events may be nil to disable publishing.
func NewService(store orders.Store, events EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		events:  events,
		logger:  logger,
		nowFunc: time.Now,
		newID:   uuid.NewString,
	}
}

// Create stores a new order under a generated id. All lifecycle timestamps
// start at the creation time.
func (s *Service) Create(ctx context.Context, req orders.OrderRequest) orders.OrderResponse {
	now := s.nowFunc().UTC()
	order := orderFromRequest(req)
	order.OrderID = s.newID()
	order.CreatedAt = &now
	order.PaidAt = &now
	order.DeliveryStartedAt = &now
	order.DeliveredAt = &now

	return s.write(ctx, "create", order, aws.EventOrderCreated, MsgCreated)
}

// Update replaces the stored order named by req. It does not check that the
// order exists and keeps whatever timestamps the request carries.
func (s *Service) Update(ctx context.Context, req orders.OrderRequest) orders.OrderResponse {
	return s.write(ctx, "update", orderFromRequest(req), aws.EventOrderUpdated, MsgUpdated)
}

func (s *Service) write(ctx context.Context, op string, order orders.Order, eventType, msg string) orders.OrderResponse {
	status, err := s.store.Put(ctx, orders.ToAttributes(order))
	if resp, failed := s.failure(op, order.UserID, order.OrderID, status, err); failed {
		return resp
	}

	s.publish(ctx, eventType, order.UserID, order.OrderID)
	return orders.OrderResponse{
		Status:  http.StatusOK,
		Message: msg,
		Data:    orders.OrderRef{OrderID: order.OrderID},
	}
}

// Read fetches one order. A missing order is 404 with no data.
func (s *Service) Read(ctx context.Context, userID, orderID string) orders.OrderResponse {
	item, status, err := s.store.Get(ctx, userID, orderID)
	if resp, failed := s.failure("read", userID, orderID, status, err); failed {
		return resp
	}
	if item == nil {
		return orders.OrderResponse{Status: http.StatusNotFound, Message: MsgNotFound}
	}

	order := orders.FromAttributes(item)
	return orders.OrderResponse{Status: http.StatusOK, Message: MsgRead, Data: order}
}

// Delete removes an order. Deleting an order that does not exist succeeds.
func (s *Service) Delete(ctx context.Context, userID, orderID string) orders.OrderResponse {
	status, err := s.store.Delete(ctx, userID, orderID)
	if resp, failed := s.failure("delete", userID, orderID, status, err); failed {
		return resp
	}

	s.publish(ctx, aws.EventOrderDeleted, userID, orderID)
	return orders.OrderResponse{
		Status:  http.StatusOK,
		Message: MsgDeleted,
		Data:    orders.OrderRef{OrderID: orderID},
	}
}

// failure turns a store outcome into a response when it is not a success.
// Backend statuses pass through; anything else becomes a generic 500.
func (s *Service) failure(op, userID, orderID string, status int, err error) (orders.OrderResponse, bool) {
	if err == nil && status == http.StatusOK {
		return orders.OrderResponse{}, false
	}

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("user_id", userID),
		zap.String("order_id", orderID),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status == 0 {
		s.logger.Error("order operation failed", fields...)
		return orders.OrderResponse{Status: http.StatusInternalServerError, Message: MsgInternal}, true
	}
	s.logger.Warn("store returned non-success status", fields...)
	return orders.OrderResponse{Status: status, Message: MsgStorage}, true
}

func (s *Service) publish(ctx context.Context, eventType, userID, orderID string) {
	if s.events == nil {
		return
	}
	ev := aws.OrderEvent{
		Type:       eventType,
		UserID:     userID,
		OrderID:    orderID,
		OccurredAt: s.nowFunc().UTC(),
	}
	if err := s.events.PublishOrderEvent(ctx, ev); err != nil {
		s.logger.Warn("publish order event failed",
			zap.String("event_type", eventType),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

// orderFromRequest copies the request body into an Order. StoreId always
// mirrors PaymentMethod; existing records depend on it.
func orderFromRequest(req orders.OrderRequest) orders.Order {
	items := req.Items
	if items == nil {
		items = []orders.OrderItem{}
	}
	return orders.Order{
		UserID:            req.UserID,
		OrderID:           req.OrderID,
		Address:           req.Address,
		Items:             items,
		TotalAmount:       req.TotalAmount,
		DeliveryRating:    req.DeliveryRating,
		Status:            req.Status,
		TrackingStatus:    req.TrackingStatus,
		PaymentMethod:     req.PaymentMethod,
		StoreID:           req.PaymentMethod,
		Notes:             req.Notes,
		CreatedAt:         req.CreatedAt,
		PaidAt:            req.PaidAt,
		DeliveryStartedAt: req.DeliveryStartedAt,
		DeliveredAt:       req.DeliveredAt,
	}
}
