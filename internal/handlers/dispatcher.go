// Package handlers turns inbound requests into order operations: it checks
// the bearer token, extracts identifiers or the body, routes by verb and
// wraps every outcome in the {detail, data} envelope with CORS headers.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-order-gateway/internal/auth"
	"github.com/imrishuroy/go-order-gateway/internal/idempotency"
	"github.com/imrishuroy/go-order-gateway/internal/orders"
	"github.com/imrishuroy/go-order-gateway/internal/validation"
)

const (
	headerAuthorization  = "Authorization"
	headerIdempotencyKey = "Idempotency-Key"

	paramUserID  = "userid"
	paramOrderID = "orderid"

	internalErrorDetail = "Internal Server Error"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, Authorization, Idempotency-Key",
}

// Operations is the set of order operations the dispatcher routes to.
type Operations interface {
	Create(ctx context.Context, req orders.OrderRequest) orders.OrderResponse
	Read(ctx context.Context, userID, orderID string) orders.OrderResponse
	Update(ctx context.Context, req orders.OrderRequest) orders.OrderResponse
	Delete(ctx context.Context, userID, orderID string) orders.OrderResponse
}

// IdempotencyStore de-duplicates creates. See idempotency.Store.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	MarkDone(ctx context.Context, key, orderID, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

// MetricsRecorder receives one call per dispatched request.
type MetricsRecorder interface {
	RecordRequest(ctx context.Context, operation string, status int, duration time.Duration) error
}

// HandlerConfig groups dependencies for the Dispatcher. Idempotency and
// Metrics are optional.
type HandlerConfig struct {
	Validator   auth.TokenValidator
	Operations  Operations
	Idempotency IdempotencyStore
	Metrics     MetricsRecorder
	Logger      *zap.Logger
}

// Dispatcher is safe for concurrent use; it keeps no per-request state.
type Dispatcher struct {
	tokens   auth.TokenValidator
	ops      Operations
	idem     IdempotencyStore
	metrics  MetricsRecorder
	validate *validatorv10.Validate
	logger   *zap.Logger
}

// NewDispatcher builds a Dispatcher from cfg.
func NewDispatcher(cfg HandlerConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		tokens:   cfg.Validator,
		ops:      cfg.Operations,
		idem:     cfg.Idempotency,
		metrics:  cfg.Metrics,
		validate: validation.New(),
		logger:   logger,
	}
}

// Dispatch handles one request. It never panics and never returns an error:
// every failure is rendered as an enveloped response.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	method := strings.ToUpper(req.Method)

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while dispatching request",
				zap.String("method", method),
				zap.String("path", req.Path),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			resp = d.respond(http.StatusInternalServerError, internalErrorDetail, nil)
		}
		d.record(ctx, method, resp.StatusCode, time.Since(start))
	}()

	if method == http.MethodOptions {
		return preflight()
	}

	if err := d.authenticate(ctx, lookup(req.Headers, headerAuthorization)); err != nil {
		d.logger.Info("request rejected", zap.String("method", method), zap.String("path", req.Path), zap.Error(err))
		return d.respond(http.StatusUnauthorized, "Unauthorized", nil)
	}

	resp, err := d.route(ctx, method, req)
	if err != nil {
		return d.errorResponse(method, req.Path, err)
	}
	return resp
}

func (d *Dispatcher) authenticate(ctx context.Context, header string) error {
	token := auth.StripBearer(header)
	if token == "" {
		return fmt.Errorf("%w: missing bearer token", ErrAuth)
	}
	if !d.tokens.Validate(ctx, token) {
		return fmt.Errorf("%w: invalid token", ErrAuth)
	}
	return nil
}

func (d *Dispatcher) route(ctx context.Context, method string, req Request) (Response, error) {
	switch method {
	case http.MethodGet:
		key, err := d.keyFromRequest(req, false)
		if err != nil {
			return Response{}, err
		}
		return d.fromOutcome(method, d.ops.Read(ctx, key.UserID, key.OrderID)), nil

	case http.MethodPost:
		body, err := d.decodeBody(req.Body)
		if err != nil {
			return Response{}, err
		}
		if err := validation.ValidateCreate(d.validate, body); err != nil {
			return Response{}, validationError(err)
		}
		return d.create(ctx, lookup(req.Headers, headerIdempotencyKey), *body)

	case http.MethodPut:
		body, err := d.decodeBody(req.Body)
		if err != nil {
			return Response{}, err
		}
		if err := validation.ValidateUpdate(d.validate, body); err != nil {
			return Response{}, validationError(err)
		}
		return d.fromOutcome(method, d.ops.Update(ctx, *body)), nil

	case http.MethodDelete:
		key, err := d.keyFromRequest(req, true)
		if err != nil {
			return Response{}, err
		}
		return d.fromOutcome(method, d.ops.Delete(ctx, key.UserID, key.OrderID)), nil
	}

	return Response{}, fmt.Errorf("%w: %s", ErrUnsupportedOperation, method)
}

// keyFromRequest reads the order key. GET prefers query parameters and
// falls back to the body; DELETE prefers the body when one is present.
func (d *Dispatcher) keyFromRequest(req Request, preferBody bool) (validation.OrderKey, error) {
	fromQuery := validation.OrderKey{
		UserID:  lookup(req.QueryParams, paramUserID),
		OrderID: lookup(req.QueryParams, paramOrderID),
	}

	key := fromQuery
	hasBody := strings.TrimSpace(req.Body) != ""
	if hasBody && (preferBody || fromQuery.UserID == "" && fromQuery.OrderID == "") {
		var fromBody validation.OrderKey
		if err := json.Unmarshal([]byte(req.Body), &fromBody); err != nil {
			return validation.OrderKey{}, fmt.Errorf("%w: malformed body: %v", ErrValidation, err)
		}
		key = fromBody
	}

	if err := validation.ValidateKey(d.validate, key.UserID, key.OrderID); err != nil {
		return validation.OrderKey{}, validationError(err)
	}
	return key, nil
}

func (d *Dispatcher) decodeBody(body string) (*orders.OrderRequest, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: request body is required", ErrValidation)
	}
	var req orders.OrderRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return nil, fmt.Errorf("%w: malformed body: %v", ErrValidation, err)
	}
	return &req, nil
}

// create runs Create, de-duplicated through the idempotency store when one
// is configured and the caller sent a key.
func (d *Dispatcher) create(ctx context.Context, key string, body orders.OrderRequest) (Response, error) {
	if d.idem == nil || key == "" {
		return d.fromOutcome(http.MethodPost, d.ops.Create(ctx, body)), nil
	}

	claimed, err := d.idem.Claim(ctx, key)
	if err != nil {
		return Response{}, &StorageError{Err: fmt.Errorf("claim idempotency key: %w", err)}
	}
	if !claimed {
		return d.replay(ctx, key)
	}

	outcome := d.ops.Create(ctx, body)
	resp := d.fromOutcome(http.MethodPost, outcome)

	if outcome.Status == http.StatusOK {
		var orderID string
		if ref, ok := outcome.Data.(orders.OrderRef); ok {
			orderID = ref.OrderID
		}
		err = d.idem.MarkDone(ctx, key, orderID, resp.Body, resp.StatusCode)
	} else {
		err = d.idem.MarkFailed(ctx, key, outcome.Message)
	}
	if err != nil {
		d.logger.Warn("update idempotency record failed", zap.String("idempotency_key", key), zap.Error(err))
	}
	return resp, nil
}

func (d *Dispatcher) replay(ctx context.Context, key string) (Response, error) {
	rec, err := d.idem.Get(ctx, key)
	if err != nil {
		return Response{}, &StorageError{Err: fmt.Errorf("get idempotency record: %w", err)}
	}
	if rec == nil || rec.Status != idempotency.StatusDone {
		return Response{}, fmt.Errorf("%w: %s", ErrConflict, key)
	}

	d.logger.Info("replaying idempotent create", zap.String("idempotency_key", key), zap.String("order_id", rec.OrderID))
	resp := Response{StatusCode: rec.ResponseStatus, Body: rec.ResponseBody, Headers: baseHeaders()}
	resp.Headers["Content-Type"] = "application/json"
	resp.Headers["Idempotent-Replayed"] = "true"
	return resp, nil
}

// fromOutcome maps an operation result straight onto the response.
func (d *Dispatcher) fromOutcome(method string, out orders.OrderResponse) Response {
	if err := outcomeError(out.Status, out.Message); err != nil {
		d.logger.Info("operation did not succeed",
			zap.String("method", method),
			zap.Int("status", out.Status),
			zap.Error(err),
		)
	}
	return d.respond(out.Status, out.Message, out.Data)
}

func (d *Dispatcher) errorResponse(method, path string, err error) Response {
	status := StatusCode(err)
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Error(err),
	}

	switch status {
	case http.StatusBadRequest:
		d.logger.Info("invalid request", fields...)
		var fe fieldErrors
		if errors.As(err, &fe) {
			return d.respond(status, err.Error(), fe.fields)
		}
		return d.respond(status, err.Error(), nil)
	case http.StatusMethodNotAllowed, http.StatusConflict:
		d.logger.Info("request refused", fields...)
		return d.respond(status, err.Error(), nil)
	}

	d.logger.Error("request failed", fields...)
	return d.respond(status, internalErrorDetail, nil)
}

func (d *Dispatcher) respond(status int, detail string, data any) Response {
	body, err := json.Marshal(Envelope{Detail: detail, Data: data})
	if err != nil {
		d.logger.Error("encode response envelope", zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"detail":"` + internalErrorDetail + `","data":null}`)
	}
	headers := baseHeaders()
	headers["Content-Type"] = "application/json"
	return Response{StatusCode: status, Headers: headers, Body: string(body)}
}

func (d *Dispatcher) record(ctx context.Context, method string, status int, elapsed time.Duration) {
	if d.metrics == nil {
		return
	}
	if err := d.metrics.RecordRequest(ctx, operationName(method), status, elapsed); err != nil {
		d.logger.Warn("record request metrics failed", zap.Error(err))
	}
}

func operationName(method string) string {
	switch method {
	case http.MethodGet:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut:
		return "update"
	case http.MethodDelete:
		return "delete"
	case http.MethodOptions:
		return "preflight"
	}
	return "unsupported"
}

func preflight() Response {
	return Response{StatusCode: http.StatusOK, Headers: baseHeaders()}
}

func baseHeaders() map[string]string {
	h := make(map[string]string, len(corsHeaders)+2)
	for k, v := range corsHeaders {
		h[k] = v
	}
	return h
}

// fieldErrors carries per-field validation messages into the 400 envelope.
type fieldErrors struct {
	summary string
	fields  map[string]string
}

func (e fieldErrors) Error() string { return e.summary }
func (e fieldErrors) Unwrap() error { return ErrValidation }

func validationError(err error) error {
	fields := validation.FieldErrors(err)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fieldErrors{
		summary: fmt.Sprintf("%s: %s", ErrValidation, strings.Join(names, ", ")),
		fields:  fields,
	}
}
