package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cestlavie/bakery/internal/notify"
	"github.com/cestlavie/bakery/internal/scheduler"
	"github.com/cestlavie/bakery/internal/storage"
	"github.com/cestlavie/bakery/pkg/types"
)

// Config carries the engine's operational knobs.
type Config struct {
	// Window is the daily delivery window used for slot allocation.
	Window scheduler.Window
	// LeadTime is the default delivery lead time when the caller does not
	// supply a delivery date.
	LeadTime time.Duration
	// StorageTimeout bounds every storage operation. An exceeded timeout
	// fails the request with a storage error; the enclosing transaction
	// rolls back, so no half-applied mutation survives.
	StorageTimeout time.Duration
	// AdminEmails are the recipients of new-order alerts. Configured
	// explicitly; the engine makes no single-admin assumption.
	AdminEmails []string
}

// DefaultConfig returns the production defaults: the standard delivery
// window, a 3-day lead time and a 5-second storage timeout.
func DefaultConfig() Config {
	return Config{
		Window:         scheduler.DefaultWindow,
		LeadTime:       3 * 24 * time.Hour,
		StorageTimeout: 5 * time.Second,
	}
}

// Engine orchestrates order creation and lifecycle transitions. All stock
// and status mutation goes through the store's atomic primitives; the
// engine never does read-modify-write of shared state in caller code.
type Engine struct {
	store  storage.Storage
	sink   notify.Sink
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates an engine over the given store and notification sink.
func New(store storage.Storage, sink notify.Sink, cfg Config, logger *slog.Logger) *Engine {
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = 3 * 24 * time.Hour
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, sink: sink, cfg: cfg, logger: logger, now: time.Now}
}

// LineItemRequest is one requested product line in an order submission.
type LineItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest is the order submission payload.
type CreateOrderRequest struct {
	CustomerEmail string           `json:"customerEmail"`
	Comment       string           `json:"comment,omitempty"`
	Items         []LineItemRequest `json:"lineItems"`
	// DeliverDate, when set, is validated against the delivery window and
	// existing slots. When nil the engine packs a slot at the default lead
	// time.
	DeliverDate *time.Time `json:"deliverDate,omitempty"`
}

// CreateOrder runs the order creation workflow: validate line items,
// atomically reserve stock, allocate or validate a delivery slot, persist
// the order, then notify the customer and the admins.
//
// Steps up to persistence run inside a single storage transaction; the
// first failure aborts and rolls everything back. Notifications happen
// after commit and never fail the order.
func (e *Engine) CreateOrder(ctx context.Context, req CreateOrderRequest) (*types.Order, error) {
	if req.CustomerEmail == "" {
		return nil, fmt.Errorf("%w: customer email required", types.ErrValidation)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no line items", types.ErrInvalidLineItem)
	}
	productIDs := make([]int64, len(req.Items))
	for i, item := range req.Items {
		id, err := strconv.ParseInt(item.ProductID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: product id %q is not a number", types.ErrInvalidLineItem, item.ProductID)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for product %s", types.ErrInvalidLineItem, item.ProductID)
		}
		productIDs[i] = id
	}

	sctx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	defer cancel()

	tx, err := e.store.BeginTx(sctx)
	if err != nil {
		return nil, storageErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	order := &types.Order{
		CustomerEmail: req.CustomerEmail,
		Comment:       req.Comment,
		OrderDate:     e.now(),
		Status:        types.StatusPending,
	}

	for i, item := range req.Items {
		product, err := tx.GetProduct(sctx, productIDs[i])
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%w %s", types.ErrProductNotFound, item.ProductID)
			}
			return nil, storageErr(err)
		}
		if err := tx.DecrementStock(sctx, product.ID, item.Quantity); err != nil {
			if errors.Is(err, storage.ErrInsufficientStock) {
				return nil, fmt.Errorf("%w: product %s has %d left, %d requested",
					types.ErrInsufficientStock, item.ProductID, product.Stock, item.Quantity)
			}
			return nil, storageErr(err)
		}
		// Snapshot name and price; later product edits must not change
		// this order's recorded total.
		order.Items = append(order.Items, types.LineItem{
			ProductID: item.ProductID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
		})
	}
	order.TotalPrice = order.ComputeTotal()

	// Slot allocation reads and the order insert share the transaction,
	// so concurrent creations serialize instead of racing for a slot.
	alloc := scheduler.New(tx, e.cfg.Window)
	if req.DeliverDate != nil {
		if err := alloc.Validate(sctx, *req.DeliverDate); err != nil {
			var slotErr *types.SlotError
			if errors.As(err, &slotErr) {
				return nil, err
			}
			return nil, storageErr(err)
		}
		order.DeliverDate = *req.DeliverDate
	} else {
		deliver, err := alloc.Allocate(sctx, order.OrderDate.Add(e.cfg.LeadTime))
		if err != nil {
			return nil, storageErr(err)
		}
		order.DeliverDate = deliver
	}

	if err := tx.SaveOrder(sctx, order); err != nil {
		return nil, storageErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storageErr(err)
	}

	e.notifyOrderCreated(ctx, order)
	return order, nil
}

// Accept moves a pending order to accepted and notifies the customer.
// Returns false without error when the order is already accepted.
func (e *Engine) Accept(ctx context.Context, id string) (bool, error) {
	return e.transition(ctx, id, types.StatusPending, types.StatusAccepted)
}

// Deliver moves an accepted order to delivered and notifies the customer.
// Returns false without error when the order is already delivered.
// Delivered is terminal.
func (e *Engine) Deliver(ctx context.Context, id string) (bool, error) {
	return e.transition(ctx, id, types.StatusAccepted, types.StatusDelivered)
}

func (e *Engine) transition(ctx context.Context, id string, from, to types.OrderStatus) (bool, error) {
	oid, err := types.ParseOrderID(id)
	if err != nil {
		return false, err
	}

	sctx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	defer cancel()

	// Compare-and-swap on the expected predecessor status. A concurrent
	// identical transition loses the swap and reports a clean no-op, so
	// the customer is notified exactly once.
	changed, err := e.store.UpdateOrderStatus(sctx, oid, from, to)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, types.ErrOrderNotFound
		}
		return false, storageErr(err)
	}
	if !changed {
		order, err := e.store.GetOrder(sctx, oid)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return false, types.ErrOrderNotFound
			}
			return false, storageErr(err)
		}
		if order.Status == to {
			// Same-state call: a no-op, not an error.
			return false, nil
		}
		return false, fmt.Errorf("%w: cannot move order from %s to %s", types.ErrConflict, order.Status, to)
	}

	order, err := e.store.GetOrder(sctx, oid)
	if err != nil {
		// The transition is committed; a failed re-read only costs the
		// notification detail.
		e.logger.ErrorContext(ctx, "failed to load order after transition", "order", oid, "error", err)
		return true, nil
	}
	e.notifyStatusChanged(ctx, order)
	return true, nil
}

// Update overwrites all mutable fields of an order without re-validating
// stock or recomputing the total. Trusted-admin bulk edit.
func (e *Engine) Update(ctx context.Context, id string, replacement *types.Order) error {
	oid, err := types.ParseOrderID(id)
	if err != nil {
		return err
	}
	if !replacement.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", types.ErrValidation, replacement.Status)
	}

	sctx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	defer cancel()

	replacement.ID = oid
	if err := e.store.UpdateOrder(sctx, replacement); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.ErrOrderNotFound
		}
		return storageErr(err)
	}
	return nil
}

// Delete removes an order outright. No stock restoration, no cascading
// checks.
func (e *Engine) Delete(ctx context.Context, id string) error {
	oid, err := types.ParseOrderID(id)
	if err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	defer cancel()

	if err := e.store.DeleteOrder(sctx, oid); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.ErrOrderNotFound
		}
		return storageErr(err)
	}
	return nil
}

// GetOrderByID loads one order and refreshes each line item's display name
// from the live product. Best-effort: a product that has since been deleted
// leaves the name blank, never fails the read.
func (e *Engine) GetOrderByID(ctx context.Context, id string) (*types.Order, error) {
	oid, err := types.ParseOrderID(id)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	defer cancel()

	order, err := e.store.GetOrder(sctx, oid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.ErrOrderNotFound
		}
		return nil, storageErr(err)
	}
	for i := range order.Items {
		pid, err := strconv.ParseInt(order.Items[i].ProductID, 10, 64)
		if err != nil {
			order.Items[i].Name = ""
			continue
		}
		product, err := e.store.GetProduct(sctx, pid)
		if err != nil {
			order.Items[i].Name = ""
			continue
		}
		order.Items[i].Name = product.Name
	}
	return order, nil
}

// GetOrdersByUser lists a customer's orders.
func (e *Engine) GetOrdersByUser(ctx context.Context, email string) ([]*types.Order, error) {
	sctx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	defer cancel()

	orders, err := e.store.ListOrdersByUser(sctx, email)
	if err != nil {
		return nil, storageErr(err)
	}
	return orders, nil
}

// GetOrdersByDay lists orders delivering within one local calendar day.
func (e *Engine) GetOrdersByDay(ctx context.Context, day time.Time) ([]*types.Order, error) {
	sctx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	defer cancel()

	orders, err := e.store.ListOrdersByDay(sctx, day)
	if err != nil {
		return nil, storageErr(err)
	}
	return orders, nil
}

// GetAllOrders lists every order.
func (e *Engine) GetAllOrders(ctx context.Context) ([]*types.Order, error) {
	sctx, cancel := context.WithTimeout(ctx, e.cfg.StorageTimeout)
	defer cancel()

	orders, err := e.store.ListOrders(sctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return orders, nil
}

// storageErr wraps any unclassified persistence failure, including
// timeouts, in the storage error category.
func storageErr(err error) error {
	return fmt.Errorf("%w: %v", types.ErrStorage, err)
}

func (e *Engine) notifyOrderCreated(ctx context.Context, order *types.Order) {
	name := e.customerName(ctx, order.CustomerEmail)
	subject, body := customerOrderCreated(name, order)
	e.send(ctx, order.CustomerEmail, subject, body)

	adminSubject, adminBody := adminOrderCreated(name, order)
	for _, admin := range e.cfg.AdminEmails {
		e.send(ctx, admin, adminSubject, adminBody)
	}
}

func (e *Engine) notifyStatusChanged(ctx context.Context, order *types.Order) {
	name := e.customerName(ctx, order.CustomerEmail)
	var subject, body string
	switch order.Status {
	case types.StatusAccepted:
		subject, body = customerOrderAccepted(name, order)
	case types.StatusDelivered:
		subject, body = customerOrderDelivered(name)
	default:
		return
	}
	e.send(ctx, order.CustomerEmail, subject, body)
}

// customerName resolves the display name for the greeting; falls back to
// the email address for unregistered customers.
func (e *Engine) customerName(ctx context.Context, email string) string {
	user, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		return email
	}
	return user.Name
}

// send is fire-and-forget, at-most-once: a failure is logged and swallowed,
// never retried, never rolled back into the order operation.
func (e *Engine) send(ctx context.Context, to, subject, body string) {
	if err := e.sink.Send(ctx, to, subject, body); err != nil {
		e.logger.ErrorContext(ctx, "notification failed",
			"to", to,
			"subject", subject,
			"error", fmt.Errorf("%w: %v", types.ErrNotification, err),
		)
	}
}
