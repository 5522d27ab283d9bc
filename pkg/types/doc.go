// Package types provides shared domain types for the bakery ordering backend.
//
// It defines the persistent records (Product, Order, User, Session), the
// order status machine, and the error taxonomy used across the engine,
// storage and HTTP layers.
//
// # Error taxonomy
//
// Errors are organized in two levels: broad categories (ErrValidation,
// ErrNotFound, ErrConflict, ErrStorage, ErrNotification) and leaf errors
// wrapping them (ErrInsufficientStock, ErrInvalidOrderID, ...). Callers
// probe with errors.Is against whichever level they care about:
//
//	if errors.Is(err, types.ErrConflict) {
//	    // 409 for the generic surface, 400 on order creation
//	}
//
// Delivery slot rejections carry a suggested alternative:
//
//	var slotErr *types.SlotError
//	if errors.As(err, &slotErr) {
//	    retryAt := slotErr.Suggested
//	}
//
// # Money
//
// Prices and totals use shopspring/decimal and are stored as text. An
// order's TotalPrice is a snapshot: it is computed once at creation from
// the embedded line items and never recomputed from live product prices.
package types
