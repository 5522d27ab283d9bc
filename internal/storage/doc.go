// Package storage provides SQLite-based persistence for the bakery
// ordering backend.
//
// The storage layer manages:
//   - Products with live stock counts
//   - Orders and their embedded line-item snapshots
//   - Users and login sessions
//
// # Database Schema
//
// Tables:
//   - products: catalog entries (name, price, stock, availability)
//   - orders: order headers keyed by 24-char hex identifiers
//   - order_items: line-item snapshots, one row per product per order
//   - users: registered customers and administrators
//   - sessions: ephemeral login sessions
//
// # Atomic primitives
//
// Order creation and status transitions depend on two conditional updates:
//
//	// Decrement stock only when enough is available
//	err := db.DecrementStock(ctx, productID, qty)
//	if errors.Is(err, storage.ErrInsufficientStock) { ... }
//
//	// Compare-and-swap on the status column
//	changed, err := db.UpdateOrderStatus(ctx, id, types.StatusPending, types.StatusAccepted)
//
// Both are single SQL statements, so concurrent callers cannot interleave
// a read-then-write race.
//
// # Transactions
//
// Order creation wraps its stock decrements, slot allocation reads and the
// order insert in one transaction:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	// ... tx.DecrementStock, tx.SaveOrder ...
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Build Tags
//
// Two driver configurations:
//
//   - Default: modernc.org/sqlite, pure Go, no C compiler needed
//   - sqlite_cgo tag: github.com/mattn/go-sqlite3, CGO build
package storage
