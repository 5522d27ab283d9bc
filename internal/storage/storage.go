package storage

import (
	"context"
	"time"

	"github.com/cestlavie/bakery/pkg/types"
)

// Storage defines the persistence interface consumed by the order engine,
// the catalog and the auth service.
//
// The mutation primitives the engine relies on are atomic at this level:
// DecrementStock is a conditional update that never drives stock negative,
// and UpdateOrderStatus is a compare-and-swap on the current status. Callers
// never do read-modify-write on stock or status themselves.
type Storage interface {
	// Product operations
	CreateProduct(ctx context.Context, product *types.Product) error
	GetProduct(ctx context.Context, id int64) (*types.Product, error)
	GetProductByName(ctx context.Context, name string) (*types.Product, error)
	ListProducts(ctx context.Context) ([]*types.Product, error)
	UpdateProduct(ctx context.Context, product *types.Product) error
	// SetProductStock sets an absolute stock count and recomputes the
	// availability string server-side.
	SetProductStock(ctx context.Context, id int64, stock int) error
	// DecrementStock atomically decrements stock by qty only if at least
	// qty is available. Returns ErrInsufficientStock otherwise.
	DecrementStock(ctx context.Context, id int64, qty int) error
	DeleteProduct(ctx context.Context, id int64) error

	// Order operations
	SaveOrder(ctx context.Context, order *types.Order) error
	GetOrder(ctx context.Context, id string) (*types.Order, error)
	ListOrders(ctx context.Context) ([]*types.Order, error)
	ListOrdersByUser(ctx context.Context, email string) ([]*types.Order, error)
	// ListOrdersByDay returns orders whose delivery timestamp falls within
	// the full local calendar day containing day.
	ListOrdersByDay(ctx context.Context, day time.Time) ([]*types.Order, error)
	// LatestDeliveryDate returns the globally latest delivery timestamp
	// across all orders, any status. ok is false when no orders exist.
	LatestDeliveryDate(ctx context.Context) (t time.Time, ok bool, err error)
	// DeliveryDateTaken reports whether any order already has exactly this
	// delivery timestamp.
	DeliveryDateTaken(ctx context.Context, t time.Time) (bool, error)
	UpdateOrder(ctx context.Context, order *types.Order) error
	// UpdateOrderStatus transitions id from the expected current status to
	// the new one. Returns changed=false without error when the current
	// status no longer matches from.
	UpdateOrderStatus(ctx context.Context, id string, from, to types.OrderStatus) (changed bool, err error)
	DeleteOrder(ctx context.Context, id string) error

	// User operations
	CreateUser(ctx context.Context, user *types.User) error
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUserByID(ctx context.Context, id int64) (*types.User, error)
	// VerifyUser marks the user holding this verification token as
	// verified and clears the token.
	VerifyUser(ctx context.Context, token string) (*types.User, error)

	// Session operations
	CreateSession(ctx context.Context, session *types.Session) error
	GetSession(ctx context.Context, token string) (*types.Session, error)
	DeleteSession(ctx context.Context, token string) error

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}
