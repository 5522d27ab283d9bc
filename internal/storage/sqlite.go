package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cestlavie/bakery/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
	// ErrInsufficientStock is returned when a conditional stock decrement
	// finds less stock than requested
	ErrInsufficientStock = errors.New("insufficient stock")
)

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// Both supported drivers surface the constraint name in the message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single writer keeps the read-allocate-insert sequence inside an
	// order-creation transaction serialized.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Product operations

func (s *SQLiteStorage) createProductWithQuerier(ctx context.Context, q querier, product *types.Product) error {
	query := `
		INSERT INTO products (name, description, ingredients, price, stock, image, availability, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	product.Availability = types.AvailabilityFor(product.Stock)
	result, err := q.ExecContext(ctx, query,
		product.Name, product.Description, product.Ingredients,
		product.Price.String(), product.Stock, product.Image,
		string(product.Availability), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product %q: %w", product.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	product.ID = id
	product.CreatedAt = now
	product.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateProduct(ctx context.Context, product *types.Product) error {
	return s.createProductWithQuerier(ctx, s.querier(), product)
}

const productColumns = `id, name, description, ingredients, price, stock, image, availability, created_at, updated_at`

func scanProduct(row *sql.Row) (*types.Product, error) {
	var p types.Product
	var price, availability string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Ingredients,
		&price, &p.Stock, &p.Image, &availability, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid stored price %q: %w", price, err)
	}
	p.Availability = types.Availability(availability)
	return &p, nil
}

func (s *SQLiteStorage) getProductWithQuerier(ctx context.Context, q querier, id int64) (*types.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	return scanProduct(q.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStorage) GetProduct(ctx context.Context, id int64) (*types.Product, error) {
	return s.getProductWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStorage) getProductByNameWithQuerier(ctx context.Context, q querier, name string) (*types.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE name = ?`
	return scanProduct(q.QueryRowContext(ctx, query, name))
}

func (s *SQLiteStorage) GetProductByName(ctx context.Context, name string) (*types.Product, error) {
	return s.getProductByNameWithQuerier(ctx, s.querier(), name)
}

func (s *SQLiteStorage) listProductsWithQuerier(ctx context.Context, q querier) ([]*types.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []*types.Product
	for rows.Next() {
		var p types.Product
		var price, availability string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Ingredients,
			&price, &p.Stock, &p.Image, &availability, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid stored price %q: %w", price, err)
		}
		p.Availability = types.Availability(availability)
		products = append(products, &p)
	}
	return products, rows.Err()
}

func (s *SQLiteStorage) ListProducts(ctx context.Context) ([]*types.Product, error) {
	return s.listProductsWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) updateProductWithQuerier(ctx context.Context, q querier, product *types.Product) error {
	query := `
		UPDATE products
		SET name = ?, description = ?, ingredients = ?, price = ?, stock = ?, image = ?, availability = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	product.Availability = types.AvailabilityFor(product.Stock)
	result, err := q.ExecContext(ctx, query,
		product.Name, product.Description, product.Ingredients,
		product.Price.String(), product.Stock, product.Image,
		string(product.Availability), now, product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	product.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateProduct(ctx context.Context, product *types.Product) error {
	return s.updateProductWithQuerier(ctx, s.querier(), product)
}

func (s *SQLiteStorage) setProductStockWithQuerier(ctx context.Context, q querier, id int64, stock int) error {
	query := `UPDATE products SET stock = ?, availability = ?, updated_at = ? WHERE id = ?`
	result, err := q.ExecContext(ctx, query, stock, string(types.AvailabilityFor(stock)), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set product stock: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) SetProductStock(ctx context.Context, id int64, stock int) error {
	return s.setProductStockWithQuerier(ctx, s.querier(), id, stock)
}

// decrementStockWithQuerier is the conditional decrement backing order
// creation. The stock check and the write are a single statement, so two
// concurrent orders can never both take the last unit.
func (s *SQLiteStorage) decrementStockWithQuerier(ctx context.Context, q querier, id int64, qty int) error {
	query := `
		UPDATE products
		SET stock = stock - ?,
		    availability = CASE WHEN stock - ? > 0 THEN 'available' ELSE 'out of stock' END,
		    updated_at = ?
		WHERE id = ? AND stock >= ?
	`
	result, err := q.ExecContext(ctx, query, qty, qty, time.Now(), id, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing product from a short stock.
		if _, err := s.getProductWithQuerier(ctx, q, id); err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}

func (s *SQLiteStorage) DecrementStock(ctx context.Context, id int64, qty int) error {
	return s.decrementStockWithQuerier(ctx, s.querier(), id, qty)
}

func (s *SQLiteStorage) deleteProductWithQuerier(ctx context.Context, q querier, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteProduct(ctx context.Context, id int64) error {
	return s.deleteProductWithQuerier(ctx, s.querier(), id)
}

// Order operations

func (s *SQLiteStorage) saveOrderWithQuerier(ctx context.Context, q querier, order *types.Order) error {
	if order.ID == "" {
		order.ID = types.NewOrderID()
	}
	if len(order.Items) == 0 {
		return fmt.Errorf("order has no line items")
	}
	now := time.Now()
	query := `
		INSERT INTO orders (id, customer_email, comment, total_price, order_date, deliver_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		order.ID, order.CustomerEmail, order.Comment, order.TotalPrice.String(),
		order.OrderDate.Unix(), order.DeliverDate.Unix(), string(order.Status), now, now)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	if err := s.insertOrderItems(ctx, q, order.ID, order.Items); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStorage) insertOrderItems(ctx context.Context, q querier, orderID string, items []types.LineItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, name, unit_price, quantity)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, li := range items {
		if _, err := q.ExecContext(ctx, query, orderID, li.ProductID, li.Name, li.UnitPrice.String(), li.Quantity); err != nil {
			return fmt.Errorf("failed to save line item %s: %w", li.ProductID, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) loadOrderItems(ctx context.Context, q querier, orderID string) ([]types.LineItem, error) {
	query := `SELECT product_id, name, unit_price, quantity FROM order_items WHERE order_id = ? ORDER BY product_id`
	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []types.LineItem
	for rows.Next() {
		var li types.LineItem
		var price string
		if err := rows.Scan(&li.ProductID, &li.Name, &price, &li.Quantity); err != nil {
			return nil, err
		}
		li.UnitPrice, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid stored unit price %q: %w", price, err)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

const orderColumns = `id, customer_email, comment, total_price, order_date, deliver_date, status`

func scanOrderRow(scan func(dest ...interface{}) error) (*types.Order, error) {
	var o types.Order
	var total, status string
	var orderDate, deliverDate int64
	err := scan(&o.ID, &o.CustomerEmail, &o.Comment, &total, &orderDate, &deliverDate, &status)
	if err != nil {
		return nil, err
	}
	o.TotalPrice, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("invalid stored total %q: %w", total, err)
	}
	o.OrderDate = time.Unix(orderDate, 0)
	o.DeliverDate = time.Unix(deliverDate, 0)
	o.Status = types.OrderStatus(status)
	return &o, nil
}

func (s *SQLiteStorage) getOrderWithQuerier(ctx context.Context, q querier, id string) (*types.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	order, err := scanOrderRow(q.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	order.Items, err = s.loadOrderItems(ctx, q, order.ID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *SQLiteStorage) GetOrder(ctx context.Context, id string) (*types.Order, error) {
	return s.getOrderWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStorage) listOrdersQuery(ctx context.Context, q querier, where string, args ...interface{}) ([]*types.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ` + where
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []*types.Order
	for rows.Next() {
		order, err := scanOrderRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, order := range orders {
		order.Items, err = s.loadOrderItems(ctx, q, order.ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *SQLiteStorage) ListOrders(ctx context.Context) ([]*types.Order, error) {
	return s.listOrdersQuery(ctx, s.querier(), `ORDER BY order_date`)
}

func (s *SQLiteStorage) ListOrdersByUser(ctx context.Context, email string) ([]*types.Order, error) {
	return s.listOrdersQuery(ctx, s.querier(), `WHERE customer_email = ? ORDER BY order_date`, email)
}

func (s *SQLiteStorage) listOrdersByDayWithQuerier(ctx context.Context, q querier, day time.Time) ([]*types.Order, error) {
	// Full local calendar day, inclusive of both bounds' times.
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	return s.listOrdersQuery(ctx, q, `WHERE deliver_date >= ? AND deliver_date < ? ORDER BY deliver_date`, start.Unix(), end.Unix())
}

func (s *SQLiteStorage) ListOrdersByDay(ctx context.Context, day time.Time) ([]*types.Order, error) {
	return s.listOrdersByDayWithQuerier(ctx, s.querier(), day)
}

func (s *SQLiteStorage) latestDeliveryDateWithQuerier(ctx context.Context, q querier) (time.Time, bool, error) {
	var unix int64
	err := q.QueryRowContext(ctx, `SELECT deliver_date FROM orders ORDER BY deliver_date DESC LIMIT 1`).Scan(&unix)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to find latest delivery date: %w", err)
	}
	return time.Unix(unix, 0), true, nil
}

func (s *SQLiteStorage) LatestDeliveryDate(ctx context.Context) (time.Time, bool, error) {
	return s.latestDeliveryDateWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) deliveryDateTakenWithQuerier(ctx context.Context, q querier, t time.Time) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE deliver_date = ?`, t.Unix()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check delivery date: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStorage) DeliveryDateTaken(ctx context.Context, t time.Time) (bool, error) {
	return s.deliveryDateTakenWithQuerier(ctx, s.querier(), t)
}

// updateOrderWithQuerier overwrites all mutable fields of an order,
// replacing its line items wholesale. The trusted-admin bulk edit.
func (s *SQLiteStorage) updateOrderWithQuerier(ctx context.Context, q querier, order *types.Order) error {
	query := `
		UPDATE orders
		SET customer_email = ?, comment = ?, total_price = ?, order_date = ?, deliver_date = ?, status = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query,
		order.CustomerEmail, order.Comment, order.TotalPrice.String(),
		order.OrderDate.Unix(), order.DeliverDate.Unix(), string(order.Status), time.Now(), order.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, order.ID); err != nil {
		return fmt.Errorf("failed to replace line items: %w", err)
	}
	return s.insertOrderItems(ctx, q, order.ID, order.Items)
}

func (s *SQLiteStorage) UpdateOrder(ctx context.Context, order *types.Order) error {
	return s.updateOrderWithQuerier(ctx, s.querier(), order)
}

// updateOrderStatusWithQuerier is a compare-and-swap on the status column.
// A concurrent transition loses the race cleanly: zero rows match and
// changed comes back false.
func (s *SQLiteStorage) updateOrderStatusWithQuerier(ctx context.Context, q querier, id string, from, to types.OrderStatus) (bool, error) {
	query := `UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := q.ExecContext(ctx, query, string(to), time.Now(), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Either the order is gone or its status moved under us.
		var current string
		err := q.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return false, ErrNotFound
		}
		if err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *SQLiteStorage) UpdateOrderStatus(ctx context.Context, id string, from, to types.OrderStatus) (bool, error) {
	return s.updateOrderStatusWithQuerier(ctx, s.querier(), id, from, to)
}

func (s *SQLiteStorage) deleteOrderWithQuerier(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteOrder(ctx context.Context, id string) error {
	return s.deleteOrderWithQuerier(ctx, s.querier(), id)
}

// User operations

func (s *SQLiteStorage) createUserWithQuerier(ctx context.Context, q querier, user *types.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, phone, role, verification, verification_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	var token sql.NullString
	if user.VerificationToken != "" {
		token = sql.NullString{String: user.VerificationToken, Valid: true}
	}
	result, err := q.ExecContext(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.Phone,
		string(user.Role), string(user.Verification), token, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Email, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	user.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateUser(ctx context.Context, user *types.User) error {
	return s.createUserWithQuerier(ctx, s.querier(), user)
}

const userColumns = `id, name, email, password_hash, phone, role, verification, verification_token, created_at`

func scanUser(row *sql.Row) (*types.User, error) {
	var u types.User
	var role, verification string
	var phone, token sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &phone, &role, &verification, &token, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Phone = phone.String
	u.Role = types.Role(role)
	u.Verification = types.VerificationStatus(verification)
	u.VerificationToken = token.String
	return &u, nil
}

func (s *SQLiteStorage) getUserByEmailWithQuerier(ctx context.Context, q querier, email string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(q.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return s.getUserByEmailWithQuerier(ctx, s.querier(), email)
}

func (s *SQLiteStorage) getUserByIDWithQuerier(ctx context.Context, q querier, id int64) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(q.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStorage) GetUserByID(ctx context.Context, id int64) (*types.User, error) {
	return s.getUserByIDWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStorage) verifyUserWithQuerier(ctx context.Context, q querier, token string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE verification_token = ?`
	user, err := scanUser(q.QueryRowContext(ctx, query, token))
	if err != nil {
		return nil, err
	}
	update := `UPDATE users SET verification = ?, verification_token = NULL WHERE id = ?`
	if _, err := q.ExecContext(ctx, update, string(types.VerificationVerified), user.ID); err != nil {
		return nil, fmt.Errorf("failed to verify user: %w", err)
	}
	user.Verification = types.VerificationVerified
	user.VerificationToken = ""
	return user, nil
}

func (s *SQLiteStorage) VerifyUser(ctx context.Context, token string) (*types.User, error) {
	return s.verifyUserWithQuerier(ctx, s.querier(), token)
}

// Session operations

func (s *SQLiteStorage) createSessionWithQuerier(ctx context.Context, q querier, session *types.Session) error {
	query := `INSERT INTO sessions (token, user_id, created_at) VALUES (?, ?, ?)`
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if _, err := q.ExecContext(ctx, query, session.Token, session.UserID, session.CreatedAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CreateSession(ctx context.Context, session *types.Session) error {
	return s.createSessionWithQuerier(ctx, s.querier(), session)
}

func (s *SQLiteStorage) getSessionWithQuerier(ctx context.Context, q querier, token string) (*types.Session, error) {
	var sess types.Session
	err := q.QueryRowContext(ctx, `SELECT token, user_id, created_at FROM sessions WHERE token = ?`, token).
		Scan(&sess.Token, &sess.UserID, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SQLiteStorage) GetSession(ctx context.Context, token string) (*types.Session, error) {
	return s.getSessionWithQuerier(ctx, s.querier(), token)
}

func (s *SQLiteStorage) deleteSessionWithQuerier(ctx context.Context, q querier, token string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteSession(ctx context.Context, token string) error {
	return s.deleteSessionWithQuerier(ctx, s.querier(), token)
}

func (s *SQLiteStorage) SaveOrder(ctx context.Context, order *types.Order) error {
	return s.saveOrderWithQuerier(ctx, s.querier(), order)
}

// Transaction method implementations (forward to storage with tx querier)

func (t *sqliteTx) CreateProduct(ctx context.Context, product *types.Product) error {
	return t.storage.createProductWithQuerier(ctx, t.tx, product)
}

func (t *sqliteTx) GetProduct(ctx context.Context, id int64) (*types.Product, error) {
	return t.storage.getProductWithQuerier(ctx, t.tx, id)
}

func (t *sqliteTx) GetProductByName(ctx context.Context, name string) (*types.Product, error) {
	return t.storage.getProductByNameWithQuerier(ctx, t.tx, name)
}

func (t *sqliteTx) ListProducts(ctx context.Context) ([]*types.Product, error) {
	return t.storage.listProductsWithQuerier(ctx, t.tx)
}

func (t *sqliteTx) UpdateProduct(ctx context.Context, product *types.Product) error {
	return t.storage.updateProductWithQuerier(ctx, t.tx, product)
}

func (t *sqliteTx) SetProductStock(ctx context.Context, id int64, stock int) error {
	return t.storage.setProductStockWithQuerier(ctx, t.tx, id, stock)
}

func (t *sqliteTx) DecrementStock(ctx context.Context, id int64, qty int) error {
	return t.storage.decrementStockWithQuerier(ctx, t.tx, id, qty)
}

func (t *sqliteTx) DeleteProduct(ctx context.Context, id int64) error {
	return t.storage.deleteProductWithQuerier(ctx, t.tx, id)
}

func (t *sqliteTx) SaveOrder(ctx context.Context, order *types.Order) error {
	return t.storage.saveOrderWithQuerier(ctx, t.tx, order)
}

func (t *sqliteTx) GetOrder(ctx context.Context, id string) (*types.Order, error) {
	return t.storage.getOrderWithQuerier(ctx, t.tx, id)
}

func (t *sqliteTx) ListOrders(ctx context.Context) ([]*types.Order, error) {
	return t.storage.listOrdersQuery(ctx, t.tx, `ORDER BY order_date`)
}

func (t *sqliteTx) ListOrdersByUser(ctx context.Context, email string) ([]*types.Order, error) {
	return t.storage.listOrdersQuery(ctx, t.tx, `WHERE customer_email = ? ORDER BY order_date`, email)
}

func (t *sqliteTx) ListOrdersByDay(ctx context.Context, day time.Time) ([]*types.Order, error) {
	return t.storage.listOrdersByDayWithQuerier(ctx, t.tx, day)
}

func (t *sqliteTx) LatestDeliveryDate(ctx context.Context) (time.Time, bool, error) {
	return t.storage.latestDeliveryDateWithQuerier(ctx, t.tx)
}

func (t *sqliteTx) DeliveryDateTaken(ctx context.Context, at time.Time) (bool, error) {
	return t.storage.deliveryDateTakenWithQuerier(ctx, t.tx, at)
}

func (t *sqliteTx) UpdateOrder(ctx context.Context, order *types.Order) error {
	return t.storage.updateOrderWithQuerier(ctx, t.tx, order)
}

func (t *sqliteTx) UpdateOrderStatus(ctx context.Context, id string, from, to types.OrderStatus) (bool, error) {
	return t.storage.updateOrderStatusWithQuerier(ctx, t.tx, id, from, to)
}

func (t *sqliteTx) DeleteOrder(ctx context.Context, id string) error {
	return t.storage.deleteOrderWithQuerier(ctx, t.tx, id)
}

func (t *sqliteTx) CreateUser(ctx context.Context, user *types.User) error {
	return t.storage.createUserWithQuerier(ctx, t.tx, user)
}

func (t *sqliteTx) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return t.storage.getUserByEmailWithQuerier(ctx, t.tx, email)
}

func (t *sqliteTx) GetUserByID(ctx context.Context, id int64) (*types.User, error) {
	return t.storage.getUserByIDWithQuerier(ctx, t.tx, id)
}

func (t *sqliteTx) VerifyUser(ctx context.Context, token string) (*types.User, error) {
	return t.storage.verifyUserWithQuerier(ctx, t.tx, token)
}

func (t *sqliteTx) CreateSession(ctx context.Context, session *types.Session) error {
	return t.storage.createSessionWithQuerier(ctx, t.tx, session)
}

func (t *sqliteTx) GetSession(ctx context.Context, token string) (*types.Session, error) {
	return t.storage.getSessionWithQuerier(ctx, t.tx, token)
}

func (t *sqliteTx) DeleteSession(ctx context.Context, token string) error {
	return t.storage.deleteSessionWithQuerier(ctx, t.tx, token)
}

func (t *sqliteTx) Close() error {
	// Closing is the owning storage's responsibility
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}
