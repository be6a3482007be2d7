package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &UnknownProductError{ProductID: id}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// GetWarehouseByID retrieves a warehouse by ID
func (s *Store) GetWarehouseByID(ctx context.Context, id string) (*models.Warehouse, error) {
	var wh models.Warehouse
	err := s.db.GetContext(ctx, &wh, "SELECT * FROM warehouses WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &UnknownLocationError{LocationID: id}
	}
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

// GetWarehouses retrieves all warehouses
func (s *Store) GetWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	var warehouses []models.Warehouse
	err := s.db.SelectContext(ctx, &warehouses, "SELECT * FROM warehouses ORDER BY name")
	return warehouses, err
}

// GetLedgerEntry retrieves a single ledger row
func (s *Store) GetLedgerEntry(ctx context.Context, productID, locationID string) (*models.StockLedgerEntry, error) {
	var entry models.StockLedgerEntry
	err := s.db.GetContext(ctx, &entry,
		"SELECT * FROM stock_ledger WHERE product_id = $1 AND location_id = $2",
		productID, locationID)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetAllLedgerEntries retrieves every ledger row, used for cache warming
func (s *Store) GetAllLedgerEntries(ctx context.Context) ([]models.StockLedgerEntry, error) {
	var entries []models.StockLedgerEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM stock_ledger ORDER BY product_id, location_id")
	return entries, err
}

// GetProductStock retrieves per-location stock levels for a product
func (s *Store) GetProductStock(ctx context.Context, productID string) ([]models.ProductStock, error) {
	var stock []models.ProductStock
	err := s.db.SelectContext(ctx, &stock, `
		SELECT
			l.product_id, l.location_id, w.name AS location_name,
			l.quantity_on_hand, l.quantity_reserved,
			l.quantity_on_hand - l.quantity_reserved AS available,
			l.last_updated
		FROM stock_ledger l
		JOIN warehouses w ON w.id = l.location_id
		WHERE l.product_id = $1
		ORDER BY w.name`, productID)
	return stock, err
}

// GetMovements retrieves the most recent movements for a product
func (s *Store) GetMovements(ctx context.Context, productID string, limit int) ([]models.StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var movements []models.StockMovement
	err := s.db.SelectContext(ctx, &movements,
		"SELECT * FROM stock_movements WHERE product_id = $1 ORDER BY created_at DESC LIMIT $2",
		productID, limit)
	return movements, err
}

// GetReservationsByOrderID retrieves all reservations tied to an order
func (s *Store) GetReservationsByOrderID(ctx context.Context, orderID string) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := s.db.SelectContext(ctx, &reservations,
		"SELECT * FROM reservations WHERE order_id = $1 ORDER BY created_at", orderID)
	return reservations, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
