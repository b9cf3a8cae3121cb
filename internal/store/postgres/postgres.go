package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/store"
)

const (
	collMenuItems  = "menu_items"
	collCategories = "categories"
	collCustomers  = "customers"
	collUsers      = "users"
	collSettings   = "settings"

	settingsID = "restaurant"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pos_documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		position BIGINT GENERATED BY DEFAULT AS IDENTITY,
		body JSONB NOT NULL,
		PRIMARY KEY (collection, id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS pos_documents_username_key
		ON pos_documents (lower(body->>'username'))
		WHERE collection = 'users'`,
	`CREATE TABLE IF NOT EXISTS pos_orders (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		order_type TEXT NOT NULL,
		table_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		report_at TIMESTAMPTZ NOT NULL,
		body JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS pos_orders_status_idx ON pos_orders (status)`,
	`CREATE INDEX IF NOT EXISTS pos_orders_report_at_idx ON pos_orders (report_at)`,
	`CREATE TABLE IF NOT EXISTS pos_counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`,
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.seedDefaults(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed defaults: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) seedDefaults(ctx context.Context) error {
	seedIfEmpty := func(collection string, docs func() (map[string]any, []string, error)) error {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM pos_documents WHERE collection = $1`, collection).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		values, order, err := docs()
		if err != nil {
			return err
		}
		for _, id := range order {
			if err := putDoc(ctx, s.db, collection, id, values[id]); err != nil {
				return err
			}
		}
		return nil
	}

	if err := seedIfEmpty(collMenuItems, func() (map[string]any, []string, error) {
		values, order := map[string]any{}, []string{}
		for _, item := range store.DefaultMenuItems() {
			values[item.ID] = item
			order = append(order, item.ID)
		}
		return values, order, nil
	}); err != nil {
		return err
	}
	if err := seedIfEmpty(collCategories, func() (map[string]any, []string, error) {
		values, order := map[string]any{}, []string{}
		for _, c := range store.DefaultCategories() {
			values[c.ID] = c
			order = append(order, c.ID)
		}
		return values, order, nil
	}); err != nil {
		return err
	}
	if err := seedIfEmpty(collSettings, func() (map[string]any, []string, error) {
		return map[string]any{settingsID: store.DefaultSettings()}, []string{settingsID}, nil
	}); err != nil {
		return err
	}
	return seedIfEmpty(collUsers, func() (map[string]any, []string, error) {
		users, err := store.SeedUsers()
		if err != nil {
			return nil, nil, err
		}
		values, order := map[string]any{}, []string{}
		for _, u := range users {
			values[u.ID] = u
			order = append(order, u.ID)
		}
		return values, order, nil
	})
}

func (s *Store) ListMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	return listDocs[domain.MenuItem](ctx, s.db, collMenuItems)
}

func (s *Store) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	return getDoc[domain.MenuItem](ctx, s.db, collMenuItems, id)
}

func (s *Store) SaveMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	if err := putDoc(ctx, s.db, collMenuItems, item.ID, item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) DeleteMenuItem(ctx context.Context, id string) error {
	return deleteDoc(ctx, s.db, collMenuItems, id)
}

func (s *Store) ReplaceMenu(ctx context.Context, items []domain.MenuItem, categories []domain.Category) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM pos_documents
		WHERE collection = ANY($1)
	`, []string{collMenuItems, collCategories}); err != nil {
		return err
	}
	for _, item := range items {
		if err := putDoc(ctx, tx, collMenuItems, item.ID, item); err != nil {
			return err
		}
	}
	for _, c := range categories {
		if err := putDoc(ctx, tx, collCategories, c.ID, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return listDocs[domain.Category](ctx, s.db, collCategories)
}

func (s *Store) SaveCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if err := putDoc(ctx, s.db, collCategories, category.ID, category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Store) RenameCategory(ctx context.Context, id string, name string) (*domain.Category, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	err = tx.QueryRowContext(ctx, `
		SELECT body
		FROM pos_documents
		WHERE collection = $1 AND id = $2
		FOR UPDATE
	`, collCategories, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var category domain.Category
	if err := json.Unmarshal(raw, &category); err != nil {
		return nil, fmt.Errorf("decode category %s: %w", id, err)
	}
	oldName := category.Name
	category.Name = name
	if err := putDoc(ctx, tx, collCategories, id, category); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE pos_documents
		SET body = jsonb_set(body, '{category}', to_jsonb($2::text))
		WHERE collection = $3 AND body->>'category' = $1
	`, oldName, name, collMenuItems); err != nil {
		return nil, err
	}

	settings, err := getSettings(ctx, tx)
	if err != nil {
		return nil, err
	}
	settings.StationAssignments = store.RenameInAssignments(settings.StationAssignments, oldName, name)
	if err := putDoc(ctx, tx, collSettings, settingsID, settings); err != nil {
		return nil, err
	}

	open, err := queryOrders(ctx, tx, `
		SELECT body FROM pos_orders
		WHERE status = ANY($1)
		FOR UPDATE
	`, []string{string(domain.StatusActive), string(domain.StatusBilled)})
	if err != nil {
		return nil, err
	}
	for _, o := range open {
		renamed, changed := store.RenameInOrder(o, oldName, name)
		if !changed {
			continue
		}
		if err := putOrder(ctx, tx, renamed); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	category, err := getDoc[domain.Category](ctx, tx, collCategories, id)
	if err != nil {
		return err
	}
	if err := deleteDoc(ctx, tx, collCategories, id); err != nil {
		return err
	}
	settings, err := getSettings(ctx, tx)
	if err != nil {
		return err
	}
	settings.StationAssignments = store.RemoveFromAssignments(settings.StationAssignments, category.Name)
	if err := putDoc(ctx, tx, collSettings, settingsID, settings); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	return getSettings(ctx, s.db)
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.Settings) error {
	return putDoc(ctx, s.db, collSettings, settingsID, settings)
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return listDocs[domain.Customer](ctx, s.db, collCustomers)
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return getDoc[domain.Customer](ctx, s.db, collCustomers, id)
}

func (s *Store) SaveCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if err := putDoc(ctx, s.db, collCustomers, customer.ID, customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	return deleteDoc(ctx, s.db, collCustomers, id)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	return listDocs[domain.UserAccount](ctx, s.db, collUsers)
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pos_documents (collection, id, body)
		VALUES ($1, $2, $3::jsonb)
	`, collUsers, user.ID, string(raw))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Username, store.ErrConflict)
		}
		return err
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.UserAccount) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE pos_documents
		SET body = $3::jsonb
		WHERE collection = $1 AND id = $2
	`, collUsers, user.ID, string(raw))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Username, store.ErrConflict)
		}
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return deleteDoc(ctx, s.db, collUsers, id)
}

func (s *Store) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	clauses := make([]string, 0, 5)
	args := make([]any, 0, 5)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		clauses = append(clauses, "status = ANY("+arg(statuses)+")")
	}
	if filter.Type != "" {
		clauses = append(clauses, "order_type = "+arg(string(filter.Type)))
	}
	if filter.TableID != "" {
		clauses = append(clauses, "table_id = "+arg(filter.TableID))
	}
	if filter.From != nil {
		clauses = append(clauses, "report_at >= "+arg(filter.From.UTC()))
	}
	if filter.To != nil {
		clauses = append(clauses, "report_at <= "+arg(filter.To.UTC()))
	}

	query := "SELECT body FROM pos_orders"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, id"
	return queryOrders(ctx, s.db, query, args...)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM pos_orders WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", id, err)
	}
	return &order, nil
}

func (s *Store) SaveOrder(ctx context.Context, order domain.Order) error {
	return putOrder(ctx, s.db, order)
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pos_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) ClearOrders(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pos_orders`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) SaveOrderWithCounters(ctx context.Context, order domain.Order, counters domain.Counters) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := putOrder(ctx, tx, order); err != nil {
		return err
	}
	if err := putCounters(ctx, tx, counters); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) FinalizeOrder(ctx context.Context, order domain.Order, adjustments []domain.StockAdjustment) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, `
		SELECT id
		FROM pos_orders
		WHERE id = $1
		FOR UPDATE
	`, order.ID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}

	for _, adj := range adjustments {
		_, err := tx.ExecContext(ctx, `
			UPDATE pos_documents
			SET body = jsonb_set(body, '{stock}', to_jsonb(COALESCE((body->>'stock')::int, 0) + $3))
			WHERE collection = $1 AND id = $2
		`, collMenuItems, adj.MenuItemID, adj.Delta)
		if err != nil {
			return err
		}
	}
	if err := putOrder(ctx, tx, order); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) SplitOrder(ctx context.Context, parent domain.Order, children []domain.Order) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM pos_orders WHERE id = $1 FOR UPDATE`, parent.ID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	if err := putOrder(ctx, tx, parent); err != nil {
		return err
	}
	for _, child := range children {
		if err := putOrder(ctx, tx, child); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetCounters(ctx context.Context) (domain.Counters, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM pos_counters`)
	if err != nil {
		return domain.Counters{}, err
	}
	defer rows.Close()

	var counters domain.Counters
	for rows.Next() {
		var name string
		var value int
		if err := rows.Scan(&name, &value); err != nil {
			return domain.Counters{}, err
		}
		switch name {
		case "takeaway":
			counters.Takeaway = value
		case "kot":
			counters.KOT = value
		case "bot":
			counters.BOT = value
		}
	}
	return counters, rows.Err()
}

func (s *Store) SaveCounters(ctx context.Context, counters domain.Counters) error {
	return putCounters(ctx, s.db, counters)
}

func putCounters(ctx context.Context, q dbtx, counters domain.Counters) error {
	for name, value := range map[string]int{
		"takeaway": counters.Takeaway,
		"kot":      counters.KOT,
		"bot":      counters.BOT,
	} {
		_, err := q.ExecContext(ctx, `
			INSERT INTO pos_counters (name, value)
			VALUES ($1, $2)
			ON CONFLICT (name)
			DO UPDATE SET value = EXCLUDED.value
		`, name, value)
		if err != nil {
			return err
		}
	}
	return nil
}

func putOrder(ctx context.Context, q dbtx, order domain.Order) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO pos_orders (id, status, order_type, table_id, created_at, report_at, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		ON CONFLICT (id)
		DO UPDATE SET
			status = EXCLUDED.status,
			order_type = EXCLUDED.order_type,
			table_id = EXCLUDED.table_id,
			report_at = EXCLUDED.report_at,
			body = EXCLUDED.body
	`, order.ID, string(order.Status), string(order.OrderType), order.TableID,
		order.CreatedAt.UTC(), order.ReportTime().UTC(), string(raw))
	return err
}

// queryOrders decodes order bodies, skipping rows that no longer decode.
func queryOrders(ctx context.Context, q dbtx, query string, args ...any) ([]domain.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 64)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var o domain.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			log.Printf("[postgres-store] WARN: skipping undecodable order: %v", err)
			continue
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func getSettings(ctx context.Context, q dbtx) (domain.Settings, error) {
	settings := store.DefaultSettings()
	var raw []byte
	err := q.QueryRowContext(ctx, `
		SELECT body FROM pos_documents WHERE collection = $1 AND id = $2
	`, collSettings, settingsID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return settings, nil
	}
	if err != nil {
		return domain.Settings{}, err
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		log.Printf("[postgres-store] WARN: corrupt settings document: %v, using defaults", err)
		return store.DefaultSettings(), nil
	}
	return settings, nil
}

func listDocs[T any](ctx context.Context, q dbtx, collection string) ([]T, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, body
		FROM pos_documents
		WHERE collection = $1
		ORDER BY position
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0, 32)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			log.Printf("[postgres-store] WARN: skipping undecodable %s/%s: %v", collection, id, err)
			continue
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func getDoc[T any](ctx context.Context, q dbtx, collection string, id string) (*T, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, `
		SELECT body FROM pos_documents WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return &v, nil
}

func putDoc(ctx context.Context, q dbtx, collection string, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO pos_documents (collection, id, body)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id)
		DO UPDATE SET body = EXCLUDED.body
	`, collection, id, string(raw))
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrConflict)
	}
	return err
}

func deleteDoc(ctx context.Context, q dbtx, collection string, id string) error {
	res, err := q.ExecContext(ctx, `
		DELETE FROM pos_documents WHERE collection = $1 AND id = $2
	`, collection, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
