package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps the collection in a single table. Save replaces
// every row inside one SQL transaction, so it has the same whole-document
// semantics as JSONFile.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load returns every row in insertion order.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, category, description, amount FROM transactions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		var (
			id, date              string
			category, description string
			amount                float64
		)
		if err := rows.Scan(&id, &date, &category, &description, &amount); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		parsedID, err := core.ParseID(id)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", id, err)
		}
		parsedDate, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", id, err)
		}
		txs = append(txs, core.Transaction{
			ID:          parsedID,
			Date:        parsedDate,
			Category:    category,
			Description: description,
			Amount:      amount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// Save replaces the table contents with txs. On any error the SQL
// transaction is rolled back and the previous rows remain.
func (r *SQLiteRepository) Save(ctx context.Context, txs []core.Transaction) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	stmt, err := sqlTx.PrepareContext(ctx,
		`INSERT INTO transactions (position, id, date, category, description, amount) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range txs {
		if _, err := stmt.ExecContext(ctx, i, t.ID.String(), t.Date.String(), t.Category, t.Description, t.Amount); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
