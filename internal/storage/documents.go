package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"foco/internal/core"
	"foco/internal/remote"
)

var _ remote.Store = (*SQLiteRepository)(nil)

func (r *SQLiteRepository) ListTransactions(ctx context.Context, uid string) ([]core.Transaction, error) {
	var out []core.Transaction
	err := r.listDocs(ctx, remote.TransactionsPath(uid), func(body []byte) error {
		var tx core.Transaction
		if err := json.Unmarshal(body, &tx); err != nil {
			return err
		}
		out = append(out, tx)
		return nil
	})
	return out, err
}

func (r *SQLiteRepository) PutTransaction(ctx context.Context, uid string, tx core.Transaction) error {
	return r.putDoc(ctx, remote.TransactionsPath(uid), tx.ID, tx)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, uid, id string) error {
	return r.deleteDoc(ctx, remote.TransactionsPath(uid)+"/"+id)
}

func (r *SQLiteRepository) ListLedgers(ctx context.Context, uid string) ([]core.Ledger, error) {
	var out []core.Ledger
	err := r.listDocs(ctx, remote.LedgersPath(uid), func(body []byte) error {
		var l core.Ledger
		if err := json.Unmarshal(body, &l); err != nil {
			return err
		}
		out = append(out, l)
		return nil
	})
	return out, err
}

func (r *SQLiteRepository) GetLedger(ctx context.Context, uid, id string) (core.Ledger, error) {
	var l core.Ledger
	err := r.getDoc(ctx, remote.LedgersPath(uid)+"/"+id, &l)
	return l, err
}

func (r *SQLiteRepository) PutLedger(ctx context.Context, uid string, l core.Ledger) error {
	return r.putDoc(ctx, remote.LedgersPath(uid), l.ID, l)
}

func (r *SQLiteRepository) DeleteLedger(ctx context.Context, uid, id string) error {
	return r.deleteDoc(ctx, remote.LedgersPath(uid)+"/"+id)
}

func (r *SQLiteRepository) GetPublicLedger(ctx context.Context, slug string) (core.PublicLedger, error) {
	var pl core.PublicLedger
	err := r.getDoc(ctx, remote.PublicLedgersPath+"/"+slug, &pl)
	return pl, err
}

func (r *SQLiteRepository) PutPublicLedger(ctx context.Context, pl core.PublicLedger) error {
	return r.putDoc(ctx, remote.PublicLedgersPath, pl.PublicSlug, pl)
}

func (r *SQLiteRepository) DeletePublicLedger(ctx context.Context, slug string) error {
	return r.deleteDoc(ctx, remote.PublicLedgersPath+"/"+slug)
}

// listDocs streams the bodies of a collection, newest first.
func (r *SQLiteRepository) listDocs(ctx context.Context, collection string, fn func([]byte) error) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT path, body FROM documents WHERE collection = ? ORDER BY created_at DESC, rowid DESC`,
		collection)
	if err != nil {
		return fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			path string
			body []byte
		)
		if err := rows.Scan(&path, &body); err != nil {
			return fmt.Errorf("scan %s: %w", collection, err)
		}
		if err := fn(body); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable document", "path", path, "error", err)
		}
	}
	return rows.Err()
}

func (r *SQLiteRepository) getDoc(ctx context.Context, path string, dst any) error {
	var body []byte
	err := r.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE path = ?`, path).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return remote.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (r *SQLiteRepository) putDoc(ctx context.Context, collection, id string, doc any) error {
	if id == "" {
		return core.ErrEmptyID
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	now := time.Now().UnixMilli()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (path, collection, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		collection+"/"+id, collection, string(body), now, now)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	slog.DebugContext(ctx, "Document saved to SQLite", "path", collection+"/"+id)
	return nil
}

func (r *SQLiteRepository) deleteDoc(ctx context.Context, path string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
