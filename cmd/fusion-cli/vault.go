package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"fusionswap/native/escrow"
)

var errSecretNotFound = errors.New("secret not found")

// vaultSecret is one preimage of a swap. A set created with count > 1 holds
// one secret per fill index.
type vaultSecret struct {
	Name      string `json:"name"`
	Index     uint32 `json:"index"`
	Algorithm string `json:"algorithm"`
	HashLock  string `json:"hashlock"`
	Secret    string `json:"secret,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// secretVault keeps swap secrets on the operator's machine until the
// counterparty's escrow is funded.
type secretVault struct {
	db *sql.DB
}

func openVault(path string) (*secretVault, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	v := &secretVault{db: db}
	if err := v.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return v, nil
}

func (v *secretVault) init() error {
	_, err := v.db.Exec(`CREATE TABLE IF NOT EXISTS secrets (
            name TEXT NOT NULL,
            idx INTEGER NOT NULL,
            algorithm TEXT NOT NULL,
            hashlock TEXT NOT NULL,
            secret TEXT NOT NULL,
            created_at INTEGER NOT NULL,
            PRIMARY KEY(name, idx)
        );`)
	return err
}

func (v *secretVault) Close() error { return v.db.Close() }

// Generate draws count fresh 32 byte secrets under name and stores them with
// their hashlocks. Existing names are never overwritten.
func (v *secretVault) Generate(ctx context.Context, name string, count int, algo escrow.HashAlgorithm, now time.Time) ([]vaultSecret, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("secret name required")
	}
	if count <= 0 || count > 1024 {
		return nil, fmt.Errorf("count must be between 1 and 1024")
	}
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM secrets WHERE name = ?`, name).Scan(&existing); err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("secret set %q already exists", name)
	}

	out := make([]vaultSecret, 0, count)
	for i := 0; i < count; i++ {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return nil, err
		}
		digest := escrow.HashSecret(algo, raw)
		rec := vaultSecret{
			Name:      name,
			Index:     uint32(i),
			Algorithm: string(algo),
			HashLock:  "0x" + hex.EncodeToString(digest[:]),
			Secret:    "0x" + hex.EncodeToString(raw),
			CreatedAt: now.Unix(),
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO secrets (name, idx, algorithm, hashlock, secret, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.Name, rec.Index, rec.Algorithm, rec.HashLock, rec.Secret, rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (v *secretVault) Get(ctx context.Context, name string, index uint32) (vaultSecret, error) {
	var rec vaultSecret
	err := v.db.QueryRowContext(ctx,
		`SELECT name, idx, algorithm, hashlock, secret, created_at FROM secrets WHERE name = ? AND idx = ?`,
		strings.TrimSpace(name), index).
		Scan(&rec.Name, &rec.Index, &rec.Algorithm, &rec.HashLock, &rec.Secret, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("%s[%d]: %w", name, index, errSecretNotFound)
	}
	return rec, err
}

// List returns hashlocks only; secrets stay in the vault unless asked for
// by name.
func (v *secretVault) List(ctx context.Context) ([]vaultSecret, error) {
	rows, err := v.db.QueryContext(ctx,
		`SELECT name, idx, algorithm, hashlock, created_at FROM secrets ORDER BY name, idx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []vaultSecret
	for rows.Next() {
		var rec vaultSecret
		if err := rows.Scan(&rec.Name, &rec.Index, &rec.Algorithm, &rec.HashLock, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// HashLocks returns the commitments of a set in fill index order.
func (v *secretVault) HashLocks(ctx context.Context, name string) ([]string, error) {
	rows, err := v.db.QueryContext(ctx, `SELECT hashlock FROM secrets WHERE name = ? ORDER BY idx`, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", name, errSecretNotFound)
	}
	return out, nil
}
