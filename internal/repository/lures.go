package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Lure is a stored lure analysis together with its catches.
type Lure struct {
	ID         string
	UserID     string
	LureType   string
	Confidence int
	ImageURL   string
	Details    []byte
	IsFavorite bool
	CreatedAt  time.Time
	Catches    []Catch
}

// CatchCount reports the number of catches recorded against the lure.
func (l *Lure) CatchCount() int {
	return len(l.Catches)
}

const lureColumns = `id, user_id, lure_type, confidence, COALESCE(image_url, ''), lure_details, is_favorite, created_at`

func scanLure(row interface{ Scan(...any) error }) (*Lure, error) {
	var l Lure
	err := row.Scan(&l.ID, &l.UserID, &l.LureType, &l.Confidence, &l.ImageURL, &l.Details, &l.IsFavorite, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLures returns every lure for the identity, newest first, with
// catches attached newest first.
func (p *Postgres) ListLures(ctx context.Context, userID string) ([]Lure, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT `+lureColumns+` FROM lure_analyses
		WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListLures: %w", err)
	}
	defer rows.Close()

	var lures []Lure
	index := make(map[string]int)
	for rows.Next() {
		l, err := scanLure(rows)
		if err != nil {
			return nil, fmt.Errorf("ListLures scan: %w", err)
		}
		index[l.ID] = len(lures)
		lures = append(lures, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListLures rows: %w", err)
	}

	catches, err := p.listCatchesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range catches {
		if i, ok := index[c.LureID]; ok {
			lures[i].Catches = append(lures[i].Catches, c)
		}
	}
	return lures, nil
}

// GetLure returns a single lure with its catches.
func (p *Postgres) GetLure(ctx context.Context, userID, id string) (*Lure, error) {
	l, err := scanLure(p.DB.QueryRowContext(ctx, `
		SELECT `+lureColumns+` FROM lure_analyses
		WHERE id = $1 AND user_id = $2
	`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetLure: %w", err)
	}
	l.Catches, err = p.ListCatches(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// InsertLure stores a new lure analysis and returns the stored row.
// The id and created_at are assigned by the database.
func (p *Postgres) InsertLure(ctx context.Context, l Lure) (*Lure, error) {
	err := p.DB.QueryRowContext(ctx, `
		INSERT INTO lure_analyses (user_id, lure_type, confidence, image_url, lure_details, is_favorite)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, l.UserID, l.LureType, l.Confidence, l.ImageURL, l.Details, l.IsFavorite).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("InsertLure: %w", err)
	}
	return &l, nil
}

// SetFavorite updates the favorite flag and returns the updated lure.
func (p *Postgres) SetFavorite(ctx context.Context, userID, id string, favorite bool) (*Lure, error) {
	res, err := p.DB.ExecContext(ctx, `
		UPDATE lure_analyses SET is_favorite = $1
		WHERE id = $2 AND user_id = $3
	`, favorite, id, userID)
	if err != nil {
		return nil, fmt.Errorf("SetFavorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("SetFavorite rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return p.GetLure(ctx, userID, id)
}

// DeleteLure removes a lure and all of its catches in one transaction.
func (p *Postgres) DeleteLure(ctx context.Context, userID, id string) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteLure begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM catches WHERE lure_analysis_id = $1 AND user_id = $2
	`, id, userID); err != nil {
		return fmt.Errorf("DeleteLure catches: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		DELETE FROM lure_analyses WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteLure: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteLure rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
