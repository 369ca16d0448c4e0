package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Catch is a stored catch row tied to a lure analysis.
type Catch struct {
	ID          string
	LureID      string
	UserID      string
	FishSpecies string
	Weight      *float64
	WeightUnit  string
	Length      *float64
	LengthUnit  string
	Location    string
	Latitude    *float64
	Longitude   *float64
	Notes       string
	ImageURL    string
	CatchDate   time.Time
}

// CatchPatch carries the fields of a catch update. Nil fields keep the
// stored value.
type CatchPatch struct {
	FishSpecies *string
	Weight      *float64
	WeightUnit  *string
	Length      *float64
	LengthUnit  *string
	Location    *string
	Latitude    *float64
	Longitude   *float64
	Notes       *string
	ImageURL    *string
	CatchDate   *time.Time
}

const catchColumns = `id, lure_analysis_id, user_id, COALESCE(fish_species, ''), weight, COALESCE(weight_unit, ''), length, COALESCE(length_unit, ''), COALESCE(location, ''), latitude, longitude, COALESCE(notes, ''), COALESCE(image_url, ''), catch_date`

func scanCatch(row interface{ Scan(...any) error }) (*Catch, error) {
	var c Catch
	err := row.Scan(&c.ID, &c.LureID, &c.UserID, &c.FishSpecies, &c.Weight, &c.WeightUnit,
		&c.Length, &c.LengthUnit, &c.Location, &c.Latitude, &c.Longitude, &c.Notes, &c.ImageURL, &c.CatchDate)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCatches returns the catches of one lure, newest first.
func (p *Postgres) ListCatches(ctx context.Context, userID, lureID string) ([]Catch, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT `+catchColumns+` FROM catches
		WHERE lure_analysis_id = $1 AND user_id = $2 ORDER BY catch_date DESC
	`, lureID, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCatches: %w", err)
	}
	defer rows.Close()

	var catches []Catch
	for rows.Next() {
		c, err := scanCatch(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCatches scan: %w", err)
		}
		catches = append(catches, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCatches rows: %w", err)
	}
	return catches, nil
}

func (p *Postgres) listCatchesForUser(ctx context.Context, userID string) ([]Catch, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT `+catchColumns+` FROM catches
		WHERE user_id = $1 ORDER BY catch_date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listCatchesForUser: %w", err)
	}
	defer rows.Close()

	var catches []Catch
	for rows.Next() {
		c, err := scanCatch(rows)
		if err != nil {
			return nil, fmt.Errorf("listCatchesForUser scan: %w", err)
		}
		catches = append(catches, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listCatchesForUser rows: %w", err)
	}
	return catches, nil
}

// ListCatchesWithLocation returns the user's catches that carry
// coordinates, newest first, for map display.
func (p *Postgres) ListCatchesWithLocation(ctx context.Context, userID string) ([]Catch, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT `+catchColumns+` FROM catches
		WHERE user_id = $1 AND latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY catch_date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCatchesWithLocation: %w", err)
	}
	defer rows.Close()

	var catches []Catch
	for rows.Next() {
		c, err := scanCatch(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCatchesWithLocation scan: %w", err)
		}
		catches = append(catches, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCatchesWithLocation rows: %w", err)
	}
	return catches, nil
}

// InsertCatch stores a new catch against an owned lure and returns the
// stored row. A lure owned by another identity reports ErrNotFound.
func (p *Postgres) InsertCatch(ctx context.Context, c Catch) (*Catch, error) {
	var exists bool
	err := p.DB.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM lure_analyses WHERE id = $1 AND user_id = $2)
	`, c.LureID, c.UserID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("InsertCatch lure lookup: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	err = p.DB.QueryRowContext(ctx, `
		INSERT INTO catches (lure_analysis_id, user_id, fish_species, weight, weight_unit, length, length_unit, location, latitude, longitude, notes, image_url, catch_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, c.LureID, c.UserID, c.FishSpecies, c.Weight, nullStr(c.WeightUnit), c.Length, nullStr(c.LengthUnit),
		nullStr(c.Location), c.Latitude, c.Longitude, nullStr(c.Notes), nullStr(c.ImageURL), c.CatchDate).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("InsertCatch: %w", err)
	}
	return &c, nil
}

// UpdateCatch applies a partial update and returns the updated row.
func (p *Postgres) UpdateCatch(ctx context.Context, userID, lureID, catchID string, patch CatchPatch) (*Catch, error) {
	res, err := p.DB.ExecContext(ctx, `
		UPDATE catches SET
			fish_species = COALESCE($1, fish_species),
			weight = COALESCE($2, weight),
			weight_unit = COALESCE($3, weight_unit),
			length = COALESCE($4, length),
			length_unit = COALESCE($5, length_unit),
			location = COALESCE($6, location),
			latitude = COALESCE($7, latitude),
			longitude = COALESCE($8, longitude),
			notes = COALESCE($9, notes),
			image_url = COALESCE($10, image_url),
			catch_date = COALESCE($11, catch_date)
		WHERE id = $12 AND lure_analysis_id = $13 AND user_id = $14
	`, patch.FishSpecies, patch.Weight, patch.WeightUnit, patch.Length, patch.LengthUnit,
		patch.Location, patch.Latitude, patch.Longitude, patch.Notes, patch.ImageURL, patch.CatchDate,
		catchID, lureID, userID)
	if err != nil {
		return nil, fmt.Errorf("UpdateCatch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("UpdateCatch rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	c, err := scanCatch(p.DB.QueryRowContext(ctx, `
		SELECT `+catchColumns+` FROM catches
		WHERE id = $1 AND lure_analysis_id = $2 AND user_id = $3
	`, catchID, lureID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("UpdateCatch reload: %w", err)
	}
	return c, nil
}

// DeleteCatch removes a single catch.
func (p *Postgres) DeleteCatch(ctx context.Context, userID, lureID, catchID string) error {
	res, err := p.DB.ExecContext(ctx, `
		DELETE FROM catches WHERE id = $1 AND lure_analysis_id = $2 AND user_id = $3
	`, catchID, lureID, userID)
	if err != nil {
		return fmt.Errorf("DeleteCatch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteCatch rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
