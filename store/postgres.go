package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgres(ctx context.Context, databaseURL string, log *slog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool, log: log}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) CreateRetro(ctx context.Context, name string) (Retro, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO retros (name)
		VALUES ($1)
		RETURNING id, name, created_at
	`, name)

	var r Retro
	if err := row.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
		return Retro{}, err
	}
	return r, nil
}

func (p *Postgres) ListRetros(ctx context.Context, limit, offset int) ([]Retro, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, created_at
		FROM retros
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Retro
	for rows.Next() {
		var r Retro
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) GetRetro(ctx context.Context, id string) (Retro, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, created_at
		FROM retros
		WHERE id = $1
	`, id)

	var r Retro
	if err := row.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Retro{}, ErrNotFound
		}
		return Retro{}, err
	}
	return r, nil
}

func (p *Postgres) CreateItem(ctx context.Context, retroID, category, content string) (Item, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO retro_items (retro_id, category, content)
		VALUES ($1, $2, $3)
		RETURNING id, retro_id, category, content, likes, created_at
	`, retroID, category, content)

	var it Item
	if err := row.Scan(&it.ID, &it.RetroID, &it.Category, &it.Content, &it.Likes, &it.CreatedAt); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (p *Postgres) ListItems(ctx context.Context, retroID string) ([]Item, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, retro_id, category, content, likes, created_at
		FROM retro_items
		WHERE retro_id = $1
		ORDER BY created_at ASC
	`, retroID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.RetroID, &it.Category, &it.Content, &it.Likes, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// LikeItem bumps an item's like count and returns the updated row.
func (p *Postgres) LikeItem(ctx context.Context, id string) (Item, error) {
	return p.adjustLikes(ctx, id, `
		UPDATE retro_items
		SET likes = likes + 1
		WHERE id = $1
		RETURNING id, retro_id, category, content, likes, created_at
	`)
}

// UnlikeItem decrements an item's like count, never below zero.
func (p *Postgres) UnlikeItem(ctx context.Context, id string) (Item, error) {
	return p.adjustLikes(ctx, id, `
		UPDATE retro_items
		SET likes = GREATEST(likes - 1, 0)
		WHERE id = $1
		RETURNING id, retro_id, category, content, likes, created_at
	`)
}

func (p *Postgres) adjustLikes(ctx context.Context, id, query string) (Item, error) {
	row := p.pool.QueryRow(ctx, query, id)

	var it Item
	if err := row.Scan(&it.ID, &it.RetroID, &it.Category, &it.Content, &it.Likes, &it.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return it, nil
}

func (p *Postgres) DeleteItem(ctx context.Context, id string) error {
	ct, err := p.pool.Exec(ctx, `DELETE FROM retro_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
