package storage

import (
	"context"
	"errors"
	"fmt"

	"readcast/internal/models"

	"github.com/jackc/pgx/v5"
)

type ArticleRepo struct {
	db *DB
}

func NewArticleRepo(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

func (r *ArticleRepo) Create(ctx context.Context, a models.Article) (models.Article, error) {
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO articles (user_id, title, content, url, source, type)
VALUES (NULLIF($1,''), $2, $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''))
RETURNING id, created_at`,
		a.UserID, a.Title, a.Content, a.URL, a.Source, a.Type,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return a, fmt.Errorf("insert article: %w", err)
	}
	return a, nil
}

func (r *ArticleRepo) Get(ctx context.Context, id int64) (models.Article, error) {
	var a models.Article
	err := r.db.Pool.QueryRow(ctx, `
SELECT id, COALESCE(user_id,''), title, content, COALESCE(url,''), COALESCE(source,''), COALESCE(type,''), created_at
FROM articles WHERE id=$1`, id).Scan(&a.ID, &a.UserID, &a.Title, &a.Content, &a.URL, &a.Source, &a.Type, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, fmt.Errorf("get article: %w", err)
	}
	return a, nil
}

// List returns the newest articles without their content.
func (r *ArticleRepo) List(ctx context.Context, limit int) ([]models.Article, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, COALESCE(user_id,''), title, COALESCE(url,''), COALESCE(source,''), COALESCE(type,''), created_at
FROM articles
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Article, 0)
	for rows.Next() {
		var a models.Article
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.URL, &a.Source, &a.Type, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return out, nil
}
