package storage

import (
	"context"
	"fmt"
	"time"

	"readcast/internal/models"
)

type FavoriteRepo struct {
	db *DB
}

func NewFavoriteRepo(db *DB) *FavoriteRepo {
	return &FavoriteRepo{db: db}
}

func (r *FavoriteRepo) Create(ctx context.Context, f models.FavoriteSentence) (models.FavoriteSentence, error) {
	if f.Tags == nil {
		f.Tags = []string{}
	}
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO favorite_sentences (user_id, article_id, sentence, original_sentence, explanation, tags)
VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), $6)
RETURNING id, created_at`,
		f.UserID, f.ArticleID, f.Sentence, f.OriginalSentence, f.Explanation, f.Tags,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return f, fmt.Errorf("insert favorite sentence: %w", err)
	}
	return f, nil
}

const favoriteSelect = `
SELECT f.id, f.user_id, f.article_id, f.sentence, COALESCE(f.original_sentence,''), COALESCE(f.explanation,''),
       f.tags, COALESCE(a.title,''), f.created_at
FROM favorite_sentences f
LEFT JOIN articles a ON a.id = f.article_id
`

// ListSince returns the user's favorites created at or after since, newest first.
// A zero since lists everything.
func (r *FavoriteRepo) ListSince(ctx context.Context, userID string, since time.Time) ([]models.FavoriteSentence, error) {
	return r.list(ctx, favoriteSelect+`WHERE f.user_id=$1 AND f.created_at >= $2 ORDER BY f.created_at DESC`, userID, since)
}

func (r *FavoriteRepo) ListByIDs(ctx context.Context, userID string, ids []int64) ([]models.FavoriteSentence, error) {
	return r.list(ctx, favoriteSelect+`WHERE f.user_id=$1 AND f.id = ANY($2) ORDER BY f.created_at DESC`, userID, ids)
}

func (r *FavoriteRepo) list(ctx context.Context, sql string, args ...any) ([]models.FavoriteSentence, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list favorite sentences: %w", err)
	}
	defer rows.Close()

	out := make([]models.FavoriteSentence, 0)
	for rows.Next() {
		var f models.FavoriteSentence
		if err := rows.Scan(&f.ID, &f.UserID, &f.ArticleID, &f.Sentence, &f.OriginalSentence, &f.Explanation,
			&f.Tags, &f.ArticleTitle, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite sentence: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorite sentences: %w", err)
	}
	return out, nil
}
