package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"readcast/internal/models"

	"github.com/jackc/pgx/v5"
)

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = `id, type, article_id, user_id, difficulty, language, COALESCE(custom_requirements,''),
       document_content, COALESCE(pdf_path,''), COALESCE(podcast_path,''), COALESCE(podcast_mode,''),
       podcast_script, created_at, updated_at`

func scanDocument(row pgx.Row) (models.DocumentRecord, error) {
	var rec models.DocumentRecord
	var doc, script []byte
	if err := row.Scan(&rec.ID, &rec.Kind, &rec.ArticleID, &rec.UserID, &rec.Difficulty, &rec.Language,
		&rec.CustomRequirements, &doc, &rec.PDFPath, &rec.PodcastPath, &rec.PodcastMode, &script,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return rec, err
	}
	if len(doc) > 0 {
		rec.Document = &models.StudyDocument{}
		if err := json.Unmarshal(doc, rec.Document); err != nil {
			return rec, fmt.Errorf("decode document content: %w", err)
		}
	}
	if len(script) > 0 {
		rec.PodcastScript = &models.PodcastScript{}
		if err := json.Unmarshal(script, rec.PodcastScript); err != nil {
			return rec, fmt.Errorf("decode podcast script: %w", err)
		}
	}
	return rec, nil
}

// FindLatest returns the newest record with content for the cache key.
// Empty and NULL custom requirements compare equal.
func (r *DocumentRepo) FindLatest(ctx context.Context, key models.CacheKey) (models.DocumentRecord, error) {
	key = key.Normalized()
	row := r.db.Pool.QueryRow(ctx, `
SELECT `+documentColumns+`
FROM readcast_documents
WHERE type=$1 AND user_id=$2 AND difficulty=$3 AND language=$4
  AND COALESCE(custom_requirements,'')=$5
  AND document_content IS NOT NULL
  AND (($1='favorites' AND article_id IS NULL) OR article_id=$6)
ORDER BY created_at DESC, id DESC
LIMIT 1`, key.Kind, key.UserID, key.Difficulty, key.Language, key.CustomRequirements, key.ArticleID)
	rec, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DocumentRecord{}, ErrNotFound
	}
	if err != nil {
		return models.DocumentRecord{}, fmt.Errorf("find document: %w", err)
	}
	return rec, nil
}

func (r *DocumentRepo) Insert(ctx context.Context, rec models.DocumentRecord) (models.DocumentRecord, error) {
	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return rec, fmt.Errorf("encode document content: %w", err)
	}
	var script []byte
	if rec.PodcastScript != nil {
		if script, err = json.Marshal(rec.PodcastScript); err != nil {
			return rec, fmt.Errorf("encode podcast script: %w", err)
		}
	}
	err = r.db.Pool.QueryRow(ctx, `
INSERT INTO readcast_documents (type, article_id, user_id, difficulty, language, custom_requirements,
  document_content, pdf_path, podcast_path, podcast_mode, podcast_script)
VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), $7, NULLIF($8,''), NULLIF($9,''), NULLIF($10,''), $11)
RETURNING id, created_at, updated_at`,
		rec.Kind, rec.ArticleID, rec.UserID, rec.Difficulty, rec.Language, rec.CustomRequirements,
		doc, rec.PDFPath, rec.PodcastPath, rec.PodcastMode, script,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return rec, fmt.Errorf("insert document: %w", err)
	}
	return rec, nil
}

// GetForUser hides other users' records behind ErrNotFound.
func (r *DocumentRepo) GetForUser(ctx context.Context, id int64, userID string) (models.DocumentRecord, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM readcast_documents WHERE id=$1 AND user_id=$2`, id, userID)
	rec, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DocumentRecord{}, ErrNotFound
	}
	if err != nil {
		return models.DocumentRecord{}, fmt.Errorf("get document: %w", err)
	}
	return rec, nil
}

func (r *DocumentRepo) ListForArticle(ctx context.Context, articleID int64, userID string) ([]models.DocumentRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT `+documentColumns+`
FROM readcast_documents
WHERE type='article' AND article_id=$1 AND user_id=$2
ORDER BY created_at DESC, id DESC`, articleID, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]models.DocumentRecord, 0)
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepo) SetPDFPath(ctx context.Context, id int64, name string) error {
	return r.exec(ctx, "set pdf path", `UPDATE readcast_documents SET pdf_path=$2, updated_at=NOW() WHERE id=$1`, id, name)
}

func (r *DocumentRepo) SetPodcastScript(ctx context.Context, id int64, mode models.PodcastMode, script models.PodcastScript) error {
	b, err := json.Marshal(script)
	if err != nil {
		return fmt.Errorf("encode podcast script: %w", err)
	}
	return r.exec(ctx, "set podcast script",
		`UPDATE readcast_documents SET podcast_mode=$2, podcast_script=$3, updated_at=NOW() WHERE id=$1`, id, mode, b)
}

func (r *DocumentRepo) SetPodcast(ctx context.Context, id int64, mode models.PodcastMode, name string) error {
	return r.exec(ctx, "set podcast path",
		`UPDATE readcast_documents SET podcast_mode=$2, podcast_path=$3, updated_at=NOW() WHERE id=$1`, id, mode, name)
}

func (r *DocumentRepo) exec(ctx context.Context, what, sql string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// OwnsPDF reports whether one of the user's records references the pdf file.
func (r *DocumentRepo) OwnsPDF(ctx context.Context, userID, name string) (bool, error) {
	return r.owns(ctx, "pdf_path", userID, name)
}

func (r *DocumentRepo) OwnsPodcast(ctx context.Context, userID, name string) (bool, error) {
	return r.owns(ctx, "podcast_path", userID, name)
}

func (r *DocumentRepo) owns(ctx context.Context, column, userID, name string) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM readcast_documents WHERE user_id=$1 AND `+column+`=$2)`, userID, name).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check artifact owner: %w", err)
	}
	return ok, nil
}
