package storage

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT,
  title TEXT NOT NULL,
  content TEXT NOT NULL,
  url TEXT,
  source TEXT,
  type TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS favorite_sentences (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  article_id BIGINT REFERENCES articles(id) ON DELETE SET NULL,
  sentence TEXT NOT NULL,
  original_sentence TEXT,
  explanation TEXT,
  tags JSONB NOT NULL DEFAULT '[]'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS favorite_sentences_user_created_idx ON favorite_sentences (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS readcast_documents (
  id BIGSERIAL PRIMARY KEY,
  type TEXT NOT NULL CHECK (type IN ('article', 'favorites')),
  article_id BIGINT REFERENCES articles(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  difficulty TEXT NOT NULL,
  language TEXT NOT NULL DEFAULT 'bilingual',
  custom_requirements TEXT,
  document_content JSONB,
  pdf_path TEXT,
  podcast_path TEXT,
  podcast_mode TEXT,
  podcast_script JSONB,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS readcast_documents_key_idx
  ON readcast_documents (type, user_id, article_id, difficulty, language, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS llm_calls (
  call_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  operation TEXT NOT NULL,
  provider_name TEXT NOT NULL,
  model TEXT,
  request_id TEXT,
  status TEXT NOT NULL,
  error_type TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}

// Migrate creates missing tables and indexes. Safe to run on every start.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
