package readcast

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"readcast/internal/agents"
	"readcast/internal/extract"
	"readcast/internal/models"
)

const defaultArticleLimit = 50

type ImportRequest struct {
	UserID string
	URL    string
	Text   string
	Title  string
	Type   string
}

// ImportArticle stores an article from pasted text or a URL. Articles without
// a type are classified.
func (s *Service) ImportArticle(ctx context.Context, req ImportRequest) (models.Article, error) {
	var parsed extract.Parsed
	switch {
	case strings.TrimSpace(req.Text) != "":
		parsed = extract.FromText(req.Text, req.Title)
	case strings.TrimSpace(req.URL) != "":
		if s.extractor == nil {
			return models.Article{}, invalid("url import is not available")
		}
		p, err := s.extractor.Parse(ctx, strings.TrimSpace(req.URL))
		if err != nil {
			var ee *extract.Error
			if errors.As(err, &ee) {
				return models.Article{}, err
			}
			return models.Article{}, fmt.Errorf("extract article: %w", err)
		}
		parsed = p
		if t := strings.TrimSpace(req.Title); t != "" {
			parsed.Title = t
		}
	default:
		return models.Article{}, invalid("url or text is required")
	}

	kind := strings.ToLower(strings.TrimSpace(req.Type))
	if kind == "" {
		kind = s.classifier.Classify(ctx, parsed.Title, parsed.Content)
	} else {
		kind = agents.MatchCategory(kind)
	}
	a, err := s.articles.Create(ctx, models.Article{
		Title:   parsed.Title,
		Content: parsed.Content,
		URL:     strings.TrimSpace(req.URL),
		Source:  parsed.Source,
		Type:    kind,
		UserID:  req.UserID,
	})
	if err != nil {
		return models.Article{}, fmt.Errorf("save article: %w", err)
	}
	s.log.Ctx(ctx).Stage("import").Info("article imported", "article_id", a.ID, "type", kind)
	return a, nil
}

func (s *Service) GetArticle(ctx context.Context, id int64) (models.Article, error) {
	a, err := s.articles.Get(ctx, id)
	if err != nil {
		return models.Article{}, storeErr(err, "article")
	}
	return a, nil
}

func (s *Service) ListArticles(ctx context.Context, limit int) ([]models.Article, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultArticleLimit
	}
	return s.articles.List(ctx, limit)
}

type FavoriteRequest struct {
	UserID           string
	ArticleID        *int64
	Sentence         string
	OriginalSentence string
	Explanation      string
	Tags             []string
}

func (s *Service) AddFavorite(ctx context.Context, req FavoriteRequest) (models.FavoriteSentence, error) {
	if err := requireUser(req.UserID); err != nil {
		return models.FavoriteSentence{}, err
	}
	if strings.TrimSpace(req.Sentence) == "" {
		return models.FavoriteSentence{}, invalid("sentence is required")
	}
	if req.ArticleID != nil {
		if _, err := s.articles.Get(ctx, *req.ArticleID); err != nil {
			return models.FavoriteSentence{}, storeErr(err, "article")
		}
	}
	f, err := s.favorites.Create(ctx, models.FavoriteSentence{
		UserID:           req.UserID,
		ArticleID:        req.ArticleID,
		Sentence:         strings.TrimSpace(req.Sentence),
		OriginalSentence: req.OriginalSentence,
		Explanation:      req.Explanation,
		Tags:             req.Tags,
	})
	if err != nil {
		return models.FavoriteSentence{}, fmt.Errorf("save favorite sentence: %w", err)
	}
	return f, nil
}

// ListFavorites returns today's favorites or the ones named by ids.
func (s *Service) ListFavorites(ctx context.Context, userID, selection string, ids []int64) ([]models.FavoriteSentence, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	sel := models.SelectToday
	if selection != "" || len(ids) > 0 {
		if len(ids) > 0 && selection == "" {
			selection = string(models.SelectSelected)
		}
		parsed, err := models.ParseSelection(selection)
		if err != nil {
			return nil, invalid("%v", err)
		}
		sel = parsed
	}
	if sel == models.SelectSelected && len(ids) == 0 {
		return nil, invalid("ids are required for selected favorites")
	}
	favs, err := s.loadFavorites(ctx, userID, sel, ids)
	if errors.Is(err, ErrNotFound) {
		return []models.FavoriteSentence{}, nil
	}
	return favs, err
}
