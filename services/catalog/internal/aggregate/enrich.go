package aggregate

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/cinema-platform/services/catalog/internal/domain"
	"github.com/example/cinema-platform/services/catalog/internal/media"
)

// EnrichComments looks up the avatar of every comment author in comment
// order, keyed by user id. domain.ErrNotFound from lookup means no avatar.
// A failed lookup leaves only that author's avatar nil.
func EnrichComments(ctx context.Context, comments []domain.Comment, lookup media.LookupFunc, log *zap.Logger) map[string]*string {
	if log == nil {
		log = zap.NewNop()
	}
	avatars := make(map[string]*string, len(comments))
	for _, c := range comments {
		if c.UserID == "" {
			continue
		}
		if _, done := avatars[c.UserID]; done {
			continue
		}
		url, err := lookup(ctx, c.UserID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			url = nil
		case err != nil:
			log.Warn("avatar lookup failed", zap.String("comment_id", c.ID), zap.String("user_id", c.UserID), zap.Error(err))
			url = nil
		}
		avatars[c.UserID] = url
	}
	return avatars
}
