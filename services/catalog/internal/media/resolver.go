package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/cinema-platform/services/catalog/internal/domain"
)

// Resolver turns catalog names into presigned asset URLs.
type Resolver struct {
	store ObjectStore
	log   *zap.Logger
}

func NewResolver(store ObjectStore, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{store: store, log: log}
}

// lookup returns (nil, nil) when nothing is stored under prefix.
func (r *Resolver) lookup(ctx context.Context, prefix string) (*string, error) {
	url, found, err := r.store.Presign(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if !found {
		r.log.Debug("asset not found", zap.String("prefix", prefix))
		return nil, nil
	}
	return &url, nil
}

// ResolveMedia resolves the poster, preview, synopsis image and video of an
// entity independently. A missing or failing asset leaves only its own field
// nil. An error is returned only when every lookup failed in storage.
func (r *Resolver) ResolveMedia(ctx context.Context, name string, kind domain.Kind) (domain.MediaBundle, error) {
	var b domain.MediaBundle
	assets := []struct {
		prefix string
		dst    **string
	}{
		{PosterKey(kind, name), &b.Poster},
		{PreviewKey(kind, name), &b.Preview},
		{SynopsisKey(kind, name), &b.Synopsis},
		{VideoKey(kind, name), &b.Play},
	}
	errs := make([]error, len(assets))

	var g errgroup.Group
	for i, a := range assets {
		g.Go(func() error {
			url, err := r.lookup(ctx, a.prefix)
			if err != nil {
				errs[i] = err
				return nil
			}
			*a.dst = url
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		r.log.Warn("media lookup failed", zap.String("entity", name), zap.String("prefix", assets[i].prefix), zap.Error(err))
	}
	if failed == len(assets) {
		return domain.MediaBundle{}, fmt.Errorf("resolve media for %q: %w", name, errors.Join(errs...))
	}
	return b, nil
}

// ResolveActorPoster returns (nil, nil) when the actor has no poster.
func (r *Resolver) ResolveActorPoster(ctx context.Context, name string) (*string, error) {
	return r.lookup(ctx, ActorPosterKey(name))
}

// ResolveAvatar reports domain.ErrNotFound when the user has no avatar.
func (r *Resolver) ResolveAvatar(ctx context.Context, userID string) (*string, error) {
	url, err := r.lookup(ctx, AvatarPrefix(userID))
	if err != nil {
		return nil, err
	}
	if url == nil {
		return nil, fmt.Errorf("avatar for %s: %w", userID, domain.ErrNotFound)
	}
	return url, nil
}

// UploadAvatar stores a profile image and returns its key.
func (r *Resolver) UploadAvatar(ctx context.Context, userID string, body []byte, contentType string) (string, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return "", &domain.ValidationError{Fields: map[string]string{"user_id": "must be a uuid"}}
	}
	key := AvatarKey(id.String(), contentType)
	if err := r.store.Put(ctx, key, body, contentType); err != nil {
		return "", err
	}
	r.log.Info("avatar uploaded", zap.String("key", key))
	return key, nil
}

// UploadReceipt stores a payment receipt PDF and returns its key.
func (r *Resolver) UploadReceipt(ctx context.Context, orderNumber string, pdf []byte) (string, error) {
	if orderNumber == "" {
		return "", &domain.ValidationError{Fields: map[string]string{"order_number": "is required"}}
	}
	key := ReceiptKey(orderNumber)
	if err := r.store.Put(ctx, key, pdf, "application/pdf"); err != nil {
		return "", err
	}
	return key, nil
}

// ResolvePoster resolves only the poster of an entity; (nil, nil) when absent.
func (r *Resolver) ResolvePoster(ctx context.Context, name string, kind domain.Kind) (*string, error) {
	return r.lookup(ctx, PosterKey(kind, name))
}
