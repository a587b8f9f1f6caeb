package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pressbox/pressbox/internal/logger"
	"github.com/pressbox/pressbox/internal/model"
)

// minMonthTTL keeps the counter TTL positive when the first view of a
// month lands right at the month boundary.
const minMonthTTL = time.Minute

// Quota decides whether a content read is served in full, truncated, or
// hidden, and meters consumption per reader identity per UTC calendar
// month. Only the counter increment is atomic; two concurrent reads of a
// just-under-limit counter may both proceed, overshooting the quota by
// at most one. That soft-limit semantic is accepted.
type Quota struct {
	articles   model.ArticleStore
	store      model.KV
	enforce    bool
	production bool
	now        func() time.Time
	logger     *logger.Logger
}

// NewQuota creates the access engine. enforce toggles metering entirely;
// production makes the engine refuse to meter against a process-local
// store (fail closed) since per-process counters are trivially bypassed
// by load-balanced retries.
func NewQuota(articles model.ArticleStore, store model.KV, enforce, production bool, logger *logger.Logger) *Quota {
	return &Quota{
		articles:   articles,
		store:      store,
		enforce:    enforce,
		production: production,
		now:        time.Now,
		logger:     logger,
	}
}

// viewsKey builds the per-identity, per-UTC-month counter key.
func viewsKey(identity string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("views:%s:%04d-%02d", identity, at.Year(), int(at.Month()))
}

// nextMonthTTL returns the duration until the next UTC month begins,
// floored so a view at 23:59:59 on the last day still gets a positive TTL.
func nextMonthTTL(at time.Time) time.Duration {
	at = at.UTC()
	next := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	ttl := next.Sub(at)
	if ttl < minMonthTTL {
		ttl = minMonthTTL
	}
	return ttl
}

// ReadArticle evaluates the full access decision for one content read.
// Draft visibility is checked first and yields ErrNotFound, never a
// lock, so draft existence does not leak. The quota gate runs before the
// premium gate so an exhausted anonymous reader sees limit messaging
// rather than a sign-in prompt for a specific article.
func (q *Quota) ReadArticle(ctx context.Context, slug string, reader model.Reader) (model.ArticleView, error) {
	article, err := q.articles.GetBySlug(ctx, slug)
	if err != nil {
		return model.ArticleView{}, err
	}

	if !article.Published && reader.Role != model.RoleAdmin && !reader.IsOwner(article) {
		return model.ArticleView{}, model.ErrNotFound
	}

	limit := reader.Role.MonthlyLimit()
	view := model.ArticleView{
		Article:      article,
		LockReason:   model.LockReasonNone,
		MonthlyLimit: limit,
	}

	metered := q.enforce && limit != model.UnlimitedReads
	if metered && !q.store.Remote() && q.production {
		q.logger.Error("Quota service: enforcement requires the remote store in production",
			"identity", reader.IdentityKey())
		return model.ArticleView{}, model.ErrStoreUnavailable
	}

	key := viewsKey(reader.IdentityKey(), q.now())

	var count int64
	if metered {
		count, err = q.currentViews(ctx, key)
		if err != nil {
			return model.ArticleView{}, err
		}
		if count >= int64(limit) {
			view.Locked = true
			view.LockReason = model.LockReasonLimitReached
			view.ViewsThisMonth = count
			view.RemainingArticles = 0
			return view, nil
		}
	}

	canReadPremium := reader.Role.CanReadPremium() || reader.IsOwner(article)
	if article.Premium && !canReadPremium {
		view.Locked = true
		if reader.Role == model.RoleAnonymous {
			view.LockReason = model.LockReasonAuthRequired
		} else {
			view.LockReason = model.LockReasonPremium
		}
		view.ViewsThisMonth = count
		view.RemainingArticles = remaining(limit, count)
		return view, nil
	}

	if metered {
		count, err = q.store.Incr(ctx, key)
		if err != nil {
			return model.ArticleView{}, fmt.Errorf("failed to increment views: %w", err)
		}
		ttl, err := q.store.TTL(ctx, key)
		if err != nil {
			return model.ArticleView{}, fmt.Errorf("failed to read views ttl: %w", err)
		}
		// First view of the month: align expiry to the next UTC month.
		if ttl == model.TTLNone {
			if _, err := q.store.Expire(ctx, key, nextMonthTTL(q.now())); err != nil {
				return model.ArticleView{}, fmt.Errorf("failed to set views ttl: %w", err)
			}
		}
	}

	view.Content = article.Content
	view.ViewsThisMonth = count
	view.RemainingArticles = remaining(limit, count)
	return view, nil
}

// Views returns the reader's consumed count for the current month
// without mutating anything.
func (q *Quota) Views(ctx context.Context, reader model.Reader) (int64, error) {
	return q.currentViews(ctx, viewsKey(reader.IdentityKey(), q.now()))
}

func (q *Quota) currentViews(ctx context.Context, key string) (int64, error) {
	raw, ok, err := q.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read views: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse views: %w", err)
	}
	return n, nil
}

func remaining(limit int, count int64) int {
	if limit == model.UnlimitedReads {
		return model.UnlimitedReads
	}
	left := limit - int(count)
	if left < 0 {
		return 0
	}
	return left
}
