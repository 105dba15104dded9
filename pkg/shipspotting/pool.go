package shipspotting

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"shipsnap/pkg/config"
	errs "shipsnap/pkg/errors"
	"shipsnap/pkg/logger"
	"shipsnap/pkg/ratelimit"
	"shipsnap/pkg/retry"
)

// SessionPool round-robins requests across several independently established
// sessions, so one challenged session degrades only its share of traffic.
//
// Two semaphores bound in-flight work: a small one for gallery page requests
// (the protected path) and a larger one for image downloads, which hit a
// less defended path. A token bucket paces gallery requests under the host's
// implicit rate tolerance regardless of pool size.
type SessionPool struct {
	siteCfg  *config.SiteConfig
	retryCfg *config.RetryConfig
	log      logger.Logger

	mu       sync.Mutex
	sessions []*Session
	next     int

	gallerySem      *semaphore.Weighted
	downloadSem     *semaphore.Weighted
	limiter         *ratelimit.TokenBucket
	downloadTimeout time.Duration

	backoff          *retry.ExponentialBackoff
	challengeBackoff retry.BackoffStrategy
}

// NewSessionPool creates and establishes a pool of sessions.
func NewSessionPool(ctx context.Context, siteCfg *config.SiteConfig, dlCfg *config.DownloadConfig, retryCfg *config.RetryConfig, log logger.Logger) (*SessionPool, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	size := siteCfg.SessionPoolSize
	if size < 1 {
		size = 1
	}

	p := &SessionPool{
		siteCfg:     siteCfg,
		retryCfg:    retryCfg,
		log:         log,
		sessions:    make([]*Session, size),
		gallerySem:      semaphore.NewWeighted(int64(siteCfg.GalleryConcurrency)),
		downloadSem:     semaphore.NewWeighted(int64(dlCfg.ConcurrentDownloads)),
		limiter:         ratelimit.NewTokenBucket(siteCfg.RequestsPerMinute, time.Minute),
		downloadTimeout: dlCfg.DownloadTimeout,
		backoff: &retry.ExponentialBackoff{
			BaseDelay:    retryCfg.BaseDelay,
			MaxDelay:     retryCfg.MaxDelay,
			Multiplier:   retryCfg.Multiplier,
			JitterFactor: retryCfg.JitterFactor,
		},
		challengeBackoff: retry.NewErrorTypeBackoff().GetBackoffForError(string(errs.ErrorTypeChallenge)),
	}

	for i := range p.sessions {
		sess, err := newSession(siteCfg, log)
		if err != nil {
			return nil, err
		}
		if err := sess.Establish(ctx); err != nil {
			return nil, fmt.Errorf("failed to establish session %d: %w", i, err)
		}
		p.sessions[i] = sess
	}

	log.InfoWithFields("session pool ready", map[string]interface{}{
		"sessions": size,
	})
	return p, nil
}

// acquire returns the next session and its slot, round-robin
func (p *SessionPool) acquire() (int, *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.next % len(p.sessions)
	p.next++
	return idx, p.sessions[idx]
}

// refresh swaps the session in slot idx for a freshly established one. The
// swap only happens if the slot still holds the challenged session, so
// concurrent callers hitting the same 403 recreate it once, not N times.
func (p *SessionPool) refresh(ctx context.Context, idx int, stale *Session) error {
	p.mu.Lock()
	if p.sessions[idx] != stale {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	fresh, err := newSession(p.siteCfg, p.log)
	if err != nil {
		return err
	}
	if err := fresh.Establish(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	if p.sessions[idx] == stale {
		p.sessions[idx] = fresh
		p.log.WarnWithFields("session re-established after challenge", map[string]interface{}{
			"slot": idx,
		})
	}
	p.mu.Unlock()
	return nil
}

// Get fetches a gallery page, retrying per failure class up to the attempt
// ceiling. Exhaustion is a typed error the caller treats as "unavailable
// this run".
func (p *SessionPool) Get(ctx context.Context, url string) ([]byte, error) {
	if err := p.gallerySem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.gallerySem.Release(1)

	p.limiter.Wait()

	res, err := p.do(ctx, url, 0)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// Download fetches binary content through the download semaphore, reusing
// the pool's established cookies. Each attempt gets its own download
// deadline. Returns the body and declared content type.
func (p *SessionPool) Download(ctx context.Context, url string) ([]byte, string, error) {
	if err := p.downloadSem.Acquire(ctx, 1); err != nil {
		return nil, "", err
	}
	defer p.downloadSem.Release(1)

	res, err := p.do(ctx, url, p.downloadTimeout)
	if err != nil {
		return nil, "", err
	}
	return res.Body, res.ContentType, nil
}

// do runs the per-failure-class retry loop shared by Get and Download. A
// positive reqTimeout bounds each individual attempt, not the whole loop.
func (p *SessionPool) do(ctx context.Context, url string, reqTimeout time.Duration) (*fetchResult, error) {
	var lastErr error

	for attempt := 0; attempt < p.retryCfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.backoff.NextDelay(attempt)
			if typed, ok := lastErr.(*errs.Error); ok && typed.Type == errs.ErrorTypeChallenge {
				delay = p.challengeBackoff.NextDelay(attempt)
			}
			if err := retry.Wait(ctx, delay); err != nil {
				return nil, err
			}
		}

		idx, sess := p.acquire()

		res, err := fetchOnce(ctx, sess, url, reqTimeout)
		if err != nil {
			if errs.IsFatal(err) {
				return nil, err
			}
			lastErr = err
			continue
		}

		switch {
		case res.Status == 200:
			return res, nil

		case res.Status == 429:
			logger.LogRateLimit(url, 0)
			lastErr = &errs.Error{
				Type:    errs.ErrorTypeRateLimit,
				Message: "rate limited",
				Code:    429,
			}

		case res.Status == 403:
			lastErr = &errs.Error{
				Type:    errs.ErrorTypeChallenge,
				Message: "challenged, re-establishing session",
				Code:    403,
			}
			if rerr := p.refresh(ctx, idx, sess); rerr != nil {
				p.log.WithError(rerr).Warn("session re-establishment failed")
			}

		case res.Status == 404:
			return nil, &errs.Error{
				Type:    errs.ErrorTypeNotFound,
				Message: fmt.Sprintf("not found: %s", url),
				Code:    404,
			}

		case res.Status >= 500:
			lastErr = &errs.Error{
				Type:    errs.ErrorTypeServerError,
				Message: fmt.Sprintf("server returned %d", res.Status),
				Code:    res.Status,
			}

		default:
			return nil, &errs.Error{
				Type:    errs.ErrorTypeUnknown,
				Message: fmt.Sprintf("unexpected status %d for %s", res.Status, url),
				Code:    res.Status,
			}
		}
	}

	if lastErr == nil {
		lastErr = &errs.Error{Type: errs.ErrorTypeUnknown, Message: "request failed"}
	}
	return nil, fmt.Errorf("gave up on %s after %d attempts: %w", shorten(url), p.retryCfg.MaxAttempts, lastErr)
}

// fetchOnce applies the per-attempt deadline, when one is configured.
func fetchOnce(ctx context.Context, sess *Session, url string, timeout time.Duration) (*fetchResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return sess.fetch(ctx, url)
}

func shorten(url string) string {
	if i := strings.Index(url, "?"); i > 0 {
		return url[:i] + "?..."
	}
	return url
}
