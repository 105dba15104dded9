package shipspotting

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"shipsnap/pkg/config"
	errs "shipsnap/pkg/errors"
	"shipsnap/pkg/logger"
)

// fetchResult is one HTTP response with the pieces callers care about.
type fetchResult struct {
	Status      int
	Body        []byte
	ContentType string
}

// Session is one browser-like HTTP client with its own cookie jar. A session
// that has passed the site's warm-up exchange can fetch gallery pages and
// images without tripping the anti-automation layer, until it gets
// challenged again.
type Session struct {
	client    *http.Client
	baseURL   string
	userAgent string
	log       logger.Logger
	createdAt time.Time
}

// newSession creates an unestablished session
func newSession(cfg *config.SiteConfig, log logger.Logger) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Session{
		client: &http.Client{
			Jar:     jar,
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: cfg.ConnectTimeout,
				}).DialContext,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		log:       log,
		createdAt: time.Now(),
	}, nil
}

// Establish performs the warm-up request that collects the cookies the site
// expects on subsequent requests.
func (s *Session) Establish(ctx context.Context) error {
	res, err := s.fetch(ctx, s.baseURL)
	if err != nil {
		return fmt.Errorf("session warm-up failed: %w", err)
	}
	if res.Status >= 400 {
		return &errs.Error{
			Type:    errs.ErrorTypeChallenge,
			Message: "session warm-up was rejected",
			Code:    res.Status,
		}
	}
	s.log.DebugWithFields("session established", map[string]interface{}{
		"status": res.Status,
	})
	return nil
}

// fetch performs a single GET with browser-like headers. Transport failures
// come back as typed network errors; HTTP status handling is the caller's.
func (s *Session) fetch(ctx context.Context, url string) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeFatal,
			Message: fmt.Sprintf("failed to build request for %s: %v", url, err),
		}
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", s.baseURL)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("request to %s failed: %v", url, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response from %s: %v", url, err),
		}
	}

	logger.LogRequest(http.MethodGet, url, resp.StatusCode, float64(time.Since(start).Milliseconds()))

	return &fetchResult{
		Status:      resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
