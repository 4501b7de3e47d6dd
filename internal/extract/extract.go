// Package extract fetches article text from a URL (HTML or PDF) or wraps pasted text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"readcast/internal/logger"
	"readcast/internal/util"
)

const (
	defaultTitle   = "Untitled Article"
	minContentLen  = 50
	maxBodyBytes   = 20 << 20
	defaultAttempt = 3
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var ErrTooShort = errors.New("extracted content is too short or empty")

type Parsed struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
}

// Error is a failed extraction with a message and a remediation the user can act on.
type Error struct {
	Message    string
	Suggestion string
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

type Extractor struct {
	http        *http.Client
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	log         *logger.Logger
}

func New(log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{
		http:        &http.Client{Timeout: 30 * time.Second},
		maxAttempts: defaultAttempt,
		sleep:       sleepContext,
		log:         log.Component("extractor"),
	}
}

// FromText wraps pasted article text.
func FromText(text, title string) Parsed {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	return Parsed{Title: title, Content: util.SanitizeText(text)}
}

// Parse downloads rawURL and extracts its title and body text, retrying with
// exponential backoff capped at five seconds.
func (e *Extractor) Parse(ctx context.Context, rawURL string) (Parsed, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Parsed{}, &Error{Message: "invalid article URL", Suggestion: "check that the URL starts with http:// or https://"}
	}
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		p, err := e.fetch(ctx, u)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < e.maxAttempts {
			wait := backoff(attempt)
			e.log.Warn("article fetch failed, retrying", "url", u.String(), "attempt", attempt, "wait", wait, "error", err)
			if err := e.sleep(ctx, wait); err != nil {
				lastErr = err
				break
			}
		}
	}
	return Parsed{}, friendly(lastErr)
}

func backoff(attempt int) time.Duration {
	d := time.Second << (attempt - 1)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func (e *Extractor) fetch(ctx context.Context, u *url.URL) (Parsed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Parsed{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.http.Do(req)
	if err != nil {
		return Parsed{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return Parsed{}, statusError{code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Parsed{}, fmt.Errorf("read article body: %w", err)
	}

	var title, content string
	if isPDF(resp.Header.Get("Content-Type"), u.Path, body) {
		content, err = PDFText(body)
	} else {
		title, content, err = ParseHTML(bytes.NewReader(body))
	}
	if err != nil {
		return Parsed{}, err
	}
	if len([]rune(content)) < minContentLen {
		return Parsed{}, ErrTooShort
	}
	if title == "" {
		title = defaultTitle
	}
	return Parsed{Title: title, Content: content, Source: u.Hostname()}, nil
}

func isPDF(contentType, path string, body []byte) bool {
	return strings.Contains(strings.ToLower(contentType), "application/pdf") ||
		strings.HasSuffix(strings.ToLower(path), ".pdf") ||
		bytes.HasPrefix(body, []byte("%PDF-"))
}

const pasteSuggestion = "paste the article text directly instead of a URL, or check that the URL is correct"

func friendly(err error) error {
	out := &Error{Message: "could not parse the article URL", Suggestion: pasteSuggestion, Err: err}
	var se statusError
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.As(err, &se) && se.code == http.StatusNotFound:
		out.Message = "article not found (404)"
	case errors.As(err, &se) && se.code == http.StatusForbidden:
		out.Message = "access denied, the site may block automated access"
		out.Suggestion = "copy the article text from your browser and import it as text"
	case errors.Is(err, ErrTooShort):
		out.Message = "could not find article content on the page"
	case errors.As(err, &dnsErr):
		out.Message = "cannot reach the URL, check your network connection"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		out.Message = "request timed out, try again later"
	case err != nil && strings.Contains(err.Error(), "connection reset"):
		out.Message = "network connection failed, check the URL or try again later"
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
