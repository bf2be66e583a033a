package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/agentrt/agentrt/internal/apperr"
)

// allowedFetchMIMEPrefixes and allowedFetchMIMEExact form the preflight
// content-type allowlist from
// spec.md §4.2.
var allowedFetchMIMEPrefixes = []string{"text/"}
var allowedFetchMIMEExact = map[string]bool{
	"application/xhtml+xml": true,
	"application/json":      true,
	"application/xml":       true,
}

func mimeAllowed(mimeType string) bool {
	mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	if allowedFetchMIMEExact[mimeType] {
		return true
	}
	for _, p := range allowedFetchMIMEPrefixes {
		if strings.HasPrefix(mimeType, p) {
			return true
		}
	}
	return false
}

type fetchConfig struct {
	MaxBytes       int64
	TimeoutSeconds int
	MaxRedirects   int
}

// fetchURL implements the URL-safety rules of SPEC_FULL.md §4.2, directly
// grounded on the teacher's internal/tools/web_fetch.go doFetch (capped
// redirects via CheckRedirect, a hard per-request timeout), but tightened
// into the spec's reject-without-reading-body contract: a HEAD preflight
// must pass the size cap and MIME allowlist before any GET is attempted,
// and the GET body is read through a hard io.LimitReader regardless of
// what the server claims.
func fetchURL(ctx context.Context, rawURL string, cfg fetchConfig) (string, error) {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 3
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, "invalid URL", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", apperr.New(apperr.KindValidation, "only http and https URLs are supported")
	}

	redirectCount := 0
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			redirectCount++
			if redirectCount > maxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Preflight HEAD: must report Content-Length <= cap and an allowed MIME.
	headReq, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, "invalid URL", err)
	}
	headResp, err := client.Do(headReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperr.Wrap(apperr.KindTimeout, "HEAD request timed out", err)
		}
		if strings.Contains(err.Error(), "too many redirects") {
			return "", apperr.Wrap(apperr.KindValidation, "too many redirects", err)
		}
		return "", apperr.Wrap(apperr.KindInternal, "HEAD request failed", err)
	}
	headResp.Body.Close()

	cl := headResp.Header.Get("Content-Length")
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil {
		return "", apperr.New(apperr.KindOversize, "HEAD response did not report a Content-Length")
	}
	if n > maxBytes {
		return "", apperr.New(apperr.KindOversize, "resource exceeds max URL size")
	}
	contentType := headResp.Header.Get("Content-Type")
	if contentType == "" {
		return "", apperr.New(apperr.KindUnsupportedMIME, "HEAD response did not report a Content-Type")
	}
	if !mimeAllowed(contentType) {
		return "", apperr.New(apperr.KindUnsupportedMIME, "MIME type not allowed: "+contentType)
	}

	// Body fetch: streamed through a hard byte cap, body never buffered unbounded.
	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, "invalid URL", err)
	}
	redirectCount = 0
	resp, err := client.Do(getReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperr.Wrap(apperr.KindTimeout, "GET request timed out", err)
		}
		if strings.Contains(err.Error(), "too many redirects") {
			return "", apperr.Wrap(apperr.KindValidation, "too many redirects", err)
		}
		return "", apperr.Wrap(apperr.KindInternal, "GET request failed", err)
	}
	defer resp.Body.Close()

	finalContentType := resp.Header.Get("Content-Type")
	if finalContentType == "" {
		return "", apperr.New(apperr.KindUnsupportedMIME, "GET response did not report a Content-Type")
	}
	if !mimeAllowed(finalContentType) {
		return "", apperr.New(apperr.KindUnsupportedMIME, "MIME type not allowed: "+finalContentType)
	}

	limited := io.LimitReader(resp.Body, maxBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "read body failed", err)
	}
	if int64(len(body)) > maxBytes {
		return "", apperr.New(apperr.KindOversize, "resource exceeds max URL size")
	}

	return string(body), nil
}

// httpDetectContentType sniffs the first bytes of an uploaded file the
// way net/http.DetectContentType does, used when the extension alone is
// not informative.
func httpDetectContentType(data []byte) string {
	return http.DetectContentType(data)
}
