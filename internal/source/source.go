// Package source holds the upstream adapters. Each adapter normalizes one
// provider's payload into article.Article records and nothing else; all
// cross-source logic lives in the fetcher and downstream engines.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yhun1542/emarknews-stable/internal/article"
)

// Kind groups adapters for fast-phase subset selection.
type Kind string

const (
	KindAPI    Kind = "api"
	KindFeed   Kind = "feed"
	KindSocial Kind = "social"
	KindVideo  Kind = "video"
)

// Source is implemented by every adapter. Fetch either returns a (possibly
// empty) list of fully-formed articles or a classified *Error; it never
// returns partially-malformed items.
type Source interface {
	Name() string
	Kind() Kind
	Fetch(ctx context.Context) ([]article.Article, error)
}

// ErrKind classifies adapter failures.
type ErrKind int

const (
	// Unavailable means the call failed or timed out; the fetcher degrades
	// the source to an empty contribution.
	Unavailable ErrKind = iota
	// Malformed means the provider answered with an undecodable payload.
	Malformed
)

type Error struct {
	Source string
	Kind   ErrKind
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case Malformed:
		return fmt.Sprintf("source %s: malformed payload: %v", e.Source, e.Err)
	default:
		return fmt.Sprintf("source %s: unavailable: %v", e.Source, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func unavailable(source string, err error) *Error {
	return &Error{Source: source, Kind: Unavailable, Err: err}
}

func malformed(source string, err error) *Error {
	return &Error{Source: source, Kind: Malformed, Err: err}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// getJSON issues a GET and decodes the JSON body into out. Non-2xx statuses
// and decode failures come back classified.
func getJSON(ctx context.Context, client *http.Client, source, rawURL string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return unavailable(source, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return unavailable(source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return unavailable(source, fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return malformed(source, err)
	}
	return nil
}
