// Package components fetches partial API responses. The remote API only
// returns the components a request names, so each feature declares the
// components it needs together with a pure function narrowing the combined
// response to the value it wants; Resolve runs the fetch for any such
// Resolver.
package components

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iTrooz/componentcache/internal/cache"
)

const componentsParam = "components"

// Request is a call handed to a Transport.
type Request struct {
	// SessionID selects the credentials of the call; empty means anonymous.
	SessionID string
	Method    string
	URL       string
	Body      any
}

// Transport performs requests against the remote API and returns the decoded
// payload of the response envelope.
type Transport interface {
	SendRequest(ctx context.Context, req Request) (json.RawMessage, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (json.RawMessage, error)

func (f TransportFunc) SendRequest(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}

// Resolver declares the components a feature needs and how to extract its
// data from the response. Resolvers are values without state and can be
// shared freely; Resolve must not perform I/O.
type Resolver[TResp, TData any] struct {
	Components []ComponentID
	Resolve    func(resp TResp) (TData, error)
}

// NewResolver builds a Resolver, copying ids.
func NewResolver[TResp, TData any](resolve func(TResp) (TData, error), ids ...ComponentID) Resolver[TResp, TData] {
	return Resolver[TResp, TData]{
		Components: append([]ComponentID(nil), ids...),
		Resolve:    resolve,
	}
}

// WithComponents sets the components query parameter of rawURL, replacing any
// existing one. The list is comma separated with unescaped commas. No
// parameter is added when ids is empty.
func WithComponents(rawURL string, ids []ComponentID) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if len(ids) == 0 {
		return u.String(), nil
	}

	var params []string
	for _, p := range strings.Split(u.RawQuery, "&") {
		if p == "" || p == componentsParam || strings.HasPrefix(p, componentsParam+"=") {
			continue
		}
		params = append(params, p)
	}
	params = append(params, componentsParam+"="+Join(ids))
	u.RawQuery = strings.Join(params, "&")

	return u.String(), nil
}

// Resolve fetches rawURL with the resolver's components and applies its
// extraction. Transport errors are returned untouched.
func Resolve[TResp, TData any](ctx context.Context, t Transport, sessionID, rawURL string, r Resolver[TResp, TData]) (TData, error) {
	var zero TData

	target, err := WithComponents(rawURL, r.Components)
	if err != nil {
		return zero, err
	}

	raw, err := t.SendRequest(ctx, Request{
		SessionID: sessionID,
		Method:    http.MethodGet,
		URL:       target,
	})
	if err != nil {
		return zero, err
	}

	var resp TResp
	if err := json.Unmarshal(raw, &resp); err != nil {
		return zero, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, target, err)
	}

	return r.Resolve(resp)
}

// ResolveCached is Resolve behind cache.GetOrCompute: a cached value for
// ns/key is returned without calling the transport.
func ResolveCached[TResp, TData any](
	ctx context.Context,
	c *cache.Cache,
	ns, key string,
	ttl time.Duration,
	t Transport,
	sessionID, rawURL string,
	r Resolver[TResp, TData],
) (TData, error) {
	return cache.GetOrCompute(ctx, c, ns, key, ttl, func(ctx context.Context) (TData, error) {
		return Resolve(ctx, t, sessionID, rawURL, r)
	})
}
