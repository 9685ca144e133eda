package components

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iTrooz/componentcache/internal/cache"
	"github.com/iTrooz/componentcache/internal/storage"
)

// Trimmed shape of a profile response, enough to exercise resolvers.
type profileResponse struct {
	Profile *struct {
		Data *struct {
			CharacterIDs []string `json:"characterIds"`
		} `json:"data"`
	} `json:"profile"`
	Characters *struct {
		Data map[string]struct {
			Light   int `json:"light"`
			ClassID int `json:"classType"`
		} `json:"data"`
	} `json:"characters"`
}

const profileFixture = `{
	"profile": {"data": {"characterIds": ["2305843009", "2305843010"]}},
	"characters": {"data": {
		"2305843009": {"light": 1810, "classType": 1},
		"2305843010": {"light": 1795, "classType": 2}
	}}
}`

var characterIDsResolver = NewResolver(func(resp profileResponse) ([]string, error) {
	if resp.Profile == nil || resp.Profile.Data == nil {
		return nil, &MissingAttributeError{Attribute: "profile.data"}
	}
	return resp.Profile.Data.CharacterIDs, nil
}, Profiles)

var highestLightResolver = NewResolver(func(resp profileResponse) (int, error) {
	if resp.Characters == nil {
		return 0, &MissingAttributeError{Attribute: "characters"}
	}
	best := 0
	for _, c := range resp.Characters.Data {
		best = max(best, c.Light)
	}
	return best, nil
}, Profiles, Characters)

func loadFixture(t *testing.T) profileResponse {
	t.Helper()
	var resp profileResponse
	require.NoError(t, json.Unmarshal([]byte(profileFixture), &resp))
	return resp
}

func TestResolver_PureExtraction(t *testing.T) {
	fixture := loadFixture(t)

	first, err := highestLightResolver.Resolve(fixture)
	require.NoError(t, err)
	second, err := highestLightResolver.Resolve(fixture)
	require.NoError(t, err)

	assert.Equal(t, 1810, first)
	assert.Equal(t, first, second)

	ids, err := characterIDsResolver.Resolve(fixture)
	require.NoError(t, err)
	assert.Equal(t, []string{"2305843009", "2305843010"}, ids)
}

func TestResolver_MissingAttribute(t *testing.T) {
	_, err := highestLightResolver.Resolve(profileResponse{})
	assert.ErrorIs(t, err, ErrMissingAttribute)

	var missing *MissingAttributeError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "characters", missing.Attribute)
}

func TestNewResolver_CopiesComponents(t *testing.T) {
	ids := []ComponentID{Profiles, Characters}
	r := NewResolver(func(string) (string, error) { return "", nil }, ids...)
	ids[0] = Vendors

	assert.Equal(t, []ComponentID{Profiles, Characters}, r.Components)
}

func TestResolve(t *testing.T) {
	var seen Request
	transport := TransportFunc(func(_ context.Context, req Request) (json.RawMessage, error) {
		seen = req
		assert.Contains(t, req.URL, "components=100,200")
		return json.RawMessage(profileFixture), nil
	})

	got, err := Resolve(context.Background(), transport, "session-1",
		"https://api.example.com/Destiny2/3/Profile/4611686018/", highestLightResolver)
	require.NoError(t, err)
	assert.Equal(t, 1810, got)

	assert.Equal(t, "GET", seen.Method)
	assert.Equal(t, "session-1", seen.SessionID)
	assert.Equal(t, "https://api.example.com/Destiny2/3/Profile/4611686018/?components=100,200", seen.URL)
}

func TestResolve_TransportErrorIsUntouched(t *testing.T) {
	boom := errors.New("upstream exploded")
	transport := TransportFunc(func(context.Context, Request) (json.RawMessage, error) {
		return nil, boom
	})

	_, err := Resolve(context.Background(), transport, "", "https://api.example.com/x/", highestLightResolver)
	assert.Same(t, boom, err)
}

func TestResolve_MalformedResponse(t *testing.T) {
	transport := TransportFunc(func(context.Context, Request) (json.RawMessage, error) {
		return json.RawMessage(`["not", "an", "object"]`), nil
	})

	_, err := Resolve(context.Background(), transport, "", "https://api.example.com/x/", highestLightResolver)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestResolve_ResolverErrorPropagates(t *testing.T) {
	transport := TransportFunc(func(context.Context, Request) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	})

	_, err := Resolve(context.Background(), transport, "", "https://api.example.com/x/", characterIDsResolver)
	assert.ErrorIs(t, err, ErrMissingAttribute)
}

func TestResolve_InvalidURL(t *testing.T) {
	called := false
	transport := TransportFunc(func(context.Context, Request) (json.RawMessage, error) {
		called = true
		return nil, nil
	})

	_, err := Resolve(context.Background(), transport, "", "://bad", highestLightResolver)
	assert.Error(t, err)
	assert.False(t, called)
}

func TestResolveCached(t *testing.T) {
	ctx := context.Background()
	store, err := storage.New(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	c := cache.New(store)

	calls := 0
	transport := TransportFunc(func(context.Context, Request) (json.RawMessage, error) {
		calls++
		return json.RawMessage(profileFixture), nil
	})

	for i := 0; i < 3; i++ {
		got, err := ResolveCached(ctx, c, "profiles", "4611686018:light", time.Hour,
			transport, "", "https://api.example.com/x/", highestLightResolver)
		require.NoError(t, err)
		assert.Equal(t, 1810, got)
	}
	assert.Equal(t, 1, calls)
}

func TestWithComponents(t *testing.T) {
	tests := []struct {
		name string
		url  string
		ids  []ComponentID
		want string
	}{
		{
			name: "no query",
			url:  "https://api.example.com/p/",
			ids:  []ComponentID{Profiles},
			want: "https://api.example.com/p/?components=100",
		},
		{
			name: "keeps other params",
			url:  "https://api.example.com/p/?lc=en",
			ids:  []ComponentID{ItemInstances, ItemStats},
			want: "https://api.example.com/p/?lc=en&components=300,304",
		},
		{
			name: "replaces existing components",
			url:  "https://api.example.com/p/?components=999&lc=fr",
			ids:  []ComponentID{Vendors, VendorSales},
			want: "https://api.example.com/p/?lc=fr&components=400,402",
		},
		{
			name: "no components",
			url:  "https://api.example.com/p/?lc=en",
			ids:  nil,
			want: "https://api.example.com/p/?lc=en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithComponents(tt.url, tt.ids)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
