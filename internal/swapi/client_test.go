package swapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/starship-shop/internal/domain/catalog"
)

const pageOne = `{
	"count": 36,
	"next": "https://swapi.dev/api/starships/?page=2",
	"previous": null,
	"results": [
		{
			"name": "CR90 corvette",
			"model": "CR90 corvette",
			"manufacturer": "Corellian Engineering Corporation",
			"cost_in_credits": "3500000",
			"length": "150",
			"crew": "30-165",
			"starship_class": "corvette",
			"pilots": [],
			"films": ["https://swapi.dev/api/films/1/"],
			"url": "https://swapi.dev/api/starships/2/"
		},
		{
			"name": "Death Star",
			"model": "DS-1 Orbital Battle Station",
			"cost_in_credits": "1,000,000,000,000",
			"starship_class": "Deep Space Mobile Battlestation",
			"url": "https://swapi.dev/api/starships/9/"
		},
		{
			"name": "Millennium Falcon",
			"cost_in_credits": "unknown",
			"url": "https://swapi.dev/api/starships/10/"
		},
		{
			"name": "Numeric Cost",
			"cost_in_credits": 120000,
			"url": "https://swapi.dev/api/starships/77/"
		},
		{
			"name": "No URL",
			"cost_in_credits": null
		}
	]
}`

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", Options{})
}

func TestFetchPage_OversizedCosts(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"count":2,"next":null,"previous":null,"results":[
			{"name":"Huge String","cost_in_credits":"1e400","url":"https://swapi.dev/api/starships/90/"},
			{"name":"Huge Number","cost_in_credits":1e30,"url":"https://swapi.dev/api/starships/91/"}
		]}`))
	})

	p, err := c.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, p.Items, 2)
	for _, it := range p.Items {
		assert.False(t, it.Cost.Known(), it.Name)
	}
	assert.Equal(t, "1e400", p.Items[0].Cost.Raw())
}

func TestFetchPage(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pageOne))
	})

	p, err := c.FetchPage(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "/starships/", gotPath)
	assert.Equal(t, "page=1", gotQuery)
	assert.Equal(t, 36, p.Count)
	assert.True(t, p.HasMore())
	assert.Empty(t, p.Previous)
	require.Len(t, p.Items, 5)

	corvette := p.Items[0]
	assert.Equal(t, "2", corvette.ID)
	assert.Equal(t, "CR90 corvette", corvette.Name)
	assert.Equal(t, "Corellian Engineering Corporation", corvette.Manufacturer)
	assert.Equal(t, "corvette", corvette.StarshipClass)
	units, ok := corvette.Cost.Units()
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(3500000).Equal(units))

	deathStar := p.Items[1]
	assert.Equal(t, "9", deathStar.ID)
	units, ok = deathStar.Cost.Units()
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("1000000000000").Equal(units))

	falcon := p.Items[2]
	assert.Equal(t, "10", falcon.ID)
	assert.False(t, falcon.Cost.Known())
	assert.Equal(t, "unknown", falcon.Cost.Raw())

	numeric := p.Items[3]
	units, ok = numeric.Cost.Units()
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(120000).Equal(units))

	noURL := p.Items[4]
	assert.Equal(t, catalog.DeriveID("", "No URL"), noURL.ID)
	assert.False(t, noURL.Cost.Known())
}

func TestFetchPage_LastPage(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"count":36,"next":null,"previous":"https://swapi.dev/api/starships/?page=3","results":[]}`))
	})

	p, err := c.FetchPage(context.Background(), 4)
	require.NoError(t, err)
	assert.False(t, p.HasMore())
	assert.Equal(t, "https://swapi.dev/api/starships/?page=3", p.Previous)
	assert.Empty(t, p.Items)
}

func TestFetchPage_BadStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found"}`))
	})

	_, err := c.FetchPage(context.Background(), 99)

	var netErr *catalog.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusNotFound, netErr.Status)
	assert.Equal(t, "fetch starships", netErr.Op)
}

func TestFetchPage_MalformedBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": [`))
	})

	_, err := c.FetchPage(context.Background(), 1)

	var netErr *catalog.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Zero(t, netErr.Status)
}

func TestFetchPage_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL, Options{})
	srv.Close()

	_, err := c.FetchPage(context.Background(), 1)

	var netErr *catalog.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Error(t, netErr.Err)
}

func TestSearch(t *testing.T) {
	var gotSearch string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		_, _ = w.Write([]byte(`{"count":1,"next":null,"previous":null,"results":[
			{"name":"Millennium Falcon","cost_in_credits":"100000","url":"https://swapi.dev/api/starships/10/"}
		]}`))
	})

	items, err := c.Search(context.Background(), "millennium falcon")
	require.NoError(t, err)
	assert.Equal(t, "millennium falcon", gotSearch)
	require.Len(t, items, 1)
	assert.Equal(t, "10", items[0].ID)
}

func TestSearch_BlankQuerySkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	})

	items, err := c.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Zero(t, calls.Load())
}

func TestSearch_BadStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Search(context.Background(), "x-wing")

	var netErr *catalog.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "search starships", netErr.Op)
	assert.Equal(t, http.StatusBadGateway, netErr.Status)
}

func TestNew_TrimsBaseURL(t *testing.T) {
	assert.Equal(t, "https://example.com/api", New("https://example.com/api///", Options{}).BaseURL())
	assert.Equal(t, DefaultBaseURL, New("", Options{}).BaseURL())
}
