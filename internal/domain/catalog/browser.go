package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// State is a snapshot of the browsing state rendered by the presentation
// layer.
type State struct {
	Items         []Item
	SearchResults []Item
	Loading       bool
	SearchLoading bool
	Err           error
	SearchErr     error
	HasMore       bool
	CurrentPage   int
	Count         int
}

// Browser holds the catalog listing and search results along with their
// loading and error flags. Errors are captured here rather than returned to
// the caller's caller, so a failed fetch leaves the previous data visible.
type Browser struct {
	client Client
	lg     *zap.Logger

	mu    sync.Mutex
	state State
}

// NewBrowser creates a Browser that reads from client.
func NewBrowser(client Client, lg *zap.Logger) *Browser {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Browser{
		client: client,
		lg:     lg,
		state:  State{CurrentPage: 1},
	}
}

// FetchPage loads one catalog page, replacing the current listing on success.
// The error is also recorded in the state.
func (b *Browser) FetchPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}

	b.mu.Lock()
	b.state.Loading = true
	b.state.Err = nil
	b.mu.Unlock()

	p, err := b.client.FetchPage(ctx, page)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Loading = false
	if err != nil {
		b.lg.Warn("Fetch starships failed", zap.Int("page", page), zap.Error(err))
		b.state.Err = err
		return err
	}
	b.state.Items = p.Items
	b.state.HasMore = p.HasMore()
	b.state.CurrentPage = page
	b.state.Count = p.Count
	return nil
}

// Search queries the catalog and replaces the search results on success.
func (b *Browser) Search(ctx context.Context, query string) error {
	b.mu.Lock()
	b.state.SearchLoading = true
	b.state.SearchErr = nil
	b.mu.Unlock()

	items, err := b.client.Search(ctx, query)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.SearchLoading = false
	if err != nil {
		b.lg.Warn("Search starships failed", zap.String("query", query), zap.Error(err))
		b.state.SearchErr = err
		return err
	}
	b.state.SearchResults = items
	return nil
}

// ClearSearch drops search results and any search error.
func (b *Browser) ClearSearch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.SearchResults = nil
	b.state.SearchErr = nil
}

// Lookup finds an item by id among the loaded listing and search results.
func (b *Browser) Lookup(id string) (Item, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, it := range b.state.Items {
		if it.ID == id {
			return it, true
		}
	}
	for _, it := range b.state.SearchResults {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Snapshot returns a copy of the current state.
func (b *Browser) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.state
	s.Items = append([]Item(nil), b.state.Items...)
	s.SearchResults = append([]Item(nil), b.state.SearchResults...)
	return s
}
