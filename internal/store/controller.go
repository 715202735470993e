package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/muni-gth/papeletas-api/internal/models"
)

// ErrPageOutOfRange is returned when a page change falls outside
// [1, totalPages] of the latest fetch. No request is issued for it.
var ErrPageOutOfRange = errors.New("store: requested page out of range")

// Controller owns the query state of the papeleta listing (page, page
// size, status filter, search term) and keeps it coherent: any filter or
// search change resets the page to 1 before the next fetch, and page
// changes are only honored within the bounds reported by the last fetch.
type Controller struct {
	store    *Store
	pageSize int

	mu           sync.Mutex
	page         int
	statusFilter int
	search       string
}

// NewController builds a controller starting at page 1 with no filter.
func NewController(s *Store, pageSize int) *Controller {
	if pageSize <= 0 {
		pageSize = 9
	}
	return &Controller{store: s, pageSize: pageSize, page: 1}
}

// Query returns the effective query tuple for the current state.
func (c *Controller) Query() models.ListQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.ListQuery{
		Page:         c.page,
		PageSize:     c.pageSize,
		StatusFilter: c.statusFilter,
		Search:       c.search,
	}
}

// Apply reconciles an incoming request against the current state and
// fetches. A changed status filter or search term resets the page to 1
// even when the request also names a page; an unchanged filter/search pair
// honors the requested page only within the known bounds.
func (c *Controller) Apply(ctx context.Context, statusFilter int, search string, page int) ([]models.Papeleta, models.Pagination, error) {
	search = strings.TrimSpace(search)

	c.mu.Lock()
	filterChanged := statusFilter != c.statusFilter || search != c.search
	c.statusFilter = statusFilter
	c.search = search
	if filterChanged {
		c.page = 1
	} else if page > 0 {
		total := c.store.Snapshot().Pagination.TotalPages
		if page != c.page && total > 0 && page > total {
			c.mu.Unlock()
			return nil, models.Pagination{}, ErrPageOutOfRange
		}
		c.page = page
	}
	query := models.ListQuery{
		Page:         c.page,
		PageSize:     c.pageSize,
		StatusFilter: c.statusFilter,
		Search:       c.search,
	}
	c.mu.Unlock()

	return c.store.FetchRecords(ctx, query)
}

// SetStatusFilter changes the status filter, resets the page to 1 and
// refetches.
func (c *Controller) SetStatusFilter(ctx context.Context, filter int) ([]models.Papeleta, models.Pagination, error) {
	c.mu.Lock()
	c.statusFilter = filter
	c.page = 1
	query := c.queryLocked()
	c.mu.Unlock()
	return c.store.FetchRecords(ctx, query)
}

// SetSearch changes the search term, resets the page to 1 and refetches.
func (c *Controller) SetSearch(ctx context.Context, term string) ([]models.Papeleta, models.Pagination, error) {
	c.mu.Lock()
	c.search = strings.TrimSpace(term)
	c.page = 1
	query := c.queryLocked()
	c.mu.Unlock()
	return c.store.FetchRecords(ctx, query)
}

// SetPage moves to the requested page. The change is honored only when
// 1 <= page <= totalPages of the latest snapshot; otherwise
// ErrPageOutOfRange is returned without issuing a fetch.
func (c *Controller) SetPage(ctx context.Context, page int) ([]models.Papeleta, models.Pagination, error) {
	total := c.store.Snapshot().Pagination.TotalPages

	c.mu.Lock()
	if page < 1 || (total > 0 && page > total) {
		c.mu.Unlock()
		return nil, models.Pagination{}, ErrPageOutOfRange
	}
	c.page = page
	query := c.queryLocked()
	c.mu.Unlock()

	return c.store.FetchRecords(ctx, query)
}

// Refresh refetches the current query unchanged.
func (c *Controller) Refresh(ctx context.Context) ([]models.Papeleta, models.Pagination, error) {
	c.mu.Lock()
	query := c.queryLocked()
	c.mu.Unlock()
	return c.store.FetchRecords(ctx, query)
}

func (c *Controller) queryLocked() models.ListQuery {
	return models.ListQuery{
		Page:         c.page,
		PageSize:     c.pageSize,
		StatusFilter: c.statusFilter,
		Search:       c.search,
	}
}

// PageWindow describes the pagination affordances for the current state:
// no previous control at page 1, no next control at the last page, and no
// control at all when there is at most one page.
type PageWindow struct {
	Render  bool `json:"render"`
	HasPrev bool `json:"hasPrev"`
	HasNext bool `json:"hasNext"`
	Current int  `json:"current"`
	Total   int  `json:"total"`
}

// PageWindow derives the affordances from the latest snapshot.
func (c *Controller) PageWindow() PageWindow {
	pagination := c.store.Snapshot().Pagination

	c.mu.Lock()
	current := c.page
	c.mu.Unlock()

	if pagination.CurrentPage > 0 {
		current = pagination.CurrentPage
	}
	total := pagination.TotalPages
	if total <= 1 {
		return PageWindow{Current: current, Total: total}
	}
	return PageWindow{
		Render:  true,
		HasPrev: current > 1,
		HasNext: current < total,
		Current: current,
		Total:   total,
	}
}
