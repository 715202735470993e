package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muni-gth/papeletas-api/internal/models"
)

func authedController(t *testing.T, remoteAPI *fakeRemote, pageSize int) *Controller {
	t.Helper()
	if remoteAPI.resumen == nil {
		remoteAPI.resumen = testResumen()
	}
	s := New(remoteAPI, nil, nil)
	_, err := s.Authenticate(context.Background(), "12345678")
	require.NoError(t, err)
	return NewController(s, pageSize)
}

func TestControllerDefaults(t *testing.T) {
	c := authedController(t, &fakeRemote{}, 0)

	q := c.Query()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 9, q.PageSize)
	assert.Equal(t, models.FilterTodas, q.StatusFilter)
	assert.Empty(t, q.Search)
}

func TestSetStatusFilterResetsPage(t *testing.T) {
	remoteAPI := &fakeRemote{listPagination: models.Pagination{TotalPages: 5, CurrentPage: 1}}
	c := authedController(t, remoteAPI, 9)

	_, _, err := c.Refresh(context.Background())
	require.NoError(t, err)

	_, _, err = c.SetPage(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Query().Page)

	_, _, err = c.SetStatusFilter(context.Background(), models.FilterAprobadas)
	require.NoError(t, err)

	q := c.Query()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, models.FilterAprobadas, q.StatusFilter)
	assert.Equal(t, 1, remoteAPI.lastQuery.Page)
	assert.Equal(t, models.FilterAprobadas, remoteAPI.lastQuery.StatusFilter)
}

func TestSetSearchResetsPageAndTrims(t *testing.T) {
	remoteAPI := &fakeRemote{listPagination: models.Pagination{TotalPages: 4, CurrentPage: 1}}
	c := authedController(t, remoteAPI, 9)

	_, _, err := c.Refresh(context.Background())
	require.NoError(t, err)

	_, _, err = c.SetPage(context.Background(), 2)
	require.NoError(t, err)

	_, _, err = c.SetSearch(context.Background(), "  lima  ")
	require.NoError(t, err)

	q := c.Query()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, "lima", q.Search)
}

func TestSetPageRejectsOutOfRangeWithoutFetching(t *testing.T) {
	remoteAPI := &fakeRemote{listPagination: models.Pagination{TotalPages: 2, CurrentPage: 1}}
	c := authedController(t, remoteAPI, 9)

	_, _, err := c.Refresh(context.Background())
	require.NoError(t, err)
	calls := remoteAPI.listCalls

	_, _, err = c.SetPage(context.Background(), 0)
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	_, _, err = c.SetPage(context.Background(), 3)
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	assert.Equal(t, calls, remoteAPI.listCalls)
	assert.Equal(t, 1, c.Query().Page)
}

func TestApplyFilterChangeWinsOverPage(t *testing.T) {
	remoteAPI := &fakeRemote{listPagination: models.Pagination{TotalPages: 5, CurrentPage: 1}}
	c := authedController(t, remoteAPI, 9)

	_, _, err := c.Refresh(context.Background())
	require.NoError(t, err)

	// Same filter: page honored.
	_, _, err = c.Apply(context.Background(), models.FilterTodas, "", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Query().Page)

	// Changed filter: page resets even though the request names page 3.
	_, _, err = c.Apply(context.Background(), models.FilterPendientes, "", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Query().Page)
	assert.Equal(t, 1, remoteAPI.lastQuery.Page)
}

func TestApplyOutOfRangePage(t *testing.T) {
	remoteAPI := &fakeRemote{listPagination: models.Pagination{TotalPages: 2, CurrentPage: 1}}
	c := authedController(t, remoteAPI, 9)

	_, _, err := c.Refresh(context.Background())
	require.NoError(t, err)

	_, _, err = c.Apply(context.Background(), models.FilterTodas, "", 9)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestPageWindowSinglePage(t *testing.T) {
	remoteAPI := &fakeRemote{listPagination: models.Pagination{TotalRecords: 3, TotalPages: 1, CurrentPage: 1}}
	c := authedController(t, remoteAPI, 9)
	_, _, err := c.Refresh(context.Background())
	require.NoError(t, err)

	w := c.PageWindow()
	assert.False(t, w.Render)
	assert.Equal(t, 1, w.Current)
	assert.Equal(t, 1, w.Total)
}

func TestPageWindowMiddlePage(t *testing.T) {
	remoteAPI := &fakeRemote{listPagination: models.Pagination{TotalRecords: 30, TotalPages: 4, CurrentPage: 2}}
	c := authedController(t, remoteAPI, 9)
	_, _, err := c.Refresh(context.Background())
	require.NoError(t, err)

	w := c.PageWindow()
	assert.True(t, w.Render)
	assert.True(t, w.HasPrev)
	assert.True(t, w.HasNext)
	assert.Equal(t, 2, w.Current)
	assert.Equal(t, 4, w.Total)
}

func TestPageWindowEdges(t *testing.T) {
	remoteAPI := &fakeRemote{listPagination: models.Pagination{TotalRecords: 30, TotalPages: 4, CurrentPage: 1}}
	c := authedController(t, remoteAPI, 9)
	_, _, err := c.Refresh(context.Background())
	require.NoError(t, err)

	w := c.PageWindow()
	assert.True(t, w.Render)
	assert.False(t, w.HasPrev)
	assert.True(t, w.HasNext)

	remoteAPI.listPagination = models.Pagination{TotalRecords: 30, TotalPages: 4, CurrentPage: 4}
	_, _, err = c.SetPage(context.Background(), 4)
	require.NoError(t, err)

	w = c.PageWindow()
	assert.True(t, w.HasPrev)
	assert.False(t, w.HasNext)
}

func TestRegistrySessionLifecycle(t *testing.T) {
	remoteAPI := &fakeRemote{resumen: testResumen()}
	r := NewRegistry(remoteAPI, nil, nil, 9)

	assert.Nil(t, r.Get("s-1"))

	first := r.GetOrCreate("s-1")
	assert.Same(t, first, r.GetOrCreate("s-1"))
	assert.Equal(t, 1, r.Len())

	_, err := first.Store.Authenticate(context.Background(), "12345678")
	require.NoError(t, err)

	r.Remove("s-1")
	r.Remove("s-1")
	assert.Nil(t, r.Get("s-1"))
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, first.Store.Snapshot().Identity)
}
