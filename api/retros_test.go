package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcblakeb/retro-relay/store"
)

type mockStore struct {
	retros map[string]store.Retro
	items  map[string]store.Item
}

func newMockStore() *mockStore {
	return &mockStore{
		retros: map[string]store.Retro{},
		items:  map[string]store.Item{},
	}
}

func (m *mockStore) CreateRetro(ctx context.Context, name string) (store.Retro, error) {
	r := store.Retro{ID: "r1", Name: name, CreatedAt: time.Now()}
	m.retros[r.ID] = r
	return r, nil
}

func (m *mockStore) ListRetros(ctx context.Context, limit, offset int) ([]store.Retro, error) {
	var out []store.Retro
	for _, r := range m.retros {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockStore) GetRetro(ctx context.Context, id string) (store.Retro, error) {
	r, ok := m.retros[id]
	if !ok {
		return store.Retro{}, store.ErrNotFound
	}
	return r, nil
}

func (m *mockStore) CreateItem(ctx context.Context, retroID, category, content string) (store.Item, error) {
	it := store.Item{ID: "i1", RetroID: retroID, Category: category, Content: content, CreatedAt: time.Now()}
	m.items[it.ID] = it
	return it, nil
}

func (m *mockStore) ListItems(ctx context.Context, retroID string) ([]store.Item, error) {
	var out []store.Item
	for _, it := range m.items {
		if it.RetroID == retroID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *mockStore) LikeItem(ctx context.Context, id string) (store.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return store.Item{}, store.ErrNotFound
	}
	it.Likes++
	m.items[id] = it
	return it, nil
}

func (m *mockStore) UnlikeItem(ctx context.Context, id string) (store.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return store.Item{}, store.ErrNotFound
	}
	if it.Likes > 0 {
		it.Likes--
	}
	m.items[id] = it
	return it, nil
}

func (m *mockStore) DeleteItem(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func serve(t *testing.T, db Store, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	a := &RetroAPI{DB: db}

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	a.Routes().ServeHTTP(rec, req)
	return rec
}

func TestCreateRetro(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"valid", `{"name":"sprint 42"}`, http.StatusCreated},
		{"empty name", `{"name":"  "}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, newMockStore(), http.MethodPost, "/api/retros", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestGetRetro_NotFound(t *testing.T) {
	rec := serve(t, newMockStore(), http.MethodGet, "/api/retros/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateItem(t *testing.T) {
	db := newMockStore()
	db.retros["r1"] = store.Retro{ID: "r1", Name: "sprint 42"}

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"valid", `{"category":"went_well","content":"shipped the relay"}`, http.StatusCreated},
		{"unknown category", `{"category":"nope","content":"x"}`, http.StatusBadRequest},
		{"empty content", `{"category":"went_well","content":""}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, db, http.MethodPost, "/api/retros/r1/items", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestLikeUnlikeItem(t *testing.T) {
	db := newMockStore()
	db.items["i1"] = store.Item{ID: "i1", RetroID: "r1", Category: store.CategoryWentWell, Content: "x"}

	rec := serve(t, db, http.MethodPost, "/api/items/i1/like", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var it itemDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &it))
	assert.Equal(t, 1, it.Likes)

	rec = serve(t, db, http.MethodPost, "/api/items/i1/unlike", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &it))
	assert.Equal(t, 0, it.Likes)

	// likes never go negative
	rec = serve(t, db, http.MethodPost, "/api/items/i1/unlike", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &it))
	assert.Equal(t, 0, it.Likes)

	rec = serve(t, db, http.MethodPost, "/api/items/ghost/like", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteItem(t *testing.T) {
	db := newMockStore()
	db.items["i1"] = store.Item{ID: "i1", RetroID: "r1"}

	rec := serve(t, db, http.MethodDelete, "/api/items/i1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, db, http.MethodDelete, "/api/items/i1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
