package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mcblakeb/retro-relay/store"
)

// Store is what the handlers need from persistence; *store.Postgres
// satisfies it.
type Store interface {
	CreateRetro(ctx context.Context, name string) (store.Retro, error)
	ListRetros(ctx context.Context, limit, offset int) ([]store.Retro, error)
	GetRetro(ctx context.Context, id string) (store.Retro, error)
	CreateItem(ctx context.Context, retroID, category, content string) (store.Item, error)
	ListItems(ctx context.Context, retroID string) ([]store.Item, error)
	LikeItem(ctx context.Context, id string) (store.Item, error)
	UnlikeItem(ctx context.Context, id string) (store.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

type RetroAPI struct {
	DB Store
}

type createRetroReq struct {
	Name string `json:"name"`
}

type createItemReq struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

type retroDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type itemDTO struct {
	ID        string    `json:"id"`
	RetroID   string    `json:"retroId"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Routes returns a mux with all retro CRUD endpoints. Patterns carry the
// /api prefix so the mux can be mounted at /api/ without stripping.
func (a *RetroAPI) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/retros", a.createRetro)
	mux.HandleFunc("GET /api/retros", a.listRetros)
	mux.HandleFunc("GET /api/retros/{id}", a.getRetro)
	mux.HandleFunc("POST /api/retros/{id}/items", a.createItem)
	mux.HandleFunc("GET /api/retros/{id}/items", a.listItems)
	mux.HandleFunc("POST /api/items/{id}/like", a.likeItem)
	mux.HandleFunc("POST /api/items/{id}/unlike", a.unlikeItem)
	mux.HandleFunc("DELETE /api/items/{id}", a.deleteItem)
	return mux
}

func (a *RetroAPI) createRetro(w http.ResponseWriter, r *http.Request) {
	var req createRetroReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ret, err := a.DB.CreateRetro(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		http.Error(w, "create failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toRetroDTO(ret))
}

func (a *RetroAPI) listRetros(w http.ResponseWriter, r *http.Request) {
	retros, err := a.DB.ListRetros(r.Context(), 100, 0)
	if err != nil {
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}

	out := make([]retroDTO, 0, len(retros))
	for _, ret := range retros {
		out = append(out, toRetroDTO(ret))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *RetroAPI) getRetro(w http.ResponseWriter, r *http.Request) {
	ret, err := a.DB.GetRetro(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRetroDTO(ret))
}

func (a *RetroAPI) createItem(w http.ResponseWriter, r *http.Request) {
	var req createItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if !store.ValidCategory(req.Category) {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return
	}

	it, err := a.DB.CreateItem(r.Context(), r.PathValue("id"), req.Category, strings.TrimSpace(req.Content))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemDTO(it))
}

func (a *RetroAPI) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.DB.ListItems(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]itemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, toItemDTO(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *RetroAPI) likeItem(w http.ResponseWriter, r *http.Request) {
	it, err := a.DB.LikeItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(it))
}

func (a *RetroAPI) unlikeItem(w http.ResponseWriter, r *http.Request) {
	it, err := a.DB.UnlikeItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(it))
}

func (a *RetroAPI) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := a.DB.DeleteItem(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toRetroDTO(r store.Retro) retroDTO {
	return retroDTO{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
}

func toItemDTO(it store.Item) itemDTO {
	return itemDTO{
		ID: it.ID, RetroID: it.RetroID, Category: it.Category,
		Content: it.Content, Likes: it.Likes, CreatedAt: it.CreatedAt,
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
