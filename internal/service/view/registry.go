package view

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/sentichat/internal/model/chat"
)

var (
	ErrPageRequired = errors.New("page is required")
	ErrViewNotFound = errors.New("view not found")
)

// Registry tracks the view instances currently mounted on the web host.
type Registry struct {
	mu    sync.RWMutex
	views map[string]chat.ViewSession
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string]chat.ViewSession)}
}

// Mount records a new view instance rendering page with the given surfaces.
func (r *Registry) Mount(_ context.Context, page chat.Page, surfaces []string) (chat.ViewSession, error) {
	if page == "" {
		return chat.ViewSession{}, ErrPageRequired
	}

	session := chat.ViewSession{
		ID:        uuid.NewString(),
		Page:      page,
		Surfaces:  append([]string(nil), surfaces...),
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.views[session.ID] = session
	r.mu.Unlock()

	return session, nil
}

// Unmount forgets a view instance.
func (r *Registry) Unmount(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[id]; !ok {
		return ErrViewNotFound
	}
	delete(r.views, id)
	return nil
}

// Get retrieves a mounted view by identifier.
func (r *Registry) Get(_ context.Context, id string) (chat.ViewSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.views[id]
	if !ok {
		return chat.ViewSession{}, ErrViewNotFound
	}
	return session, nil
}

// List returns mounted views, oldest first.
func (r *Registry) List(_ context.Context) []chat.ViewSession {
	r.mu.RLock()
	out := make([]chat.ViewSession, 0, len(r.views))
	for _, session := range r.views {
		out = append(out, session)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count is the number of mounted views.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}
