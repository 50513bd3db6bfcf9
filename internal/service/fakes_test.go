package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/docextract/docextract/internal/cache"
	"github.com/docextract/docextract/internal/llm"
	"github.com/docextract/docextract/internal/model"
	"github.com/docextract/docextract/internal/repository"
)

type memProjects struct {
	mu       sync.Mutex
	projects map[string]*model.Project
	gets     int
	created  []*model.Project
	// afterGet runs once a GetProject result is taken, outside the lock.
	afterGet func()
}

func newMemProjects() *memProjects {
	return &memProjects{projects: make(map[string]*model.Project)}
}

func (m *memProjects) CreateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	m.created = append(m.created, &cp)
	return nil
}

func (m *memProjects) GetProject(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	m.gets++
	p, ok := m.projects[id]
	var cp model.Project
	if ok {
		cp = *p
	}
	hook := m.afterGet
	m.afterGet = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	return &cp, nil
}

func (m *memProjects) ProjectExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.projects[id]
	return ok, nil
}

func (m *memProjects) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return repository.ErrProjectNotFound
	}
	delete(m.projects, id)
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]*model.Project
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*model.Project)}
}

func (m *memCache) GetProject(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.entries[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return p, nil
}

func (m *memCache) SetProject(_ context.Context, p *model.Project, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[p.ID] = p
	return nil
}

func (m *memCache) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

type memUsers struct {
	mu      sync.Mutex
	users   map[string]*model.User
	keys    map[string]*model.APIKey
	refunds int
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]*model.User), keys: make(map[string]*model.APIKey)}
}

func (m *memUsers) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.UserID]; ok {
		return repository.ErrUserExists
	}
	cp := *u
	m.users[u.UserID] = &cp
	return nil
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ReplaceUser(_ context.Context, id string, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *u
	m.users[id] = &cp
	return nil
}

func (m *memUsers) DeleteUserCascade(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return 0, repository.ErrUserNotFound
	}
	delete(m.users, id)
	var n int64
	for digest, k := range m.keys {
		if k.UserID == id {
			delete(m.keys, digest)
			n++
		}
	}
	return n, nil
}

func (m *memUsers) ListAPIKeysByUserID(_ context.Context, userID string) ([]*model.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.APIKey
	for _, k := range m.keys {
		if k.UserID == userID {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memUsers) CreateAPIKey(_ context.Context, k *model.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[k.Digest]; ok {
		return repository.ErrAPIKeyExists
	}
	cp := *k
	m.keys[k.Digest] = &cp
	return nil
}

func (m *memUsers) FindAPIKeys(_ context.Context, digest string) ([]*model.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.keys[digest]; ok {
		return []*model.APIKey{k}, nil
	}
	return nil, nil
}

func (m *memUsers) ConsumeCredit(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.APICredits <= 0 {
		return 0, repository.ErrCreditsExhausted
	}
	u.APICredits--
	return u.APICredits, nil
}

func (m *memUsers) RefundCredit(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.APICredits++
	}
	m.refunds++
	return nil
}

func (m *memUsers) keysOf(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, k := range m.keys {
		if k.UserID == id {
			n++
		}
	}
	return n
}

type stubConverter struct {
	text  string
	err   error
	calls int
}

func (s *stubConverter) Convert(_ context.Context, _ []byte, ext string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if ext != "pdf" && ext != "png" && ext != "jpg" {
		return "", &model.UnsupportedTypeError{Kind: model.KindDocument, Value: ext}
	}
	return s.text, nil
}

type stubCompleter struct {
	out   json.RawMessage
	err   error
	calls int
}

func (s *stubCompleter) CompleteJSON(_ context.Context, _ llm.Completion) (json.RawMessage, error) {
	s.calls++
	return s.out, s.err
}
