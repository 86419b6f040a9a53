package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"startup-apply/internal/domain"
	"startup-apply/internal/query"
	"startup-apply/internal/repository"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrDuplicate
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) List(_ context.Context, q query.Query) ([]domain.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.usersByID {
		u := u
		if q.Match(func(f string) (string, bool) {
			switch f {
			case "name":
				return u.Name, true
			case "email":
				return u.Email, true
			}
			return "", false
		}) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, int64(len(out)), nil
}

func (m *mockUserRepo) Update(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.usersByID[user.ID]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	delete(m.usersByEmail, prev.Email)
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return user, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	delete(m.usersByID, id)
	delete(m.usersByEmail, user.Email)
	return user, nil
}

func (m *mockUserRepo) Summaries(_ context.Context, ids []string) (map[string]domain.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.UserSummary)
	for _, id := range ids {
		if u, ok := m.usersByID[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

type mockApplicationRepo struct {
	mu   sync.Mutex
	apps map[string]domain.Application
}

func newMockApplicationRepo() *mockApplicationRepo {
	return &mockApplicationRepo{apps: make(map[string]domain.Application)}
}

func (m *mockApplicationRepo) Create(_ context.Context, app domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[app.ID] = app
	return nil
}

func (m *mockApplicationRepo) GetByID(_ context.Context, id string) (domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return domain.Application{}, repository.ErrNotFound
	}
	return app, nil
}

func (m *mockApplicationRepo) List(_ context.Context, ownerID string, q query.Query) ([]domain.Application, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Application
	for _, a := range m.apps {
		if ownerID == "" || a.UserID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

// Mutate trabaja sobre una copia para que un fn que falla no deje cambios a medias.
func (m *mockApplicationRepo) Mutate(_ context.Context, id string, fn func(app *domain.Application) error) (domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.apps[id]
	if !ok {
		return domain.Application{}, repository.ErrNotFound
	}
	app := stored
	app.TeamMembers = append([]domain.TeamMember(nil), stored.TeamMembers...)
	app.Updates = append([]domain.Update(nil), stored.Updates...)
	app.Investments = append([]domain.Investment(nil), stored.Investments...)
	if stored.Fundraising != nil {
		fr := *stored.Fundraising
		app.Fundraising = &fr
	}
	if stored.Views != nil {
		v := *stored.Views
		v.UniqueUsers = append([]string(nil), stored.Views.UniqueUsers...)
		v.History = append([]domain.ViewEntry(nil), stored.Views.History...)
		app.Views = &v
	}
	if err := fn(&app); err != nil {
		return domain.Application{}, err
	}
	app.UpdatedAt = time.Now().UTC()
	m.apps[id] = app
	return app, nil
}

func (m *mockApplicationRepo) DeleteIf(_ context.Context, id string, fn func(app domain.Application) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := fn(app); err != nil {
		return err
	}
	delete(m.apps, id)
	return nil
}
