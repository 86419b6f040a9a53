package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"startup-apply/internal/domain"
	"startup-apply/internal/policy"
	"startup-apply/internal/query"
	"startup-apply/internal/repository"
)

type mockApplicationRepo struct {
	mu   sync.Mutex
	apps map[string]domain.Application
}

func newMockApplicationRepo() *mockApplicationRepo {
	return &mockApplicationRepo{apps: make(map[string]domain.Application)}
}

func cloneApplication(a domain.Application) domain.Application {
	out := a
	out.TeamMembers = append([]domain.TeamMember(nil), a.TeamMembers...)
	out.Updates = append([]domain.Update(nil), a.Updates...)
	out.Investments = append([]domain.Investment(nil), a.Investments...)
	if a.Fundraising != nil {
		fr := *a.Fundraising
		out.Fundraising = &fr
	}
	if a.Views != nil {
		v := *a.Views
		v.UniqueUsers = append([]string(nil), a.Views.UniqueUsers...)
		v.History = append([]domain.ViewEntry(nil), a.Views.History...)
		out.Views = &v
	}
	return out
}

func (m *mockApplicationRepo) Create(_ context.Context, app domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[app.ID] = cloneApplication(app)
	return nil
}

func (m *mockApplicationRepo) GetByID(_ context.Context, id string) (domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return domain.Application{}, repository.ErrNotFound
	}
	return cloneApplication(app), nil
}

func applicationField(a domain.Application) func(string) (string, bool) {
	return func(field string) (string, bool) {
		switch field {
		case "companyName":
			return a.CompanyName, true
		case "industry":
			return a.Industry, true
		case "location":
			return a.Location, true
		case "status":
			return a.Status, true
		case "userId":
			return a.UserID, true
		}
		return "", false
	}
}

func (m *mockApplicationRepo) List(_ context.Context, ownerID string, q query.Query) ([]domain.Application, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []domain.Application
	for _, a := range m.apps {
		if ownerID != "" && a.UserID != ownerID {
			continue
		}
		if q.Match(applicationField(a)) {
			matched = append(matched, cloneApplication(a))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if q.SortDesc {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	start := q.Skip()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *mockApplicationRepo) Mutate(_ context.Context, id string, fn func(app *domain.Application) error) (domain.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.apps[id]
	if !ok {
		return domain.Application{}, repository.ErrNotFound
	}
	app := cloneApplication(stored)
	if err := fn(&app); err != nil {
		return domain.Application{}, err
	}
	app.UpdatedAt = time.Now().UTC()
	m.apps[id] = cloneApplication(app)
	return app, nil
}

func (m *mockApplicationRepo) DeleteIf(_ context.Context, id string, fn func(app domain.Application) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := fn(cloneApplication(app)); err != nil {
		return err
	}
	delete(m.apps, id)
	return nil
}

type appFixture struct {
	svc   *ApplicationService
	apps  *mockApplicationRepo
	users *mockUserRepo
	owner domain.User
	other domain.User
}

func newAppFixture(t *testing.T) appFixture {
	t.Helper()
	users := newMockUserRepo()
	owner := domain.User{ID: "owner-1", Name: "Owner", Email: "owner@example.com", PasswordHash: "h"}
	other := domain.User{ID: "other-1", Name: "Other", Email: "other@example.com", PasswordHash: "h"}
	require.NoError(t, users.Create(context.Background(), owner))
	require.NoError(t, users.Create(context.Background(), other))
	apps := newMockApplicationRepo()
	return appFixture{
		svc:   NewApplicationService(zap.NewNop(), apps, users),
		apps:  apps,
		users: users,
		owner: owner,
		other: other,
	}
}

func draftApplication() domain.Application {
	return domain.Application{
		CompanyName:   "Acme",
		Industry:      "fintech",
		FoundedDate:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Location:      "Buenos Aires",
		TeamSize:      1,
		Pitch:         "pitch",
		Problem:       "problem",
		Solution:      "solution",
		MarketSize:    "big",
		Competition:   "few",
		BusinessModel: "saas",
		FundingStage:  "seed",
		FundingNeeded: 100000,
	}
}

func (f appFixture) create(t *testing.T, mutate func(a *domain.Application)) ApplicationView {
	t.Helper()
	draft := draftApplication()
	if mutate != nil {
		mutate(&draft)
	}
	view, err := f.svc.Create(context.Background(), policy.Actor{UserID: f.owner.ID}, draft)
	require.NoError(t, err)
	return view
}

func TestCreateApplication(t *testing.T) {
	f := newAppFixture(t)
	view := f.create(t, nil)

	assert.NotEmpty(t, view.ID)
	assert.Equal(t, f.owner.ID, view.UserID)
	assert.Equal(t, domain.StatusUnderReview, view.Status)
	assert.Equal(t, domain.ViewCounts{}, view.Views)
}

func TestCreateApplication_Validation(t *testing.T) {
	f := newAppFixture(t)
	ctx := context.Background()
	actor := policy.Actor{UserID: f.owner.ID}

	bad := draftApplication()
	bad.Industry = "mining"
	_, err := f.svc.Create(ctx, actor, bad)
	assert.True(t, errors.Is(err, ErrValidation))

	approved := draftApplication()
	approved.Status = domain.StatusApproved
	_, err = f.svc.Create(ctx, actor, approved)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = f.svc.Create(ctx, policy.Actor{}, draftApplication())
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestGetApplication_ExpandsOwnerAndViewers(t *testing.T) {
	f := newAppFixture(t)
	ctx := context.Background()
	view := f.create(t, nil)

	_, err := f.svc.IncrementView(ctx, policy.Actor{UserID: f.other.ID}, view.ID)
	require.NoError(t, err)
	_, err = f.svc.IncrementView(ctx, policy.Actor{}, view.ID)
	require.NoError(t, err)

	detail, err := f.svc.Get(ctx, policy.Actor{UserID: f.other.ID}, view.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Owner)
	assert.Equal(t, f.owner.Summary(), *detail.Owner)
	assert.Equal(t, 2, detail.Views.Total)
	assert.Equal(t, 1, detail.Views.Unique)
	assert.Equal(t, []domain.UserSummary{f.other.Summary()}, detail.Views.Viewers)

	_, err = f.svc.Get(ctx, policy.Actor{UserID: f.other.ID}, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListApplications_ScopedByRole(t *testing.T) {
	f := newAppFixture(t)
	ctx := context.Background()
	f.create(t, nil)
	f.create(t, func(a *domain.Application) { a.CompanyName = "Beta" })
	_, err := f.svc.Create(ctx, policy.Actor{UserID: f.other.ID}, draftApplication())
	require.NoError(t, err)

	own, err := f.svc.List(ctx, policy.Actor{UserID: f.owner.ID}, query.Default())
	require.NoError(t, err)
	assert.Equal(t, int64(2), own.Total)
	for _, v := range own.Data {
		assert.Equal(t, f.owner.ID, v.UserID)
		require.NotNil(t, v.Owner)
		assert.Equal(t, f.owner.Email, v.Owner.Email)
	}

	all, err := f.svc.List(ctx, policy.Actor{UserID: "admin", IsAdmin: true}, query.Default())
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)

	q, err := query.Build(map[string]string{"search": "bet"}, ApplicationSearchFields)
	require.NoError(t, err)
	found, err := f.svc.ListAll(ctx, policy.Actor{UserID: "admin", IsAdmin: true}, q)
	require.NoError(t, err)
	require.Len(t, found.Data, 1)
	assert.Equal(t, "Beta", found.Data[0].CompanyName)

	_, err = f.svc.ListAll(ctx, policy.Actor{UserID: f.owner.ID}, query.Default())
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestUpdateApplication(t *testing.T) {
	f := newAppFixture(t)
	ctx := context.Background()
	view := f.create(t, nil)

	name := "Acme Labs"
	updated, err := f.svc.Update(ctx, policy.Actor{UserID: f.owner.ID}, view.ID, ApplicationPatch{CompanyName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Acme Labs", updated.CompanyName)
	assert.Equal(t, f.owner.ID, updated.UserID)

	_, err = f.svc.Update(ctx, policy.Actor{UserID: f.other.ID}, view.ID, ApplicationPatch{CompanyName: &name})
	assert.True(t, errors.Is(err, ErrNotFound))

	industry := "mining"
	_, err = f.svc.Update(ctx, policy.Actor{UserID: f.owner.ID}, view.ID, ApplicationPatch{Industry: &industry})
	assert.True(t, errors.Is(err, ErrValidation))

	stored, err := f.apps.GetByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "fintech", stored.Industry)
}

func TestUpdateApplication_TeamSizeFollowsMembers(t *testing.T) {
	f := newAppFixture(t)
	ctx := context.Background()
	owner := policy.Actor{UserID: f.owner.ID}

	bare := f.create(t, nil)
	size := 4
	updated, err := f.svc.Update(ctx, owner, bare.ID, ApplicationPatch{TeamSize: &size})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.TeamSize)

	staffed := f.create(t, func(a *domain.Application) {
		a.TeamMembers = []domain.TeamMember{
			{Name: "Ana", Role: "CEO"},
			{Name: "Luis", Role: "CTO"},
		}
	})
	require.Equal(t, 2, staffed.TeamSize)

	size = 40
	updated, err = f.svc.Update(ctx, owner, staffed.ID, ApplicationPatch{TeamSize: &size})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.TeamSize)

	stored, err := f.apps.GetByID(ctx, staffed.ID)
	require.NoError(t, err)
	assert.Equal(t, len(stored.TeamMembers), stored.TeamSize)
}

func TestDeleteApplication(t *testing.T) {
	f := newAppFixture(t)
	ctx := context.Background()
	view := f.create(t, nil)

	err := f.svc.Delete(ctx, policy.Actor{UserID: f.other.ID}, view.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = f.svc.Delete(ctx, policy.Actor{UserID: "admin", IsAdmin: true}, view.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, f.svc.Delete(ctx, policy.Actor{UserID: f.owner.ID}, view.ID))
	_, err = f.apps.GetByID(ctx, view.ID)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestUpdateStatus(t *testing.T) {
	f := newAppFixture(t)
	ctx := context.Background()
	view := f.create(t, nil)

	_, err := f.svc.UpdateStatus(ctx, policy.Actor{UserID: f.owner.ID}, view.ID, domain.StatusApproved)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = f.svc.UpdateStatus(ctx, policy.Actor{UserID: f.owner.ID}, "missing", domain.StatusApproved)
	assert.True(t, errors.Is(err, ErrForbidden))

	admin := policy.Actor{UserID: "admin", IsAdmin: true}
	_, err = f.svc.UpdateStatus(ctx, admin, view.ID, "shipped")
	assert.True(t, errors.Is(err, ErrValidation))

	updated, err := f.svc.UpdateStatus(ctx, admin, view.ID, domain.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status)
}

func TestIncrementView_Counts(t *testing.T) {
	f := newAppFixture(t)
	ctx := context.Background()
	view := f.create(t, nil)

	callers := []string{"", "u1", "u2", "u1", "", "u3", "u2"}
	var counts domain.ViewCounts
	for _, uid := range callers {
		var err error
		counts, err = f.svc.IncrementView(ctx, policy.Actor{UserID: uid}, view.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, len(callers), counts.Total)
	assert.Equal(t, 3, counts.Unique)

	stored, err := f.apps.GetByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Views.History, 3)
}

func TestIncrementView_Concurrent(t *testing.T) {
	f := newAppFixture(t)
	view := f.create(t, nil)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := ""
			if i%2 == 0 {
				uid = "u" + strconv.Itoa(i%10)
			}
			_, err := f.svc.IncrementView(context.Background(), policy.Actor{UserID: uid}, view.ID)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := f.apps.GetByID(context.Background(), view.ID)
	require.NoError(t, err)
	counts := stored.Views.Counts()
	assert.Equal(t, n, counts.Total)
	assert.Equal(t, 5, counts.Unique)
}

func TestAddTeamMember(t *testing.T) {
	f := newAppFixture(t)
	ctx := context.Background()
	view := f.create(t, nil)
	owner := policy.Actor{UserID: f.owner.ID}

	updated, err := f.svc.AddTeamMember(ctx, owner, view.ID, domain.TeamMember{Name: "Lu", Role: "cto"})
	require.NoError(t, err)
	assert.Equal(t, len(updated.TeamMembers), updated.TeamSize)
	assert.NotEmpty(t, updated.TeamMembers[0].ID)

	_, err = f.svc.AddTeamMember(ctx, owner, view.ID, domain.TeamMember{Name: "No role"})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = f.svc.AddTeamMember(ctx, policy.Actor{UserID: f.other.ID}, view.ID, domain.TeamMember{Name: "X", Role: "dev"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAppendSubresource_FounderAllowed(t *testing.T) {
	f := newAppFixture(t)
	ctx := context.Background()
	view := f.create(t, nil)

	_, err := f.svc.AddTeamMember(ctx, policy.Actor{UserID: f.owner.ID}, view.ID, domain.TeamMember{
		Name: "Other", Role: domain.RoleFounder, UserID: f.other.ID,
	})
	require.NoError(t, err)

	updated, err := f.svc.AddUpdate(ctx, policy.Actor{UserID: f.other.ID}, view.ID, domain.Update{
		Title: "Launch", Content: "We launched", Type: "product",
	})
	require.NoError(t, err)
	require.Len(t, updated.Updates, 1)
	assert.False(t, updated.Updates[0].CreatedAt.IsZero())

	_, err = f.svc.AddUpdate(ctx, policy.Actor{UserID: "stranger"}, view.ID, domain.Update{
		Title: "x", Content: "y", Type: "news",
	})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = f.svc.AddUpdate(ctx, policy.Actor{UserID: f.owner.ID}, view.ID, domain.Update{
		Title: "x", Content: "y", Type: "gossip",
	})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestAddInvestment(t *testing.T) {
	f := newAppFixture(t)
	ctx := context.Background()
	owner := policy.Actor{UserID: f.owner.ID}
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	withRaise := f.create(t, func(a *domain.Application) {
		a.Fundraising = &domain.Fundraising{Goal: 1000, Raised: 100, Backers: 2}
	})
	updated, err := f.svc.AddInvestment(ctx, owner, withRaise.ID, domain.Investment{InvestorName: "VC", Amount: 250, Date: date})
	require.NoError(t, err)
	require.NotNil(t, updated.Fundraising)
	assert.Equal(t, 350.0, updated.Fundraising.Raised)
	assert.Equal(t, 3, updated.Fundraising.Backers)
	assert.Len(t, updated.Investments, 1)

	without := f.create(t, nil)
	updated, err = f.svc.AddInvestment(ctx, owner, without.ID, domain.Investment{InvestorName: "VC", Amount: 250, Date: date})
	require.NoError(t, err)
	assert.Nil(t, updated.Fundraising)
	assert.Len(t, updated.Investments, 1)

	_, err = f.svc.AddInvestment(ctx, owner, without.ID, domain.Investment{InvestorName: "VC", Amount: 0, Date: date})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = f.svc.AddInvestment(ctx, owner, "missing", domain.Investment{InvestorName: "VC", Amount: 1, Date: date})
	assert.True(t, errors.Is(err, ErrNotFound), fmt.Sprint(err))
}
