package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"startup-apply/internal/domain"
	"startup-apply/internal/policy"
	"startup-apply/internal/query"
	"startup-apply/internal/repository"
)

// ApplicationSearchFields son los campos que recorre search en los listados.
var ApplicationSearchFields = []string{"companyName", "industry", "location"}

// ApplicationService aplica la politica de acceso sobre el repositorio de postulaciones.
type ApplicationService struct {
	logger *zap.Logger
	apps   repository.ApplicationRepository
	users  repository.UserRepository
	now    func() time.Time
}

func NewApplicationService(logger *zap.Logger, apps repository.ApplicationRepository, users repository.UserRepository) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		logger: logger,
		apps:   apps,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ApplicationView es la forma de listado: vistas reducidas a contadores.
type ApplicationView struct {
	domain.Application
	Owner *domain.UserSummary `json:"owner,omitempty"`
	Views domain.ViewCounts   `json:"views"`
}

// ViewDetail agrega los espectadores unicos expandidos.
type ViewDetail struct {
	Total   int                  `json:"total"`
	Unique  int                  `json:"unique"`
	Viewers []domain.UserSummary `json:"viewers"`
}

type ApplicationDetail struct {
	domain.Application
	Owner *domain.UserSummary `json:"owner,omitempty"`
	Views ViewDetail          `json:"views"`
}

func newView(app domain.Application) ApplicationView {
	return ApplicationView{Application: app, Views: app.Views.Counts()}
}

// Create guarda una postulacion del actor. Las colecciones iniciales reciben ids nuevos.
func (s *ApplicationService) Create(ctx context.Context, actor policy.Actor, app domain.Application) (ApplicationView, error) {
	if actor.Anonymous() {
		return ApplicationView{}, ErrForbidden
	}
	now := s.now()
	app.ID = uuid.NewString()
	app.UserID = actor.UserID
	app.Views = nil
	app.CreatedAt = now
	app.UpdatedAt = now

	switch app.Status {
	case "":
		app.Status = domain.StatusUnderReview
	case domain.StatusDraft, domain.StatusSubmitted, domain.StatusUnderReview:
	default:
		return ApplicationView{}, fmt.Errorf("%w: status %q cannot be set on create", ErrValidation, app.Status)
	}

	for i := range app.TeamMembers {
		app.TeamMembers[i].ID = uuid.NewString()
	}
	if len(app.TeamMembers) > 0 {
		app.TeamSize = len(app.TeamMembers)
	}
	for i := range app.Updates {
		app.Updates[i].ID = uuid.NewString()
		if app.Updates[i].CreatedAt.IsZero() {
			app.Updates[i].CreatedAt = now
		}
	}
	for i := range app.Investments {
		app.Investments[i].ID = uuid.NewString()
	}

	if err := app.Validate(); err != nil {
		return ApplicationView{}, validationError(err)
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return ApplicationView{}, translate(err)
	}
	return newView(app), nil
}

// Get devuelve la postulacion con el owner y los espectadores unicos expandidos.
func (s *ApplicationService) Get(ctx context.Context, actor policy.Actor, id string) (ApplicationDetail, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return ApplicationDetail{}, translate(err)
	}
	if err := authorize(actor, policy.OpReadApplication, policy.Target{OwnerID: app.UserID}); err != nil {
		return ApplicationDetail{}, err
	}

	ids := []string{app.UserID}
	if app.Views != nil {
		ids = append(ids, app.Views.UniqueUsers...)
	}
	summaries, err := s.users.Summaries(ctx, ids)
	if err != nil {
		return ApplicationDetail{}, err
	}

	counts := app.Views.Counts()
	detail := ApplicationDetail{
		Application: app,
		Views: ViewDetail{
			Total:   counts.Total,
			Unique:  counts.Unique,
			Viewers: []domain.UserSummary{},
		},
	}
	if owner, ok := summaries[app.UserID]; ok {
		detail.Owner = &owner
	}
	if app.Views != nil {
		for _, uid := range app.Views.UniqueUsers {
			if v, ok := summaries[uid]; ok {
				detail.Views.Viewers = append(detail.Views.Viewers, v)
			}
		}
	}
	return detail, nil
}

// List devuelve todas las postulaciones a un admin y solo las propias al resto.
func (s *ApplicationService) List(ctx context.Context, actor policy.Actor, q query.Query) (query.Paged[ApplicationView], error) {
	if actor.Anonymous() {
		return query.Paged[ApplicationView]{}, ErrForbidden
	}
	ownerID := actor.UserID
	if actor.IsAdmin {
		ownerID = ""
	}
	return s.list(ctx, ownerID, q)
}

func (s *ApplicationService) ListAll(ctx context.Context, actor policy.Actor, q query.Query) (query.Paged[ApplicationView], error) {
	if err := authorize(actor, policy.OpListAllApplications, policy.Target{}); err != nil {
		return query.Paged[ApplicationView]{}, err
	}
	return s.list(ctx, "", q)
}

func (s *ApplicationService) list(ctx context.Context, ownerID string, q query.Query) (query.Paged[ApplicationView], error) {
	apps, total, err := s.apps.List(ctx, ownerID, q)
	if err != nil {
		return query.Paged[ApplicationView]{}, err
	}

	ownerIDs := make([]string, 0, len(apps))
	seen := make(map[string]struct{}, len(apps))
	for _, a := range apps {
		if _, ok := seen[a.UserID]; !ok {
			seen[a.UserID] = struct{}{}
			ownerIDs = append(ownerIDs, a.UserID)
		}
	}
	owners, err := s.users.Summaries(ctx, ownerIDs)
	if err != nil {
		return query.Paged[ApplicationView]{}, err
	}

	return query.Map(query.NewPaged(q, total, apps), func(a domain.Application) ApplicationView {
		v := newView(a)
		if owner, ok := owners[a.UserID]; ok {
			v.Owner = &owner
		}
		return v
	}), nil
}

// ApplicationPatch lista los campos editables por el owner. userId, status, vistas y
// colecciones quedan fuera; tienen sus propias operaciones.
type ApplicationPatch struct {
	CompanyName   *string             `json:"companyName"`
	Industry      *string             `json:"industry"`
	Website       *string             `json:"website"`
	FoundedDate   *time.Time          `json:"foundedDate"`
	Location      *string             `json:"location"`
	TeamSize      *int                `json:"teamSize"`
	Pitch         *string             `json:"pitch"`
	Problem       *string             `json:"problem"`
	Solution      *string             `json:"solution"`
	MarketSize    *string             `json:"marketSize"`
	Competition   *string             `json:"competition"`
	BusinessModel *string             `json:"businessModel"`
	FundingStage  *string             `json:"fundingStage"`
	FundingNeeded *float64            `json:"fundingNeeded"`
	Logo          *string             `json:"logo"`
	BannerImage   *string             `json:"bannerImage"`
	PitchDeck     *string             `json:"pitchDeck"`
	VideoURL      *string             `json:"videoUrl"`
	SocialLinks   *domain.SocialLinks `json:"socialLinks"`
	Fundraising   *domain.Fundraising `json:"fundraising"`
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func (p ApplicationPatch) apply(app *domain.Application) {
	setString(&app.CompanyName, p.CompanyName)
	setString(&app.Industry, p.Industry)
	setString(&app.Website, p.Website)
	setString(&app.Location, p.Location)
	setString(&app.Pitch, p.Pitch)
	setString(&app.Problem, p.Problem)
	setString(&app.Solution, p.Solution)
	setString(&app.MarketSize, p.MarketSize)
	setString(&app.Competition, p.Competition)
	setString(&app.BusinessModel, p.BusinessModel)
	setString(&app.FundingStage, p.FundingStage)
	setString(&app.Logo, p.Logo)
	setString(&app.BannerImage, p.BannerImage)
	setString(&app.PitchDeck, p.PitchDeck)
	setString(&app.VideoURL, p.VideoURL)
	if p.FoundedDate != nil {
		app.FoundedDate = *p.FoundedDate
	}
	if p.TeamSize != nil {
		app.TeamSize = *p.TeamSize
	}
	// con miembros cargados teamSize sigue a la lista
	if len(app.TeamMembers) > 0 {
		app.TeamSize = len(app.TeamMembers)
	}
	if p.FundingNeeded != nil {
		app.FundingNeeded = *p.FundingNeeded
	}
	if p.SocialLinks != nil {
		app.SocialLinks = *p.SocialLinks
	}
	if p.Fundraising != nil {
		fr := *p.Fundraising
		app.Fundraising = &fr
	}
}

// Update mezcla el patch sobre el documento del owner y vuelve a validarlo.
func (s *ApplicationService) Update(ctx context.Context, actor policy.Actor, id string, patch ApplicationPatch) (ApplicationView, error) {
	app, err := s.apps.Mutate(ctx, id, func(app *domain.Application) error {
		if err := authorize(actor, policy.OpUpdateApplication, policy.Target{OwnerID: app.UserID}); err != nil {
			return err
		}
		patch.apply(app)
		if err := app.Validate(); err != nil {
			return validationError(err)
		}
		return nil
	})
	if err != nil {
		return ApplicationView{}, translate(err)
	}
	return newView(app), nil
}

func (s *ApplicationService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	err := s.apps.DeleteIf(ctx, id, func(app domain.Application) error {
		return authorize(actor, policy.OpDeleteApplication, policy.Target{OwnerID: app.UserID})
	})
	return translate(err)
}

// UpdateStatus es exclusivo de admins; el chequeo ocurre antes de leer la postulacion.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor policy.Actor, id, status string) (ApplicationView, error) {
	if err := authorize(actor, policy.OpUpdateStatus, policy.Target{}); err != nil {
		return ApplicationView{}, err
	}
	status = strings.TrimSpace(status)
	if !domain.IsValidStatus(status) {
		return ApplicationView{}, fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}
	app, err := s.apps.Mutate(ctx, id, func(app *domain.Application) error {
		app.Status = status
		return nil
	})
	if err != nil {
		return ApplicationView{}, translate(err)
	}
	s.logger.Info("application status changed",
		zap.String("application_id", app.ID),
		zap.String("status", status),
		zap.String("admin_id", actor.UserID),
	)
	return newView(app), nil
}

// IncrementView suma una vista. Un actor anonimo solo cuenta en el total.
func (s *ApplicationService) IncrementView(ctx context.Context, actor policy.Actor, id string) (domain.ViewCounts, error) {
	app, err := s.apps.Mutate(ctx, id, func(app *domain.Application) error {
		if err := authorize(actor, policy.OpIncrementView, policy.Target{OwnerID: app.UserID}); err != nil {
			return err
		}
		if app.Views == nil {
			app.Views = &domain.ViewStats{}
		}
		app.Views.Record(actor.UserID, s.now())
		return nil
	})
	if err != nil {
		return domain.ViewCounts{}, translate(err)
	}
	return app.Views.Counts(), nil
}

func (s *ApplicationService) appendTo(ctx context.Context, actor policy.Actor, id string, fn func(app *domain.Application)) (ApplicationView, error) {
	app, err := s.apps.Mutate(ctx, id, func(app *domain.Application) error {
		target := policy.Target{OwnerID: app.UserID, FounderIDs: app.FounderIDs()}
		if err := authorize(actor, policy.OpAppendSubresource, target); err != nil {
			return err
		}
		fn(app)
		return nil
	})
	if err != nil {
		return ApplicationView{}, translate(err)
	}
	return newView(app), nil
}

// AddTeamMember agrega un miembro y recalcula teamSize.
func (s *ApplicationService) AddTeamMember(ctx context.Context, actor policy.Actor, id string, member domain.TeamMember) (ApplicationView, error) {
	member.ID = uuid.NewString()
	member.Name = strings.TrimSpace(member.Name)
	member.Role = strings.TrimSpace(member.Role)
	if err := fieldValidator.Struct(member); err != nil {
		return ApplicationView{}, validationError(err)
	}
	return s.appendTo(ctx, actor, id, func(app *domain.Application) {
		app.AddTeamMember(member)
	})
}

func (s *ApplicationService) AddUpdate(ctx context.Context, actor policy.Actor, id string, update domain.Update) (ApplicationView, error) {
	update.ID = uuid.NewString()
	if update.CreatedAt.IsZero() {
		update.CreatedAt = s.now()
	}
	if err := fieldValidator.Struct(update); err != nil {
		return ApplicationView{}, validationError(err)
	}
	return s.appendTo(ctx, actor, id, func(app *domain.Application) {
		app.Updates = append(app.Updates, update)
	})
}

// AddInvestment agrega la inversion y actualiza fundraising si existe.
func (s *ApplicationService) AddInvestment(ctx context.Context, actor policy.Actor, id string, inv domain.Investment) (ApplicationView, error) {
	inv.ID = uuid.NewString()
	if err := fieldValidator.Struct(inv); err != nil {
		return ApplicationView{}, validationError(err)
	}
	return s.appendTo(ctx, actor, id, func(app *domain.Application) {
		app.AddInvestment(inv)
	})
}
