package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"startup-apply/internal/domain"
	"startup-apply/internal/query"
)

// ApplicationColumns son los campos de postulacion que admiten filtros, busqueda y orden.
var ApplicationColumns = query.Columns{
	"id":            "id",
	"userId":        "user_id",
	"companyName":   "company_name",
	"industry":      "industry",
	"location":      "location",
	"website":       "website",
	"teamSize":      "team_size",
	"fundingStage":  "funding_stage",
	"fundingNeeded": "funding_needed",
	"foundedDate":   "founded_date",
	"status":        "status",
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
}

// ApplicationRepository persiste postulaciones con sus colecciones embebidas.
// Mutate y DeleteIf bloquean la fila mientras corre fn, asi que las escrituras
// concurrentes sobre la misma postulacion no se pisan.
type ApplicationRepository interface {
	Create(ctx context.Context, app domain.Application) error
	GetByID(ctx context.Context, id string) (domain.Application, error)
	List(ctx context.Context, ownerID string, q query.Query) ([]domain.Application, int64, error)
	Mutate(ctx context.Context, id string, fn func(app *domain.Application) error) (domain.Application, error)
	DeleteIf(ctx context.Context, id string, fn func(app domain.Application) error) error
}

type PgApplicationRepository struct {
	pool *pgxpool.Pool
}

func NewPgApplicationRepository(pool *pgxpool.Pool) *PgApplicationRepository {
	return &PgApplicationRepository{pool: pool}
}

const applicationColumns = `id, user_id, company_name, industry, website, founded_date, location, team_size,
	pitch, problem, solution, market_size, competition, business_model, funding_stage, funding_needed,
	logo, banner_image, pitch_deck, video_url, status, social_links, fundraising, team_members,
	updates, investments, views, created_at, updated_at`

// documentos embebidos serializados como JSONB.
type embedded struct {
	socialLinks []byte
	fundraising []byte
	teamMembers []byte
	updates     []byte
	investments []byte
	views       []byte
}

func encodeEmbedded(app domain.Application) (embedded, error) {
	var (
		e   embedded
		err error
	)
	if e.socialLinks, err = json.Marshal(app.SocialLinks); err != nil {
		return e, err
	}
	if app.Fundraising != nil {
		if e.fundraising, err = json.Marshal(app.Fundraising); err != nil {
			return e, err
		}
	}
	if e.teamMembers, err = marshalList(app.TeamMembers); err != nil {
		return e, err
	}
	if e.updates, err = marshalList(app.Updates); err != nil {
		return e, err
	}
	if e.investments, err = marshalList(app.Investments); err != nil {
		return e, err
	}
	if app.Views != nil {
		if e.views, err = json.Marshal(app.Views); err != nil {
			return e, err
		}
	}
	return e, nil
}

// marshalList escribe [] en lugar de null para slices vacios.
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func (e embedded) decode(app *domain.Application) error {
	if len(e.socialLinks) > 0 {
		if err := json.Unmarshal(e.socialLinks, &app.SocialLinks); err != nil {
			return fmt.Errorf("decode social_links: %w", err)
		}
	}
	if len(e.fundraising) > 0 {
		app.Fundraising = &domain.Fundraising{}
		if err := json.Unmarshal(e.fundraising, app.Fundraising); err != nil {
			return fmt.Errorf("decode fundraising: %w", err)
		}
	}
	if err := json.Unmarshal(e.teamMembers, &app.TeamMembers); err != nil {
		return fmt.Errorf("decode team_members: %w", err)
	}
	if err := json.Unmarshal(e.updates, &app.Updates); err != nil {
		return fmt.Errorf("decode updates: %w", err)
	}
	if err := json.Unmarshal(e.investments, &app.Investments); err != nil {
		return fmt.Errorf("decode investments: %w", err)
	}
	if len(e.views) > 0 {
		app.Views = &domain.ViewStats{}
		if err := json.Unmarshal(e.views, app.Views); err != nil {
			return fmt.Errorf("decode views: %w", err)
		}
	}
	return nil
}

func scanApplication(row pgx.Row) (domain.Application, error) {
	var (
		a domain.Application
		e embedded
	)
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.CompanyName,
		&a.Industry,
		&a.Website,
		&a.FoundedDate,
		&a.Location,
		&a.TeamSize,
		&a.Pitch,
		&a.Problem,
		&a.Solution,
		&a.MarketSize,
		&a.Competition,
		&a.BusinessModel,
		&a.FundingStage,
		&a.FundingNeeded,
		&a.Logo,
		&a.BannerImage,
		&a.PitchDeck,
		&a.VideoURL,
		&a.Status,
		&e.socialLinks,
		&e.fundraising,
		&e.teamMembers,
		&e.updates,
		&e.investments,
		&e.views,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Application{}, err
	}
	if err := e.decode(&a); err != nil {
		return domain.Application{}, err
	}
	return a, nil
}

func (r *PgApplicationRepository) Create(ctx context.Context, app domain.Application) error {
	e, err := encodeEmbedded(app)
	if err != nil {
		return err
	}
	const stmt = `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`
	_, err = r.pool.Exec(ctx, stmt,
		app.ID,
		app.UserID,
		app.CompanyName,
		app.Industry,
		app.Website,
		app.FoundedDate,
		app.Location,
		app.TeamSize,
		app.Pitch,
		app.Problem,
		app.Solution,
		app.MarketSize,
		app.Competition,
		app.BusinessModel,
		app.FundingStage,
		app.FundingNeeded,
		app.Logo,
		app.BannerImage,
		app.PitchDeck,
		app.VideoURL,
		app.Status,
		e.socialLinks,
		e.fundraising,
		e.teamMembers,
		e.updates,
		e.investments,
		e.views,
		app.CreatedAt,
		app.UpdatedAt,
	)
	return mapError(err)
}

func (r *PgApplicationRepository) GetByID(ctx context.Context, id string) (domain.Application, error) {
	return getApplication(ctx, r.pool, id, false)
}

func getApplication(ctx context.Context, q querier, id string, forUpdate bool) (domain.Application, error) {
	if !validID(id) {
		return domain.Application{}, ErrNotFound
	}
	stmt := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	if forUpdate {
		stmt += ` FOR UPDATE`
	}
	app, err := scanApplication(q.QueryRow(ctx, stmt, id))
	if err != nil {
		return domain.Application{}, mapError(err)
	}
	return app, nil
}

// List pagina postulaciones. ownerID vacio lista todas.
func (r *PgApplicationRepository) List(ctx context.Context, ownerID string, q query.Query) ([]domain.Application, int64, error) {
	var (
		conds []string
		args  []any
	)
	if ownerID != "" {
		if !validID(ownerID) {
			return []domain.Application{}, 0, nil
		}
		conds = append(conds, "user_id = $1")
		args = append(args, ownerID)
	}
	where, qargs, orderBy, err := q.SQL(ApplicationColumns, len(args)+1)
	if err != nil {
		return nil, 0, err
	}
	if where != "" {
		conds = append(conds, where)
	}
	args = append(args, qargs...)

	whereSQL := ""
	for i, c := range conds {
		if i == 0 {
			whereSQL = " WHERE " + c
			continue
		}
		whereSQL += " AND " + c
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM applications`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	stmt := fmt.Sprintf(`SELECT %s FROM applications%s ORDER BY %s, id LIMIT $%d OFFSET $%d`,
		applicationColumns, whereSQL, orderBy, n+1, n+2)
	rows, err := r.pool.Query(ctx, stmt, append(args, q.Limit(), q.Skip())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	apps := []domain.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

// Mutate lee la postulacion con FOR UPDATE, aplica fn y guarda el documento completo
// en la misma transaccion. Si fn devuelve error no se escribe nada.
func (r *PgApplicationRepository) Mutate(ctx context.Context, id string, fn func(app *domain.Application) error) (domain.Application, error) {
	var out domain.Application
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		app, err := getApplication(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(&app); err != nil {
			return err
		}
		app.UpdatedAt = time.Now().UTC()
		if err := writeApplication(ctx, tx, app); err != nil {
			return err
		}
		out = app
		return nil
	})
	if err != nil {
		return domain.Application{}, mapError(err)
	}
	return out, nil
}

// DeleteIf borra la postulacion si fn no la veta.
func (r *PgApplicationRepository) DeleteIf(ctx context.Context, id string, fn func(app domain.Application) error) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		app, err := getApplication(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(app); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
		return err
	})
	return mapError(err)
}

func writeApplication(ctx context.Context, tx pgx.Tx, app domain.Application) error {
	e, err := encodeEmbedded(app)
	if err != nil {
		return err
	}
	const stmt = `
		UPDATE applications
		SET company_name = $1,
			industry = $2,
			website = $3,
			founded_date = $4,
			location = $5,
			team_size = $6,
			pitch = $7,
			problem = $8,
			solution = $9,
			market_size = $10,
			competition = $11,
			business_model = $12,
			funding_stage = $13,
			funding_needed = $14,
			logo = $15,
			banner_image = $16,
			pitch_deck = $17,
			video_url = $18,
			status = $19,
			social_links = $20,
			fundraising = $21,
			team_members = $22,
			updates = $23,
			investments = $24,
			views = $25,
			updated_at = $26
		WHERE id = $27
	`
	_, err = tx.Exec(ctx, stmt,
		app.CompanyName,
		app.Industry,
		app.Website,
		app.FoundedDate,
		app.Location,
		app.TeamSize,
		app.Pitch,
		app.Problem,
		app.Solution,
		app.MarketSize,
		app.Competition,
		app.BusinessModel,
		app.FundingStage,
		app.FundingNeeded,
		app.Logo,
		app.BannerImage,
		app.PitchDeck,
		app.VideoURL,
		app.Status,
		e.socialLinks,
		e.fundraising,
		e.teamMembers,
		e.updates,
		e.investments,
		e.views,
		app.UpdatedAt,
		app.ID,
	)
	return err
}
