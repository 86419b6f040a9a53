package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	StatusDraft         = "draft"
	StatusSubmitted     = "submitted"
	StatusUnderReview   = "under_review"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
	StatusInfoRequested = "info_requested"
)

// RoleFounder marca a los miembros del equipo con permisos de escritura sobre la postulacion.
const RoleFounder = "founder"

var (
	Statuses = []string{StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusInfoRequested}
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Application es el agregado de una postulacion con sus colecciones embebidas.
type Application struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId" validate:"required"`
	CompanyName   string       `json:"companyName" validate:"required"`
	Industry      string       `json:"industry" validate:"required,oneof=fintech healthtech edtech ecommerce saas ai cleantech other"`
	Website       string       `json:"website,omitempty"`
	FoundedDate   time.Time    `json:"foundedDate" validate:"required"`
	Location      string       `json:"location" validate:"required"`
	TeamSize      int          `json:"teamSize" validate:"gte=1"`
	Pitch         string       `json:"pitch" validate:"required"`
	Problem       string       `json:"problem" validate:"required"`
	Solution      string       `json:"solution" validate:"required"`
	MarketSize    string       `json:"marketSize" validate:"required"`
	Competition   string       `json:"competition" validate:"required"`
	BusinessModel string       `json:"businessModel" validate:"required"`
	FundingStage  string       `json:"fundingStage" validate:"required,oneof=pre-seed seed series-a series-b series-c"`
	FundingNeeded float64      `json:"fundingNeeded" validate:"gte=0"`
	Logo          string       `json:"logo,omitempty"`
	BannerImage   string       `json:"bannerImage,omitempty"`
	PitchDeck     string       `json:"pitchDeck,omitempty"`
	VideoURL      string       `json:"videoUrl,omitempty"`
	Status        string       `json:"status" validate:"required,oneof=draft submitted under_review approved rejected info_requested"`
	SocialLinks   SocialLinks  `json:"socialLinks"`
	Fundraising   *Fundraising `json:"fundraising,omitempty"`
	TeamMembers   []TeamMember `json:"teamMembers" validate:"dive"`
	Updates       []Update     `json:"updates" validate:"dive"`
	Investments   []Investment `json:"investments" validate:"dive"`
	Views         *ViewStats   `json:"-"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

type SocialLinks struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// Fundraising es el agregado denormalizado que AddInvestment mantiene.
type Fundraising struct {
	Goal    float64 `json:"goal"`
	Raised  float64 `json:"raised"`
	Backers int     `json:"backers"`
}

type TeamMember struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required"`
	Image    string `json:"image,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

type Update struct {
	ID        string    `json:"id"`
	Title     string    `json:"title" validate:"required"`
	Content   string    `json:"content" validate:"required"`
	Type      string    `json:"type" validate:"required,oneof=milestone news product team funding"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Investment struct {
	ID           string           `json:"id"`
	InvestorName string           `json:"investorName" validate:"required"`
	Amount       float64          `json:"amount" validate:"gt=0"`
	Date         time.Time        `json:"date" validate:"required"`
	InvestorLogo string           `json:"investorLogo,omitempty"`
	Testimonial  string           `json:"testimonial,omitempty"`
	Portfolio    []PortfolioEntry `json:"portfolio,omitempty"`
}

type PortfolioEntry struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Logo        string  `json:"logo,omitempty"`
	ExitValue   float64 `json:"exitValue,omitempty"`
}

// ViewStats guarda la analitica de vistas; UniqueUsers se trata como conjunto.
type ViewStats struct {
	Total       int         `json:"total"`
	UniqueUsers []string    `json:"uniqueUsers"`
	History     []ViewEntry `json:"history"`
}

type ViewEntry struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// ViewCounts es lo que se expone a los clientes.
type ViewCounts struct {
	Total  int `json:"total"`
	Unique int `json:"unique"`
}

func (v *ViewStats) Counts() ViewCounts {
	if v == nil {
		return ViewCounts{}
	}
	return ViewCounts{Total: v.Total, Unique: len(v.UniqueUsers)}
}

// Record suma una vista. El historial solo registra la primera vista de cada usuario;
// userID vacio cuenta unicamente en el total.
func (v *ViewStats) Record(userID string, at time.Time) {
	v.Total++
	if userID == "" || v.HasViewer(userID) {
		return
	}
	v.UniqueUsers = append(v.UniqueUsers, userID)
	v.History = append(v.History, ViewEntry{UserID: userID, Timestamp: at})
}

func (v *ViewStats) HasViewer(userID string) bool {
	for _, id := range v.UniqueUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// FounderIDs devuelve los userId de los miembros marcados como founder.
func (a *Application) FounderIDs() []string {
	var ids []string
	for _, m := range a.TeamMembers {
		if m.Role == RoleFounder && m.UserID != "" {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

func (a *Application) AddTeamMember(m TeamMember) {
	a.TeamMembers = append(a.TeamMembers, m)
	a.TeamSize = len(a.TeamMembers)
}

func (a *Application) AddInvestment(inv Investment) {
	a.Investments = append(a.Investments, inv)
	if a.Fundraising != nil {
		a.Fundraising.Raised += inv.Amount
		a.Fundraising.Backers++
	}
}

// Validate chequea campos requeridos y enums cerrados.
func (a *Application) Validate() error {
	return validate.Struct(a)
}

// IsValidStatus indica si s pertenece al conjunto cerrado de estados.
func IsValidStatus(s string) bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}
