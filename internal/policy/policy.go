// Package policy decide si una identidad puede operar sobre una postulacion o un usuario.
//
// Las operaciones acotadas a un recurso responden NotFound cuando el llamador no tiene
// permiso, para no revelar que el recurso existe. Las operaciones exclusivas de admin
// responden Forbidden.
package policy

type Operation int

const (
	OpReadApplication Operation = iota
	OpUpdateApplication
	OpDeleteApplication
	OpUpdateStatus
	OpListAllApplications
	OpAppendSubresource
	OpIncrementView
	OpReadUser
	OpUpdateUser
	OpListUsers
	OpCreateUser
	OpDeleteUser
)

func (o Operation) String() string {
	switch o {
	case OpReadApplication:
		return "read_application"
	case OpUpdateApplication:
		return "update_application"
	case OpDeleteApplication:
		return "delete_application"
	case OpUpdateStatus:
		return "update_status"
	case OpListAllApplications:
		return "list_all_applications"
	case OpAppendSubresource:
		return "append_subresource"
	case OpIncrementView:
		return "increment_view"
	case OpReadUser:
		return "read_user"
	case OpUpdateUser:
		return "update_user"
	case OpListUsers:
		return "list_users"
	case OpCreateUser:
		return "create_user"
	case OpDeleteUser:
		return "delete_user"
	default:
		return "unknown"
	}
}

type Decision int

const (
	Allow Decision = iota
	Forbidden
	NotFound
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Forbidden:
		return "forbidden"
	default:
		return "not_found"
	}
}

// Actor es la identidad que actua. UserID vacio significa anonimo.
type Actor struct {
	UserID  string
	IsAdmin bool
}

func (a Actor) Anonymous() bool {
	return a.UserID == ""
}

// Target describe la propiedad del recurso. Para usuarios OwnerID es el propio usuario.
type Target struct {
	OwnerID    string
	FounderIDs []string
}

func (t Target) ownedBy(userID string) bool {
	return userID != "" && t.OwnerID == userID
}

func (t Target) hasFounder(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range t.FounderIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Decide aplica las reglas de acceso. No tiene estado ni efectos.
func Decide(actor Actor, op Operation, target Target) Decision {
	switch op {
	case OpReadApplication, OpIncrementView:
		return Allow

	case OpUpdateApplication, OpDeleteApplication:
		if target.ownedBy(actor.UserID) {
			return Allow
		}
		return NotFound

	case OpAppendSubresource:
		if target.ownedBy(actor.UserID) || target.hasFounder(actor.UserID) {
			return Allow
		}
		return NotFound

	case OpUpdateStatus, OpListAllApplications, OpListUsers, OpCreateUser, OpDeleteUser:
		if actor.IsAdmin && !actor.Anonymous() {
			return Allow
		}
		return Forbidden

	case OpReadUser, OpUpdateUser:
		if (actor.IsAdmin && !actor.Anonymous()) || target.ownedBy(actor.UserID) {
			return Allow
		}
		return NotFound
	}
	return NotFound
}
