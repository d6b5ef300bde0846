package project

import (
	"fmt"
	"slices"
	"sort"

	"github.com/kailas-cloud/limitwatch/internal/domain"
)

// Role is the relationship between a user and a project.
type Role string

// Role constants.
const (
	RoleNone   Role = ""
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// Access is the permission level an action requires.
type Access string

// Access levels.
const (
	// AccessView is granted to admins and clients.
	AccessView Access = "view"
	// AccessMutate is granted to admins only.
	AccessMutate Access = "mutate"
)

// Project is a quota-tracked unit with its own admins and clients.
type Project struct {
	id         string
	name       string
	admins     []int64
	clients    []int64
	legacyKeys bool
}

// New creates a Project. A blank name falls back to the id.
func New(id, name string, admins, clients []int64, legacyKeys bool) Project {
	if name == "" {
		name = id
	}
	return Project{
		id:         id,
		name:       name,
		admins:     slices.Clone(admins),
		clients:    slices.Clone(clients),
		legacyKeys: legacyKeys,
	}
}

// ID returns the project identifier.
func (p Project) ID() string { return p.id }

// Name returns the display label.
func (p Project) Name() string { return p.name }

// LegacyKeys reports whether the project uses the flat legacy key namespace.
func (p Project) LegacyKeys() bool { return p.legacyKeys }

// Admins returns a copy of the admin user ids.
func (p Project) Admins() []int64 { return slices.Clone(p.admins) }

// Clients returns a copy of the client user ids.
func (p Project) Clients() []int64 { return slices.Clone(p.clients) }

// RoleOf returns the user's role. Admin wins when a user is listed twice.
func (p Project) RoleOf(userID int64) Role {
	if slices.Contains(p.admins, userID) {
		return RoleAdmin
	}
	if slices.Contains(p.clients, userID) {
		return RoleClient
	}
	return RoleNone
}

// Allows reports whether the user may perform an action at the given access level.
func (p Project) Allows(userID int64, access Access) bool {
	switch p.RoleOf(userID) {
	case RoleAdmin:
		return true
	case RoleClient:
		return access == AccessView
	default:
		return false
	}
}

// Recipients returns admins followed by clients, without duplicates.
func (p Project) Recipients() []int64 {
	out := make([]int64, 0, len(p.admins)+len(p.clients))
	seen := make(map[int64]struct{}, cap(out))
	for _, ids := range [][]int64{p.admins, p.clients} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Registry is the immutable set of configured projects, ordered by id.
type Registry struct {
	byID  map[string]Project
	order []string
}

// NewRegistry builds a registry. Duplicate ids and more than one legacy project are rejected.
func NewRegistry(projects ...Project) (*Registry, error) {
	r := &Registry{byID: make(map[string]Project, len(projects))}
	legacy := ""
	for _, p := range projects {
		if p.id == "" {
			return nil, fmt.Errorf("project id is required")
		}
		if _, ok := r.byID[p.id]; ok {
			return nil, fmt.Errorf("duplicate project id %q", p.id)
		}
		if p.legacyKeys {
			if legacy != "" {
				return nil, fmt.Errorf("projects %q and %q both use legacy keys", legacy, p.id)
			}
			legacy = p.id
		}
		r.byID[p.id] = p
		r.order = append(r.order, p.id)
	}
	sort.Strings(r.order)
	return r, nil
}

// Get returns the project with the given id.
func (r *Registry) Get(id string) (Project, error) {
	p, ok := r.byID[id]
	if !ok {
		return Project{}, fmt.Errorf("project %q: %w", id, domain.ErrProjectNotFound)
	}
	return p, nil
}

// All returns every project in id order.
func (r *Registry) All() []Project {
	out := make([]Project, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ForUser returns the projects where the user is an admin or a client.
func (r *Registry) ForUser(userID int64) []Project {
	var out []Project
	for _, id := range r.order {
		p := r.byID[id]
		if p.RoleOf(userID) != RoleNone {
			out = append(out, p)
		}
	}
	return out
}

// Authorize resolves the project and checks the user's access.
// Unknown projects report ErrAccessDenied so that callers cannot probe configuration.
func (r *Registry) Authorize(projectID string, userID int64, access Access) (Project, error) {
	p, ok := r.byID[projectID]
	if !ok || !p.Allows(userID, access) {
		return Project{}, domain.ErrAccessDenied
	}
	return p, nil
}
