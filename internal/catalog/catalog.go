// Package catalog defines the static permission catalog: every protectable
// resource and the actions applicable to it. The catalog is fixed at compile
// time; roles reference it but can never extend it.
package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/meridian-admin/meridian/internal/shared"
)

// Resource identifiers.
const (
	ResourceUsers         = "users"
	ResourcePosts         = "posts"
	ResourceEvents        = "events"
	ResourcePrograms      = "programs"
	ResourceInstitutes    = "institutes"
	ResourceOrganisations = "organisations"
	ResourceRoles         = "roles"
	ResourceAdmins        = "admins"
)

// Action identifiers.
const (
	ActionView          = "view"
	ActionCreate        = "create"
	ActionEdit          = "edit"
	ActionDelete        = "delete"
	ActionResetPassword = "reset-password"
)

// Action describes an operation performable on a resource.
type Action struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Resource describes a protectable domain object category and its action set.
type Resource struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Actions     []Action `json:"actions"`
}

var titler = cases.Title(language.English)

var actionDescriptions = map[string]string{
	ActionView:          "List and inspect records",
	ActionCreate:        "Create new records",
	ActionEdit:          "Modify existing records",
	ActionDelete:        "Remove records",
	ActionResetPassword: "Reset another admin's password",
}

var resources = buildResources()

func buildResources() []Resource {
	crud := []string{ActionView, ActionCreate, ActionEdit, ActionDelete}
	specs := []struct {
		id          string
		description string
		actions     []string
	}{
		{ResourceUsers, "Registered end-user accounts", crud},
		{ResourcePosts, "Published posts and drafts", crud},
		{ResourceEvents, "Scheduled events", crud},
		{ResourcePrograms, "Educational program taxonomy", crud},
		{ResourceInstitutes, "Institutes and campuses", crud},
		{ResourceOrganisations, "Partner organisations", crud},
		{ResourceRoles, "Admin roles and their grants", crud},
		{ResourceAdmins, "Back-office admin accounts", append(append([]string{}, crud...), ActionResetPassword)},
	}

	out := make([]Resource, 0, len(specs))
	for _, spec := range specs {
		actions := make([]Action, 0, len(spec.actions))
		for _, id := range spec.actions {
			actions = append(actions, Action{
				ID:          id,
				Name:        displayName(id),
				Description: actionDescriptions[id],
			})
		}
		out = append(out, Resource{
			ID:          spec.id,
			Name:        displayName(spec.id),
			Description: spec.description,
			Actions:     actions,
		})
	}
	return out
}

func displayName(id string) string {
	return titler.String(strings.ReplaceAll(id, "-", " "))
}

// Resources returns every catalog entry in stable declaration order.
func Resources() []Resource {
	out := make([]Resource, len(resources))
	copy(out, resources)
	return out
}

// Get looks up a single resource by identifier.
func Get(resourceID string) (Resource, error) {
	for _, res := range resources {
		if res.ID == resourceID {
			return res, nil
		}
	}
	return Resource{}, shared.ErrNotFound
}

// ActionsFor returns the declared action set of a resource.
func ActionsFor(resourceID string) ([]Action, error) {
	res, err := Get(resourceID)
	if err != nil {
		return nil, err
	}
	actions := make([]Action, len(res.Actions))
	copy(actions, res.Actions)
	return actions, nil
}

// Has reports whether the catalog declares the resource/action pair.
// Unknown identifiers are simply not declared, never an error.
func Has(resourceID, actionID string) bool {
	res, err := Get(resourceID)
	if err != nil {
		return false
	}
	for _, action := range res.Actions {
		if action.ID == actionID {
			return true
		}
	}
	return false
}

// TotalActions returns the number of actions declared for a resource,
// zero when the resource is unknown.
func TotalActions(resourceID string) int {
	res, err := Get(resourceID)
	if err != nil {
		return 0
	}
	return len(res.Actions)
}
