// Package policy holds the single permission table every action is checked
// against: (resource kind, action) -> roles allowed, whether the resource
// owner is allowed, whether any authenticated user is allowed.
package policy

import (
	"errors"
	"fmt"

	"github.com/yukikurage/timesheet-api/internal/models"
)

type Kind string

const (
	KindProject        Kind = "project"
	KindTask           Kind = "task"
	KindTimesheetEntry Kind = "timesheet_entry"
	KindHRTimesheet    Kind = "hr_timesheet"
	KindHRActivity     Kind = "hr_activity"
	KindAuditLog       Kind = "audit_log"
	KindUser           Kind = "user"
)

type Action string

const (
	ActionCreate         Action = "create"
	ActionRead           Action = "read"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionArchive        Action = "archive"
	ActionManageMembers  Action = "manage_members"
	ActionClone          Action = "clone"
	ActionSubmit         Action = "submit"
	ActionManagerApprove Action = "manager_approve"
	ActionOdillonApprove Action = "odillon_approve"
	ActionValidate       Action = "validate"
	ActionLock           Action = "lock"
	ActionListAll        Action = "list_all"
	ActionChangeRole     Action = "change_role"
)

// Rule describes who may perform one action on one kind of resource.
type Rule struct {
	Roles         []models.Role
	Owner         bool
	Authenticated bool
}

// Subject is the caller.
type Subject struct {
	UserID uint64
	Role   models.Role
}

// Resource identifies what is acted on. OwnerID is the creator/owner, zero
// when the action does not target an existing record.
type Resource struct {
	Kind    Kind
	OwnerID uint64
}

var (
	elevated   = []models.Role{models.RoleAdmin, models.RoleManager, models.RoleHR}
	validators = []models.Role{models.RoleManager, models.RoleHR, models.RoleAdmin}
	hrAdmin    = []models.Role{models.RoleHR, models.RoleAdmin}
	adminOnly  = []models.Role{models.RoleAdmin}
)

// DefaultTable is the permission table of the application.
var DefaultTable = map[Kind]map[Action]Rule{
	KindProject: {
		ActionCreate:        {Authenticated: true},
		ActionRead:          {Authenticated: true},
		ActionUpdate:        {Roles: elevated, Owner: true},
		ActionDelete:        {Roles: elevated, Owner: true},
		ActionArchive:       {Roles: elevated, Owner: true},
		ActionManageMembers: {Roles: elevated, Owner: true},
		ActionClone:         {Roles: elevated, Owner: true},
		ActionListAll:       {Roles: elevated},
	},
	KindTask: {
		ActionCreate:        {Authenticated: true},
		ActionRead:          {Authenticated: true},
		ActionUpdate:        {Roles: elevated, Owner: true},
		ActionDelete:        {Roles: elevated, Owner: true},
		ActionManageMembers: {Roles: elevated, Owner: true},
	},
	KindTimesheetEntry: {
		ActionCreate:   {Authenticated: true},
		ActionRead:     {Roles: validators, Owner: true},
		ActionUpdate:   {Owner: true},
		ActionDelete:   {Owner: true},
		ActionSubmit:   {Owner: true},
		ActionValidate: {Roles: validators},
		ActionLock:     {Roles: hrAdmin},
		ActionListAll:  {Roles: validators},
	},
	KindHRTimesheet: {
		ActionCreate:         {Authenticated: true},
		ActionRead:           {Roles: validators, Owner: true},
		ActionUpdate:         {Owner: true},
		ActionDelete:         {Roles: adminOnly, Owner: true},
		ActionSubmit:         {Owner: true},
		ActionManagerApprove: {Roles: validators},
		ActionOdillonApprove: {Roles: hrAdmin},
		ActionListAll:        {Roles: validators},
	},
	KindHRActivity: {
		ActionCreate: {Owner: true},
		ActionUpdate: {Owner: true},
		ActionDelete: {Owner: true},
	},
	KindAuditLog: {
		ActionRead: {Roles: hrAdmin},
	},
	KindUser: {
		ActionChangeRole: {Roles: adminOnly},
	},
}

// ErrPermissionDenied is matched by every DeniedError via errors.Is.
var ErrPermissionDenied = errors.New("permission denied")

// DeniedError carries the user-facing refusal message.
type DeniedError struct {
	Action Action
	Kind   Kind
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("Vous n'avez pas la permission de %s %s", verbs[e.Action], labels[e.Kind])
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// Deny builds the refusal for an action on a kind of resource.
func Deny(action Action, kind Kind) error {
	return &DeniedError{Action: action, Kind: kind}
}

var verbs = map[Action]string{
	ActionCreate:         "créer",
	ActionRead:           "consulter",
	ActionUpdate:         "modifier",
	ActionDelete:         "supprimer",
	ActionArchive:        "archiver",
	ActionManageMembers:  "gérer les membres de",
	ActionClone:          "dupliquer",
	ActionSubmit:         "soumettre",
	ActionManagerApprove: "valider (manager)",
	ActionOdillonApprove: "valider (RH)",
	ActionValidate:       "valider",
	ActionLock:           "verrouiller",
	ActionListAll:        "lister tous les éléments de type",
	ActionChangeRole:     "changer le rôle de",
}

var labels = map[Kind]string{
	KindProject:        "ce projet",
	KindTask:           "cette tâche",
	KindTimesheetEntry: "cette saisie de temps",
	KindHRTimesheet:    "cette feuille de temps RH",
	KindHRActivity:     "cette activité RH",
	KindAuditLog:       "ce journal d'audit",
	KindUser:           "cet utilisateur",
}

// Resolver evaluates a permission table.
type Resolver struct {
	table map[Kind]map[Action]Rule
}

// NewResolver returns a Resolver over DefaultTable.
func NewResolver() *Resolver {
	return &Resolver{table: DefaultTable}
}

// NewResolverWithTable returns a Resolver over a custom table.
func NewResolverWithTable(table map[Kind]map[Action]Rule) *Resolver {
	return &Resolver{table: table}
}

// Can reports whether sub may perform action on res. Unknown (kind, action)
// pairs and unauthenticated subjects are denied.
func (r *Resolver) Can(sub Subject, action Action, res Resource) bool {
	if sub.UserID == 0 {
		return false
	}
	rule, ok := r.table[res.Kind][action]
	if !ok {
		return false
	}
	if rule.Authenticated {
		return true
	}
	if rule.Owner && res.OwnerID != 0 && res.OwnerID == sub.UserID {
		return true
	}
	for _, role := range rule.Roles {
		if sub.Role == role {
			return true
		}
	}
	return false
}

// Authorize is Can returning a DeniedError on refusal.
func (r *Resolver) Authorize(sub Subject, action Action, res Resource) error {
	if !r.Can(sub, action, res) {
		return Deny(action, res.Kind)
	}
	return nil
}
