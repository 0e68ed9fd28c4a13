package auth

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"

	"github.com/trezcool/classwork/core"
)

// Caller is the authenticated identity a request acts as.
type Caller struct {
	ID       int
	Username string
	Role     core.Role
}

type Operation string

const (
	OpManageUsers Operation = "manage_users"

	OpCreateAssignment Operation = "create_assignment"
	OpReadAssignment   Operation = "read_assignment"
	OpUpdateAssignment Operation = "update_assignment"
	OpDeleteAssignment Operation = "delete_assignment"
	OpExportGradebook  Operation = "export_gradebook"

	OpCreateSubmission Operation = "create_submission"
	OpReadSubmission   Operation = "read_submission"
	OpListSubmissions  Operation = "list_submissions"
	OpUpdateSubmission Operation = "update_submission"
	OpDeleteSubmission Operation = "delete_submission"
	OpGradeSubmission  Operation = "grade_submission"

	OpCreateAnnouncement Operation = "create_announcement"
	OpReadAnnouncement   Operation = "read_announcement"
	OpUpdateAnnouncement Operation = "update_announcement"
	OpDeleteAnnouncement Operation = "delete_announcement"
)

type DenyReason string

const (
	DenyRole      DenyReason = "role"
	DenyOwnership DenyReason = "ownership"
	DenyNotFound  DenyReason = "not_found"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  DenyReason

	// OwnerScoped means the caller is allowed by role, and ownership is enforced
	// by the write itself: its predicate must include the caller's id.
	OwnerScoped bool
}

// Err returns nil for an allowed decision. A missing resource yields core.ErrNotFound,
// any other denial a *core.AuthorizationError; both surface as "not found".
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == DenyNotFound:
		return core.ErrNotFound
	default:
		return &core.AuthorizationError{Reason: string(d.Reason)}
	}
}

// SubmissionOwners are the two users with rights over a submission.
type SubmissionOwners struct {
	StudentID         int
	AssignmentOwnerID int
}

// Ownership resolves the recorded owners of resources. Missing resources yield core.ErrNotFound.
type Ownership interface {
	AssignmentOwner(ctx context.Context, assignmentID int) (int, error)
	SubmissionOwners(ctx context.Context, submissionID int) (SubmissionOwners, error)
}

// DecisionObserver is notified of every decision, e.g. to count denials.
type DecisionObserver func(op Operation, role core.Role, d Decision)

type rule int

const (
	deny rule = iota
	allow
	scoped               // ownership enforced by the write predicate
	ownsAssignment       // resource is an assignment created by the caller
	ownsSubmission       // resource is a submission made by the caller
	ownsParentAssignment // resource is a submission whose assignment was created by the caller
)

var policy = map[Operation]map[core.Role]rule{
	OpManageUsers: {core.RoleAdmin: allow},

	OpCreateAssignment: {core.RoleTeacher: allow},
	OpReadAssignment:   {core.RoleAdmin: allow, core.RoleTeacher: allow, core.RoleStudent: allow},
	OpUpdateAssignment: {core.RoleTeacher: scoped},
	OpDeleteAssignment: {core.RoleTeacher: scoped},
	OpExportGradebook:  {core.RoleTeacher: ownsAssignment},

	OpCreateSubmission: {core.RoleStudent: allow},
	OpReadSubmission:   {core.RoleTeacher: ownsParentAssignment, core.RoleStudent: ownsSubmission},
	OpListSubmissions:  {core.RoleTeacher: ownsAssignment, core.RoleStudent: scoped},
	OpUpdateSubmission: {core.RoleStudent: scoped},
	OpDeleteSubmission: {core.RoleStudent: scoped},
	OpGradeSubmission:  {core.RoleTeacher: ownsParentAssignment},

	OpCreateAnnouncement: {core.RoleAdmin: allow, core.RoleTeacher: allow},
	OpReadAnnouncement:   {core.RoleAdmin: allow, core.RoleTeacher: allow, core.RoleStudent: allow},
	OpUpdateAnnouncement: {core.RoleAdmin: scoped, core.RoleTeacher: scoped},
	OpDeleteAnnouncement: {core.RoleAdmin: scoped, core.RoleTeacher: scoped},
}

// Authorizer decides whether a caller may perform an operation on a resource.
type Authorizer struct {
	owners    Ownership
	observers []DecisionObserver
}

func NewAuthorizer(owners Ownership, observers ...DecisionObserver) *Authorizer {
	return &Authorizer{owners: owners, observers: observers}
}

// Authorize decides on op for caller. resourceID is required by operations that check
// ownership through a lookup; it is ignored otherwise.
// The returned error is only set when a lookup itself failed.
func (a *Authorizer) Authorize(ctx context.Context, caller Caller, op Operation, resourceID ...int) (Decision, error) {
	d, err := a.decide(ctx, caller, op, resourceID)
	if err != nil {
		return Decision{}, err
	}
	for _, observe := range a.observers {
		observe(op, caller.Role, d)
	}
	return d, nil
}

// Require is Authorize folded into a single error.
func (a *Authorizer) Require(ctx context.Context, caller Caller, op Operation, resourceID ...int) (Decision, error) {
	d, err := a.Authorize(ctx, caller, op, resourceID...)
	if err != nil {
		return d, err
	}
	return d, d.Err()
}

func (a *Authorizer) decide(ctx context.Context, caller Caller, op Operation, resourceID []int) (Decision, error) {
	if caller.ID <= 0 || !caller.Role.Valid() {
		return Decision{Reason: DenyRole}, nil
	}

	var r rule
	if roles, ok := policy[op]; ok {
		r = roles[caller.Role]
	}

	var id int
	if len(resourceID) > 0 {
		id = resourceID[0]
	}

	switch r {
	case allow:
		return Decision{Allowed: true}, nil
	case scoped:
		return Decision{Allowed: true, OwnerScoped: true}, nil
	case ownsAssignment:
		owner, err := a.owners.AssignmentOwner(ctx, id)
		return ownerDecision(caller.ID, owner, err, "looking up assignment owner")
	case ownsSubmission:
		owners, err := a.owners.SubmissionOwners(ctx, id)
		return ownerDecision(caller.ID, owners.StudentID, err, "looking up submission owners")
	case ownsParentAssignment:
		owners, err := a.owners.SubmissionOwners(ctx, id)
		return ownerDecision(caller.ID, owners.AssignmentOwnerID, err, "looking up submission owners")
	default:
		return Decision{Reason: DenyRole}, nil
	}
}

func ownerDecision(callerID, ownerID int, err error, msg string) (Decision, error) {
	if err != nil {
		if stderrors.Is(err, core.ErrNotFound) {
			return Decision{Reason: DenyNotFound}, nil
		}
		return Decision{}, errors.Wrap(err, msg)
	}
	if ownerID != callerID {
		return Decision{Reason: DenyOwnership}, nil
	}
	return Decision{Allowed: true}, nil
}
