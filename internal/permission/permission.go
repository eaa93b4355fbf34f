package permission

import (
	"errors"
	"fmt"
	"time"

	permissionDatamodel "github.com/accessly/lock-management/internal/core/datamodel/permission"
)

// SubjectKind discriminates the "who" side of a grant.
type SubjectKind string

// TargetKind discriminates the "what" side of a grant.
type TargetKind string

const (
	SubjectUser  SubjectKind = "user"
	SubjectGroup SubjectKind = "group"

	TargetLock      TargetKind = "lock"
	TargetLockGroup TargetKind = "lock_group"
)

// Subject is a tagged union: either a user or a group, never both. Build
// one through UserSubject or GroupSubject so malformed values cannot occur.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   int64       `json:"id"`
}

func UserSubject(id int64) Subject {
	return Subject{Kind: SubjectUser, ID: id}
}

func GroupSubject(id int64) Subject {
	return Subject{Kind: SubjectGroup, ID: id}
}

func (s Subject) String() string {
	return fmt.Sprintf("%s:%d", s.Kind, s.ID)
}

// Target is a tagged union: either a lock or a lock group.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   int64      `json:"id"`
}

func LockTarget(id int64) Target {
	return Target{Kind: TargetLock, ID: id}
}

func LockGroupTarget(id int64) Target {
	return Target{Kind: TargetLockGroup, ID: id}
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// TimeWindow bounds a grant's validity. A nil side is open: nil Start is
// unbounded past, nil End is unbounded future.
type TimeWindow struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

func (w TimeWindow) Validate() error {
	if w.Start != nil && w.End != nil && !w.Start.Before(*w.End) {
		return ErrInvalidWindow
	}
	return nil
}

// Grant binds one subject to one target for an optional validity window.
type Grant struct {
	ID        int64      `json:"id"`
	Subject   Subject    `json:"subject"`
	Target    Target     `json:"target"`
	Window    TimeWindow `json:"window"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

var (
	ErrGrantNotFound  = errors.New("grant not found")
	ErrWindowOverlap  = errors.New("grant window overlaps an existing grant for the same subject and target")
	ErrInvalidSubject = errors.New("exactly one of user or group must be set")
	ErrInvalidTarget  = errors.New("exactly one of lock or lock_group must be set")
	ErrInvalidWindow  = errors.New("window start must be before window end")
	ErrUnknownEntity  = errors.New("referenced entity does not exist")
)

func ToDataModel(g *Grant) *permissionDatamodel.Grant {
	row := &permissionDatamodel.Grant{
		ID:        g.ID,
		StartDate: g.Window.Start,
		EndDate:   g.Window.End,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}

	switch g.Subject.Kind {
	case SubjectUser:
		id := g.Subject.ID
		row.UserID = &id
	case SubjectGroup:
		id := g.Subject.ID
		row.GroupID = &id
	}

	switch g.Target.Kind {
	case TargetLock:
		id := g.Target.ID
		row.LockID = &id
	case TargetLockGroup:
		id := g.Target.ID
		row.LockGroupID = &id
	}

	return row
}

// FromDataModel rebuilds the tagged unions from the nullable columns. A row
// violating the exactly-one shape indicates store corruption and is
// reported rather than silently skipped.
func FromDataModel(row *permissionDatamodel.Grant) (*Grant, error) {
	g := &Grant{
		ID:        row.ID,
		Window:    TimeWindow{Start: row.StartDate, End: row.EndDate},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}

	switch {
	case row.UserID != nil && row.GroupID == nil:
		g.Subject = UserSubject(*row.UserID)
	case row.GroupID != nil && row.UserID == nil:
		g.Subject = GroupSubject(*row.GroupID)
	default:
		return nil, fmt.Errorf("grant %d: %w", row.ID, ErrInvalidSubject)
	}

	switch {
	case row.LockID != nil && row.LockGroupID == nil:
		g.Target = LockTarget(*row.LockID)
	case row.LockGroupID != nil && row.LockID == nil:
		g.Target = LockGroupTarget(*row.LockGroupID)
	default:
		return nil, fmt.Errorf("grant %d: %w", row.ID, ErrInvalidTarget)
	}

	return g, nil
}

func FromDataModelSlice(rows []*permissionDatamodel.Grant) ([]*Grant, error) {
	grants := make([]*Grant, 0, len(rows))
	for _, row := range rows {
		g, err := FromDataModel(row)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, nil
}
