package postgres

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/accessly/lock-management/internal/core/common/interval"
	permissionDatamodel "github.com/accessly/lock-management/internal/core/datamodel/permission"
	"github.com/accessly/lock-management/internal/permission"
)

// GrantRepository implements permission.Repository and
// permission.EntityChecker using GORM.
type GrantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// CreateGrant inserts a grant after checking the overlap invariant for its
// (subject, target) pair. Check and insert share one transaction; on
// Postgres the existing rows are locked FOR UPDATE so concurrent creators
// serialize.
func (r *GrantRepository) CreateGrant(g *permission.Grant) error {
	row := permission.ToDataModel(g)

	err := r.db.Transaction(func(tx *gorm.DB) error {
		existing, err := r.pairRows(tx, g.Subject, g.Target, true)
		if err != nil {
			return err
		}

		for _, e := range existing {
			if interval.Overlaps(e.StartDate, e.EndDate, row.StartDate, row.EndDate) {
				return permission.ErrWindowOverlap
			}
		}

		return tx.Create(row).Error
	})
	if err != nil {
		return err
	}

	g.ID = row.ID
	g.CreatedAt = row.CreatedAt
	g.UpdatedAt = row.UpdatedAt
	return nil
}

// GetOrCreateGrant returns the grant exactly matching subject, target and
// window when present, otherwise creating it. The second return value
// reports whether a new row was written.
func (r *GrantRepository) GetOrCreateGrant(g *permission.Grant) (*permission.Grant, bool, error) {
	row := permission.ToDataModel(g)
	created := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		existing, err := r.pairRows(tx, g.Subject, g.Target, true)
		if err != nil {
			return err
		}

		for _, e := range existing {
			if sameWindow(e, row) {
				row = e
				return nil
			}
			if interval.Overlaps(e.StartDate, e.EndDate, row.StartDate, row.EndDate) {
				return permission.ErrWindowOverlap
			}
		}

		created = true
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, false, err
	}

	out, err := permission.FromDataModel(row)
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// DeleteGrantExact removes only the grant whose subject, target and window
// all match; grants sharing the pair with different windows survive.
func (r *GrantRepository) DeleteGrantExact(subject permission.Subject, target permission.Target, window permission.TimeWindow) (bool, error) {
	q := pairScope(r.db, subject, target)
	q = windowScope(q, window)

	res := q.Delete(&permissionDatamodel.Grant{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GrantRepository) GrantsForSubject(s permission.Subject) ([]*permission.Grant, error) {
	var rows []*permissionDatamodel.Grant
	q := r.db
	switch s.Kind {
	case permission.SubjectUser:
		q = q.Where("user_id = ?", s.ID)
	case permission.SubjectGroup:
		q = q.Where("group_id = ?", s.ID)
	}
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return permission.FromDataModelSlice(rows)
}

func (r *GrantRepository) GrantsForTarget(t permission.Target) ([]*permission.Grant, error) {
	var rows []*permissionDatamodel.Grant
	q := r.db
	switch t.Kind {
	case permission.TargetLock:
		q = q.Where("lock_id = ?", t.ID)
	case permission.TargetLockGroup:
		q = q.Where("lock_group_id = ?", t.ID)
	}
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return permission.FromDataModelSlice(rows)
}

func (r *GrantRepository) AllGrants() ([]*permission.Grant, error) {
	var rows []*permissionDatamodel.Grant
	if err := r.db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return permission.FromDataModelSlice(rows)
}

// MatchingGrants returns every grant whose subject is the user or one of
// the user's groups and whose target is the lock or one of its groups.
// Temporal filtering happens in the service so the query stays portable.
func (r *GrantRepository) MatchingGrants(userID int64, groupIDs []int64, lockID int64, lockGroupIDs []int64) ([]*permission.Grant, error) {
	subjectCond := r.db.Where("user_id = ?", userID)
	if len(groupIDs) > 0 {
		subjectCond = subjectCond.Or("group_id IN ?", groupIDs)
	}

	targetCond := r.db.Where("lock_id = ?", lockID)
	if len(lockGroupIDs) > 0 {
		targetCond = targetCond.Or("lock_group_id IN ?", lockGroupIDs)
	}

	var rows []*permissionDatamodel.Grant
	if err := r.db.Where(subjectCond).Where(targetCond).Find(&rows).Error; err != nil {
		return nil, err
	}
	return permission.FromDataModelSlice(rows)
}

func (r *GrantRepository) SubjectExists(s permission.Subject) (bool, error) {
	table := "users"
	if s.Kind == permission.SubjectGroup {
		table = "groups"
	}
	return r.exists(table, s.ID)
}

func (r *GrantRepository) TargetExists(t permission.Target) (bool, error) {
	table := "locks"
	if t.Kind == permission.TargetLockGroup {
		table = "lock_groups"
	}
	return r.exists(table, t.ID)
}

func (r *GrantRepository) exists(table string, id int64) (bool, error) {
	var count int64
	if err := r.db.Table(table).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// pairRows loads the grants for one (subject, target) pair inside tx,
// optionally locked. SQLite has no FOR UPDATE; its writers serialize on
// the database lock anyway.
func (r *GrantRepository) pairRows(tx *gorm.DB, subject permission.Subject, target permission.Target, lock bool) ([]*permissionDatamodel.Grant, error) {
	q := pairScope(tx, subject, target)
	if lock && tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []*permissionDatamodel.Grant
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func pairScope(q *gorm.DB, subject permission.Subject, target permission.Target) *gorm.DB {
	switch subject.Kind {
	case permission.SubjectUser:
		q = q.Where("user_id = ?", subject.ID)
	case permission.SubjectGroup:
		q = q.Where("group_id = ?", subject.ID)
	}
	switch target.Kind {
	case permission.TargetLock:
		q = q.Where("lock_id = ?", target.ID)
	case permission.TargetLockGroup:
		q = q.Where("lock_group_id = ?", target.ID)
	}
	return q
}

func windowScope(q *gorm.DB, w permission.TimeWindow) *gorm.DB {
	if w.Start != nil {
		q = q.Where("start_date = ?", *w.Start)
	} else {
		q = q.Where("start_date IS NULL")
	}
	if w.End != nil {
		q = q.Where("end_date = ?", *w.End)
	} else {
		q = q.Where("end_date IS NULL")
	}
	return q
}

func sameWindow(a, b *permissionDatamodel.Grant) bool {
	startEqual := (a.StartDate == nil && b.StartDate == nil) ||
		(a.StartDate != nil && b.StartDate != nil && a.StartDate.Equal(*b.StartDate))
	endEqual := (a.EndDate == nil && b.EndDate == nil) ||
		(a.EndDate != nil && b.EndDate != nil && a.EndDate.Equal(*b.EndDate))
	return startEqual && endEqual
}
