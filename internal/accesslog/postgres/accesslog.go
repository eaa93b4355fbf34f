package postgres

import (
	"gorm.io/gorm"

	"github.com/accessly/lock-management/internal/accesslog"
	accesslogDatamodel "github.com/accessly/lock-management/internal/core/datamodel/accesslog"
)

type AccessLogRepository struct {
	db *gorm.DB
}

func NewAccessLogRepository(db *gorm.DB) *AccessLogRepository {
	return &AccessLogRepository{db: db}
}

func (r *AccessLogRepository) Append(e *accesslog.Entry) error {
	row := accesslog.ToDataModel(e)
	if err := r.db.Create(row).Error; err != nil {
		return err
	}
	e.ID = row.ID
	return nil
}

// List returns entries newest first, resolving the owning user's name
// where one is recorded.
func (r *AccessLogRepository) List(filter accesslog.ListFilter) ([]*accesslog.Entry, error) {
	q := r.db.Model(&accesslogDatamodel.Entry{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.LockID != nil {
		q = q.Where("lock_id = ?", *filter.LockID)
	}

	var rows []*accesslogDatamodel.Entry
	err := q.Order("timestamp DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*accesslog.Entry, len(rows))
	userIDs := make([]int64, 0, len(rows))
	for i, row := range rows {
		entries[i] = accesslog.FromDataModel(row)
		if row.UserID != nil {
			userIDs = append(userIDs, *row.UserID)
		}
	}

	if len(userIDs) > 0 {
		names, err := r.userNames(userIDs)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.UserID != nil {
				e.UserName = names[*e.UserID]
			}
		}
	}

	return entries, nil
}

func (r *AccessLogRepository) userNames(ids []int64) (map[int64]string, error) {
	rows, err := r.db.Raw("SELECT id, name FROM users WHERE id IN ?", ids).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[int64]string, len(ids))
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}
