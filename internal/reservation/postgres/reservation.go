package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/accessly/lock-management/internal/core/common/interval"
	datamodel "github.com/accessly/lock-management/internal/core/datamodel/reservation"
	"github.com/accessly/lock-management/internal/reservation"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(res *reservation.Reservation) error {
	m := res.ToDataModel()
	if err := r.db.Create(m).Error; err != nil {
		return err
	}
	res.ID = m.ID
	res.CreatedAt = m.CreatedAt
	res.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *ReservationRepository) GetByID(id int64) (*reservation.Reservation, error) {
	var m datamodel.Reservation
	if err := r.db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return reservation.FromDataModel(&m), nil
}

func (r *ReservationRepository) ListForUser(userID int64) ([]*reservation.Reservation, error) {
	var ms []*datamodel.Reservation
	err := r.db.
		Where("user_id = ?", userID).
		Order("date DESC, start_time DESC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return reservation.FromDataModelSlice(ms), nil
}

func (r *ReservationRepository) ListAll(status string) ([]*reservation.Reservation, error) {
	q := r.db.Order("date DESC, start_time DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var ms []*datamodel.Reservation
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}
	return reservation.FromDataModelSlice(ms), nil
}

func (r *ReservationRepository) ForLockDate(lockID int64, date time.Time, statuses []string) ([]*reservation.Reservation, error) {
	var ms []*datamodel.Reservation
	err := r.db.
		Where("lock_id = ? AND date = ?", lockID, dateOnly(date)).
		Where("status IN ?", statuses).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return reservation.FromDataModelSlice(ms), nil
}

func (r *ReservationRepository) ActiveForDate(date time.Time) ([]*reservation.Reservation, error) {
	var ms []*datamodel.Reservation
	err := r.db.
		Where("date = ?", dateOnly(date)).
		Where("status IN ?", []string{
			string(reservation.StatusPending),
			string(reservation.StatusApproved),
		}).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return reservation.FromDataModelSlice(ms), nil
}

// Approve re-checks the slot and writes the approved status in one
// transaction. The rows for the (lock, date) pair are loaded FOR UPDATE
// on Postgres so concurrent approvals of overlapping reservations
// serialize; the loser then sees the winner approved and gets
// ErrSlotConflict. SQLite has no FOR UPDATE; its writers serialize on
// the database lock.
func (r *ReservationRepository) Approve(res *reservation.Reservation) error {
	start, end, err := res.Window()
	if err != nil {
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		q := tx.Where("lock_id = ? AND date = ?", res.LockID, dateOnly(res.Date))
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var ms []*datamodel.Reservation
		if err := q.Find(&ms).Error; err != nil {
			return err
		}

		found := false
		for _, m := range ms {
			if m.ID == res.ID {
				found = true
				continue
			}
			if m.Status != string(reservation.StatusApproved) {
				continue
			}
			otherStart, otherEnd, err := reservation.FromDataModel(m).Window()
			if err != nil {
				continue
			}
			if interval.Overlaps(&start, &end, &otherStart, &otherEnd) {
				return reservation.ErrSlotConflict
			}
		}
		if !found {
			return reservation.ErrReservationNotFound
		}

		return tx.Model(&datamodel.Reservation{}).
			Where("id = ?", res.ID).
			Updates(map[string]interface{}{
				"status":     string(reservation.StatusApproved),
				"updated_at": time.Now(),
			}).Error
	})
}

func (r *ReservationRepository) UpdateStatus(id int64, status reservation.Status) error {
	result := r.db.Model(&datamodel.Reservation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
