package postgres

import (
	"testing"
	"time"

	"github.com/accessly/lock-management/internal/reservation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestReservationRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ReservationRepository Suite")
}

type SQLiteReservation struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"column:user_id;not null"`
	LockID    int64     `gorm:"column:lock_id;not null"`
	Date      time.Time `gorm:"column:date;not null"`
	StartTime string    `gorm:"column:start_time;not null"`
	EndTime   string    `gorm:"column:end_time;not null"`
	Status    string    `gorm:"column:status;default:'pending'"`
	Notes     string    `gorm:"column:notes"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (SQLiteReservation) TableName() string {
	return "reservations"
}

var _ = Describe("ReservationRepository", func() {
	var (
		db   *gorm.DB
		repo *ReservationRepository
	)

	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	newReservation := func(userID, lockID int64, start, end string, status reservation.Status) *reservation.Reservation {
		return &reservation.Reservation{
			UserID:    userID,
			LockID:    lockID,
			Date:      date,
			StartTime: start,
			EndTime:   end,
			Status:    status,
		}
	}

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteReservation{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewReservationRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Create and GetByID", func() {
		It("should persist a reservation and read it back", func() {
			r := newReservation(1, 10, "14:00", "15:00", reservation.StatusPending)
			err := repo.Create(r)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.ID).To(BeNumerically(">", 0))

			got, err := repo.GetByID(r.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(got.UserID).To(Equal(int64(1)))
			Expect(got.LockID).To(Equal(int64(10)))
			Expect(got.StartTime).To(Equal("14:00"))
			Expect(got.EndTime).To(Equal("15:00"))
			Expect(got.Status).To(Equal(reservation.StatusPending))
		})

		It("should return nil for an unknown id", func() {
			got, err := repo.GetByID(999)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})
	})

	Describe("ForLockDate", func() {
		BeforeEach(func() {
			Expect(repo.Create(newReservation(1, 10, "09:00", "10:00", reservation.StatusApproved))).To(Succeed())
			Expect(repo.Create(newReservation(2, 10, "14:00", "15:00", reservation.StatusPending))).To(Succeed())
			Expect(repo.Create(newReservation(3, 10, "16:00", "17:00", reservation.StatusRejected))).To(Succeed())
			Expect(repo.Create(newReservation(4, 11, "09:00", "10:00", reservation.StatusApproved))).To(Succeed())

			other := newReservation(5, 10, "09:00", "10:00", reservation.StatusApproved)
			other.Date = date.AddDate(0, 0, 1)
			Expect(repo.Create(other)).To(Succeed())
		})

		It("should return only the requested statuses for the lock and day", func() {
			approved, err := repo.ForLockDate(10, date, []string{string(reservation.StatusApproved)})
			Expect(err).NotTo(HaveOccurred())
			Expect(approved).To(HaveLen(1))
			Expect(approved[0].UserID).To(Equal(int64(1)))
		})

		It("should match a query instant anywhere within the day", func() {
			afternoon := date.Add(14*time.Hour + 30*time.Minute)
			approved, err := repo.ForLockDate(10, afternoon, []string{string(reservation.StatusApproved)})
			Expect(err).NotTo(HaveOccurred())
			Expect(approved).To(HaveLen(1))
		})

		It("should combine statuses", func() {
			active, err := repo.ForLockDate(10, date, []string{
				string(reservation.StatusPending),
				string(reservation.StatusApproved),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(HaveLen(2))
		})
	})

	Describe("ActiveForDate", func() {
		BeforeEach(func() {
			Expect(repo.Create(newReservation(1, 10, "09:00", "10:00", reservation.StatusApproved))).To(Succeed())
			Expect(repo.Create(newReservation(2, 11, "14:00", "15:00", reservation.StatusPending))).To(Succeed())
			Expect(repo.Create(newReservation(3, 12, "16:00", "17:00", reservation.StatusRejected))).To(Succeed())
		})

		It("should return pending and approved reservations only", func() {
			active, err := repo.ActiveForDate(date)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(HaveLen(2))
			for _, r := range active {
				Expect(r.Status).NotTo(Equal(reservation.StatusRejected))
			}
		})
	})

	Describe("ListForUser", func() {
		It("should return only the user's reservations", func() {
			Expect(repo.Create(newReservation(1, 10, "09:00", "10:00", reservation.StatusPending))).To(Succeed())
			Expect(repo.Create(newReservation(1, 11, "14:00", "15:00", reservation.StatusPending))).To(Succeed())
			Expect(repo.Create(newReservation(2, 10, "16:00", "17:00", reservation.StatusPending))).To(Succeed())

			mine, err := repo.ListForUser(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(2))
		})
	})

	Describe("ListAll", func() {
		BeforeEach(func() {
			Expect(repo.Create(newReservation(1, 10, "09:00", "10:00", reservation.StatusPending))).To(Succeed())
			Expect(repo.Create(newReservation(2, 11, "14:00", "15:00", reservation.StatusApproved))).To(Succeed())
		})

		It("should return everything without a status filter", func() {
			all, err := repo.ListAll("")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})

		It("should filter by status", func() {
			pending, err := repo.ListAll(string(reservation.StatusPending))
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].Status).To(Equal(reservation.StatusPending))
		})
	})

	Describe("Approve", func() {
		It("should approve when no approved reservation overlaps", func() {
			r := newReservation(1, 10, "14:00", "15:00", reservation.StatusPending)
			Expect(repo.Create(r)).To(Succeed())

			Expect(repo.Approve(r)).To(Succeed())

			got, err := repo.GetByID(r.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(reservation.StatusApproved))
		})

		It("should refuse the second of two overlapping pendings", func() {
			first := newReservation(1, 10, "14:00", "15:00", reservation.StatusPending)
			second := newReservation(2, 10, "14:30", "15:30", reservation.StatusPending)
			Expect(repo.Create(first)).To(Succeed())
			Expect(repo.Create(second)).To(Succeed())

			Expect(repo.Approve(first)).To(Succeed())
			Expect(repo.Approve(second)).To(MatchError(reservation.ErrSlotConflict))

			got, err := repo.GetByID(second.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(reservation.StatusPending))
		})

		It("should allow touching slots", func() {
			first := newReservation(1, 10, "14:00", "15:00", reservation.StatusPending)
			second := newReservation(2, 10, "15:00", "16:00", reservation.StatusPending)
			Expect(repo.Create(first)).To(Succeed())
			Expect(repo.Create(second)).To(Succeed())

			Expect(repo.Approve(first)).To(Succeed())
			Expect(repo.Approve(second)).To(Succeed())
		})

		It("should ignore approved reservations on other locks", func() {
			first := newReservation(1, 11, "14:00", "15:00", reservation.StatusApproved)
			second := newReservation(2, 10, "14:00", "15:00", reservation.StatusPending)
			Expect(repo.Create(first)).To(Succeed())
			Expect(repo.Create(second)).To(Succeed())

			Expect(repo.Approve(second)).To(Succeed())
		})

		It("should report a missing reservation", func() {
			missing := newReservation(1, 10, "14:00", "15:00", reservation.StatusPending)
			missing.ID = 999
			Expect(repo.Approve(missing)).To(MatchError(reservation.ErrReservationNotFound))
		})
	})

	Describe("UpdateStatus", func() {
		It("should persist the new status", func() {
			r := newReservation(1, 10, "09:00", "10:00", reservation.StatusPending)
			Expect(repo.Create(r)).To(Succeed())

			err := repo.UpdateStatus(r.ID, reservation.StatusApproved)
			Expect(err).NotTo(HaveOccurred())

			got, err := repo.GetByID(r.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(reservation.StatusApproved))
		})

		It("should report a missing reservation", func() {
			err := repo.UpdateStatus(999, reservation.StatusApproved)
			Expect(err).To(MatchError(reservation.ErrReservationNotFound))
		})
	})
})
