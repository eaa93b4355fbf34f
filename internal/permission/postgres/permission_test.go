package postgres

import (
	"math/rand"
	"testing"
	"time"

	"github.com/accessly/lock-management/internal/core/common/interval"
	"github.com/accessly/lock-management/internal/permission"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestGrantRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "GrantRepository Suite")
}

type SQLiteGrant struct {
	ID          int64      `gorm:"primaryKey"`
	UserID      *int64     `gorm:"column:user_id"`
	GroupID     *int64     `gorm:"column:group_id"`
	LockID      *int64     `gorm:"column:lock_id"`
	LockGroupID *int64     `gorm:"column:lock_group_id"`
	StartDate   *time.Time `gorm:"column:start_date"`
	EndDate     *time.Time `gorm:"column:end_date"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (SQLiteGrant) TableName() string {
	return "lock_permissions"
}

type SQLiteUser struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"column:name"`
}

func (SQLiteUser) TableName() string {
	return "users"
}

type SQLiteLock struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"column:name"`
}

func (SQLiteLock) TableName() string {
	return "locks"
}

var _ = Describe("GrantRepository", func() {
	var (
		db   *gorm.DB
		repo *GrantRepository
	)

	day := func(d int) time.Time {
		return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
	}
	ptrTime := func(t time.Time) *time.Time { return &t }

	userLockGrant := func(userID, lockID int64, start, end *time.Time) *permission.Grant {
		return &permission.Grant{
			Subject: permission.UserSubject(userID),
			Target:  permission.LockTarget(lockID),
			Window:  permission.TimeWindow{Start: start, End: end},
		}
	}

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteGrant{}, &SQLiteUser{}, &SQLiteLock{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewGrantRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		err = sqlDB.Close()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("CreateGrant", func() {
		It("should create a grant and assign an ID", func() {
			g := userLockGrant(1, 10, ptrTime(day(1)), ptrTime(day(10)))
			err := repo.CreateGrant(g)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.ID).To(BeNumerically(">", 0))
		})

		It("should reject an overlapping window for the same pair", func() {
			err := repo.CreateGrant(userLockGrant(1, 10, ptrTime(day(1)), ptrTime(day(10))))
			Expect(err).NotTo(HaveOccurred())

			err = repo.CreateGrant(userLockGrant(1, 10, ptrTime(day(5)), ptrTime(day(15))))
			Expect(err).To(Equal(permission.ErrWindowOverlap))
		})

		It("should reject an open-ended window against any existing grant", func() {
			err := repo.CreateGrant(userLockGrant(1, 10, ptrTime(day(1)), ptrTime(day(10))))
			Expect(err).NotTo(HaveOccurred())

			err = repo.CreateGrant(userLockGrant(1, 10, nil, nil))
			Expect(err).To(Equal(permission.ErrWindowOverlap))
		})

		It("should allow touching windows for the same pair", func() {
			err := repo.CreateGrant(userLockGrant(1, 10, ptrTime(day(1)), ptrTime(day(10))))
			Expect(err).NotTo(HaveOccurred())

			err = repo.CreateGrant(userLockGrant(1, 10, ptrTime(day(10)), ptrTime(day(20))))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should allow overlapping windows across different pairs", func() {
			err := repo.CreateGrant(userLockGrant(1, 10, ptrTime(day(1)), ptrTime(day(10))))
			Expect(err).NotTo(HaveOccurred())

			err = repo.CreateGrant(userLockGrant(2, 10, ptrTime(day(1)), ptrTime(day(10))))
			Expect(err).NotTo(HaveOccurred())

			err = repo.CreateGrant(&permission.Grant{
				Subject: permission.GroupSubject(1),
				Target:  permission.LockTarget(10),
				Window:  permission.TimeWindow{Start: ptrTime(day(1)), End: ptrTime(day(10))},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should keep every accepted window disjoint under a random insertion sequence", func() {
			rng := rand.New(rand.NewSource(1))

			randomWindow := func() (*time.Time, *time.Time) {
				s := day(1).Add(time.Duration(rng.Intn(480)) * time.Hour)
				e := s.Add(time.Duration(1+rng.Intn(72)) * time.Hour)
				start, end := ptrTime(s), ptrTime(e)
				if rng.Intn(12) == 0 {
					start = nil
				}
				if rng.Intn(12) == 0 {
					end = nil
				}
				return start, end
			}

			accepted := 0
			for i := 0; i < 80; i++ {
				start, end := randomWindow()
				err := repo.CreateGrant(userLockGrant(1, 10, start, end))
				if err != nil {
					Expect(err).To(MatchError(permission.ErrWindowOverlap))
					continue
				}
				accepted++
			}
			Expect(accepted).To(BeNumerically(">=", 1))

			committed, err := repo.GrantsForSubject(permission.UserSubject(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(committed).To(HaveLen(accepted))
			for i := range committed {
				for j := i + 1; j < len(committed); j++ {
					a, b := committed[i].Window, committed[j].Window
					Expect(interval.Overlaps(a.Start, a.End, b.Start, b.End)).To(BeFalse())
				}
			}
		})
	})

	Describe("GetOrCreateGrant", func() {
		It("should create when no exact match exists", func() {
			g, created, err := repo.GetOrCreateGrant(userLockGrant(1, 10, ptrTime(day(1)), ptrTime(day(2))))
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())
			Expect(g.ID).To(BeNumerically(">", 0))
		})

		It("should return the existing grant on an exact window match", func() {
			first, created, err := repo.GetOrCreateGrant(userLockGrant(1, 10, ptrTime(day(1)), ptrTime(day(2))))
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())

			second, created, err := repo.GetOrCreateGrant(userLockGrant(1, 10, ptrTime(day(1)), ptrTime(day(2))))
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(second.ID).To(Equal(first.ID))

			all, err := repo.AllGrants()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("should match open-ended windows exactly", func() {
			first, created, err := repo.GetOrCreateGrant(userLockGrant(1, 10, nil, nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())

			second, created, err := repo.GetOrCreateGrant(userLockGrant(1, 10, nil, nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(second.ID).To(Equal(first.ID))
		})

		It("should report overlap for a distinct intersecting window", func() {
			_, _, err := repo.GetOrCreateGrant(userLockGrant(1, 10, ptrTime(day(1)), ptrTime(day(10))))
			Expect(err).NotTo(HaveOccurred())

			_, _, err = repo.GetOrCreateGrant(userLockGrant(1, 10, ptrTime(day(5)), ptrTime(day(15))))
			Expect(err).To(Equal(permission.ErrWindowOverlap))
		})
	})

	Describe("DeleteGrantExact", func() {
		BeforeEach(func() {
			err := repo.CreateGrant(userLockGrant(1, 10, ptrTime(day(1)), ptrTime(day(10))))
			Expect(err).NotTo(HaveOccurred())
			err = repo.CreateGrant(userLockGrant(1, 10, ptrTime(day(10)), ptrTime(day(20))))
			Expect(err).NotTo(HaveOccurred())
			err = repo.CreateGrant(userLockGrant(1, 11, nil, nil))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should delete only the grant with the matching window", func() {
			deleted, err := repo.DeleteGrantExact(
				permission.UserSubject(1),
				permission.LockTarget(10),
				permission.TimeWindow{Start: ptrTime(day(1)), End: ptrTime(day(10))},
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			remaining, err := repo.GrantsForSubject(permission.UserSubject(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(HaveLen(2))
		})

		It("should match NULL window sides exactly", func() {
			deleted, err := repo.DeleteGrantExact(
				permission.UserSubject(1),
				permission.LockTarget(11),
				permission.TimeWindow{},
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			remaining, err := repo.GrantsForTarget(permission.LockTarget(11))
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(BeEmpty())
		})

		It("should report false when nothing matches", func() {
			deleted, err := repo.DeleteGrantExact(
				permission.UserSubject(1),
				permission.LockTarget(10),
				permission.TimeWindow{Start: ptrTime(day(2)), End: ptrTime(day(10))},
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeFalse())
		})
	})

	Describe("MatchingGrants", func() {
		BeforeEach(func() {
			err := repo.CreateGrant(userLockGrant(1, 10, nil, nil))
			Expect(err).NotTo(HaveOccurred())

			err = repo.CreateGrant(&permission.Grant{
				Subject: permission.GroupSubject(5),
				Target:  permission.LockGroupTarget(7),
			})
			Expect(err).NotTo(HaveOccurred())

			err = repo.CreateGrant(&permission.Grant{
				Subject: permission.GroupSubject(5),
				Target:  permission.LockTarget(10),
			})
			Expect(err).NotTo(HaveOccurred())

			err = repo.CreateGrant(userLockGrant(2, 99, nil, nil))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return grants across all four subject-target combinations", func() {
			grants, err := repo.MatchingGrants(1, []int64{5}, 10, []int64{7})
			Expect(err).NotTo(HaveOccurred())
			Expect(grants).To(HaveLen(3))
		})

		It("should exclude group grants when the user has no memberships", func() {
			grants, err := repo.MatchingGrants(1, nil, 10, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(grants).To(HaveLen(1))
			Expect(grants[0].Subject).To(Equal(permission.UserSubject(1)))
		})

		It("should return nothing for an unrelated user and lock", func() {
			grants, err := repo.MatchingGrants(42, nil, 42, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(grants).To(BeEmpty())
		})
	})

	Describe("EntityChecker", func() {
		BeforeEach(func() {
			Expect(db.Create(&SQLiteUser{ID: 1, Name: "renata"}).Error).NotTo(HaveOccurred())
			Expect(db.Create(&SQLiteLock{ID: 10, Name: "front door"}).Error).NotTo(HaveOccurred())
		})

		It("should find existing subjects and targets", func() {
			ok, err := repo.SubjectExists(permission.UserSubject(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = repo.TargetExists(permission.LockTarget(10))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("should report missing ids", func() {
			ok, err := repo.SubjectExists(permission.UserSubject(99))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			ok, err = repo.TargetExists(permission.LockTarget(99))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
})
