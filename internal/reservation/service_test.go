package reservation_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/accessly/lock-management/internal/core/common/interval"
	"github.com/accessly/lock-management/internal/core/events"
	"github.com/accessly/lock-management/internal/permission"
	"github.com/accessly/lock-management/internal/reservation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestReservationService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Reservation Service Suite")
}

// MockRepository implements reservation.Repository for testing. A mutex
// guards the map so specs may drive the service from several goroutines.
type MockRepository struct {
	mu           sync.Mutex
	reservations map[int64]*reservation.Reservation
	nextID       int64
	shouldFail   bool
	failError    error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		reservations: make(map[int64]*reservation.Reservation),
		nextID:       1,
	}
}

func (m *MockRepository) Create(r *reservation.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return m.failError
	}
	r.ID = m.nextID
	m.nextID++
	copied := *r
	m.reservations[r.ID] = &copied
	return nil
}

func (m *MockRepository) GetByID(id int64) (*reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, m.failError
	}
	r, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (m *MockRepository) ListForUser(userID int64) ([]*reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*reservation.Reservation
	for _, r := range m.reservations {
		if r.UserID == userID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MockRepository) ListAll(status string) ([]*reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*reservation.Reservation
	for _, r := range m.reservations {
		if status == "" || string(r.Status) == status {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MockRepository) ForLockDate(lockID int64, date time.Time, statuses []string) ([]*reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*reservation.Reservation
	for _, r := range m.reservations {
		if r.LockID != lockID || !sameDay(r.Date, date) {
			continue
		}
		for _, s := range statuses {
			if string(r.Status) == s {
				result = append(result, r)
				break
			}
		}
	}
	return result, nil
}

func (m *MockRepository) ActiveForDate(date time.Time) ([]*reservation.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*reservation.Reservation
	for _, r := range m.reservations {
		if !sameDay(r.Date, date) {
			continue
		}
		if r.Status == reservation.StatusPending || r.Status == reservation.StatusApproved {
			result = append(result, r)
		}
	}
	return result, nil
}

// Approve mirrors the production repository: the conflict check and the
// status write happen under one lock, so interleaved approvals cannot
// both pass the check.
func (m *MockRepository) Approve(r *reservation.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return m.failError
	}
	stored, ok := m.reservations[r.ID]
	if !ok {
		return reservation.ErrReservationNotFound
	}
	start, end, err := r.Window()
	if err != nil {
		return err
	}
	for _, other := range m.reservations {
		if other.ID == r.ID || other.LockID != r.LockID || !sameDay(other.Date, r.Date) {
			continue
		}
		if other.Status != reservation.StatusApproved {
			continue
		}
		otherStart, otherEnd, err := other.Window()
		if err != nil {
			continue
		}
		if interval.Overlaps(&start, &end, &otherStart, &otherEnd) {
			return reservation.ErrSlotConflict
		}
	}
	stored.Status = reservation.StatusApproved
	return nil
}

func (m *MockRepository) UpdateStatus(id int64, status reservation.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return m.failError
	}
	r, ok := m.reservations[id]
	if !ok {
		return reservation.ErrReservationNotFound
	}
	r.Status = status
	return nil
}

func (m *MockRepository) SetShouldFail(shouldFail bool, err error) {
	m.shouldFail = shouldFail
	m.failError = err
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// MockGranter implements reservation.Granter for testing
type MockGranter struct {
	mu          sync.Mutex
	grants      []permission.GrantItemDTO
	createCalls int
	deleteCalls int
	shouldFail  bool
	failError   error
}

func (m *MockGranter) GetOrCreateGrant(item permission.GrantItemDTO) (*permission.Grant, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.shouldFail {
		return nil, false, m.failError
	}
	for i, existing := range m.grants {
		if sameItem(existing, item) {
			return &permission.Grant{ID: int64(i + 1)}, false, nil
		}
	}
	m.grants = append(m.grants, item)
	return &permission.Grant{ID: int64(len(m.grants))}, true, nil
}

func (m *MockGranter) DeleteGrantIfExists(item permission.GrantItemDTO) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.shouldFail {
		return m.failError
	}
	for i, existing := range m.grants {
		if sameItem(existing, item) {
			m.grants = append(m.grants[:i], m.grants[i+1:]...)
			return nil
		}
	}
	return nil
}

func sameItem(a, b permission.GrantItemDTO) bool {
	sameID := func(x, y *int64) bool {
		if x == nil || y == nil {
			return x == y
		}
		return *x == *y
	}
	sameTime := func(x, y *time.Time) bool {
		if x == nil || y == nil {
			return x == y
		}
		return x.Equal(*y)
	}
	return sameID(a.User, b.User) && sameID(a.Lock, b.Lock) &&
		sameTime(a.StartDate, b.StartDate) && sameTime(a.EndDate, b.EndDate)
}

// MockLockDirectory implements reservation.LockDirectory for testing
type MockLockDirectory struct {
	locks map[int64]mockLock
}

type mockLock struct {
	name       string
	reservable bool
}

func NewMockLockDirectory() *MockLockDirectory {
	return &MockLockDirectory{locks: make(map[int64]mockLock)}
}

func (m *MockLockDirectory) AddLock(id int64, name string, reservable bool) {
	m.locks[id] = mockLock{name: name, reservable: reservable}
}

func (m *MockLockDirectory) ReservableState(lockID int64) (bool, bool, error) {
	l, ok := m.locks[lockID]
	if !ok {
		return false, false, nil
	}
	return true, l.reservable, nil
}

func (m *MockLockDirectory) ReservableLocks() ([]reservation.LockSummary, error) {
	var result []reservation.LockSummary
	for id, l := range m.locks {
		if l.reservable {
			result = append(result, reservation.LockSummary{ID: id, Name: l.name})
		}
	}
	return result, nil
}

var _ = Describe("Reservation Service", func() {
	var (
		mockRepo *MockRepository
		granter  *MockGranter
		locks    *MockLockDirectory
		service  *reservation.Service
		logger   *slog.Logger
		ctx      context.Context
	)

	createDTO := func(lockID int64, start, end string) reservation.CreateDTO {
		return reservation.CreateDTO{
			LockID:    lockID,
			Date:      "2026-03-10",
			StartTime: start,
			EndTime:   end,
		}
	}

	approve := reservation.StatusDTO{Status: string(reservation.StatusApproved)}
	reject := reservation.StatusDTO{Status: string(reservation.StatusRejected)}

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		granter = &MockGranter{}
		locks = NewMockLockDirectory()
		locks.AddLock(10, "Lab", true)
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus := events.NewEventBus(logger)
		service = reservation.NewService(mockRepo, granter, locks, bus, logger)
		ctx = context.Background()
	})

	Describe("Create", func() {
		It("should file a pending reservation", func() {
			r, err := service.Create(1, createDTO(10, "14:00", "15:00"))
			Expect(err).NotTo(HaveOccurred())
			Expect(r.ID).NotTo(BeZero())
			Expect(r.Status).To(Equal(reservation.StatusPending))
			Expect(r.UserID).To(Equal(int64(1)))
		})

		It("should reject an unknown lock", func() {
			_, err := service.Create(1, createDTO(99, "14:00", "15:00"))
			Expect(err).To(MatchError(reservation.ErrLockNotFound))
		})

		It("should reject a lock that is not reservable", func() {
			locks.AddLock(20, "Front Door", false)
			_, err := service.Create(1, createDTO(20, "14:00", "15:00"))
			Expect(err).To(MatchError(reservation.ErrNotReservable))
		})

		It("should reject an inverted slot", func() {
			_, err := service.Create(1, createDTO(10, "15:00", "14:00"))
			Expect(err).To(MatchError(reservation.ErrInvalidSlot))
		})

		It("should reject a malformed date", func() {
			_, err := service.Create(1, reservation.CreateDTO{
				LockID:    10,
				Date:      "10-03-2026",
				StartTime: "14:00",
				EndTime:   "15:00",
			})
			Expect(err).To(MatchError(reservation.ErrInvalidSlot))
		})

		Context("when an approved reservation holds an overlapping slot", func() {
			BeforeEach(func() {
				r, err := service.Create(2, createDTO(10, "14:00", "15:00"))
				Expect(err).NotTo(HaveOccurred())
				_, err = service.UpdateStatus(ctx, r.ID, approve)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should reject an intersecting slot", func() {
				_, err := service.Create(1, createDTO(10, "14:30", "15:30"))
				Expect(err).To(MatchError(reservation.ErrSlotConflict))
			})

			It("should accept a touching slot", func() {
				_, err := service.Create(1, createDTO(10, "15:00", "16:00"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should accept the same slot on another lock", func() {
				locks.AddLock(11, "Workshop", true)
				_, err := service.Create(1, createDTO(11, "14:00", "15:00"))
				Expect(err).NotTo(HaveOccurred())
			})
		})

		It("should allow overlapping pending reservations", func() {
			_, err := service.Create(1, createDTO(10, "14:00", "15:00"))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(2, createDTO(10, "14:30", "15:30"))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("UpdateStatus", func() {
		var pending *reservation.Reservation

		BeforeEach(func() {
			var err error
			pending, err = service.Create(1, createDTO(10, "14:00", "15:00"))
			Expect(err).NotTo(HaveOccurred())
		})

		Context("approval", func() {
			It("should approve and materialize the slot grant", func() {
				r, err := service.UpdateStatus(ctx, pending.ID, approve)
				Expect(err).NotTo(HaveOccurred())
				Expect(r.Status).To(Equal(reservation.StatusApproved))

				Expect(granter.grants).To(HaveLen(1))
				item := granter.grants[0]
				Expect(*item.User).To(Equal(int64(1)))
				Expect(*item.Lock).To(Equal(int64(10)))
				Expect(item.StartDate.Hour()).To(Equal(14))
				Expect(item.EndDate.Hour()).To(Equal(15))
			})

			It("should be idempotent at the grant layer", func() {
				_, err := service.UpdateStatus(ctx, pending.ID, approve)
				Expect(err).NotTo(HaveOccurred())

				// repeating the final status is a no-op
				r, err := service.UpdateStatus(ctx, pending.ID, approve)
				Expect(err).NotTo(HaveOccurred())
				Expect(r.Status).To(Equal(reservation.StatusApproved))
				Expect(granter.grants).To(HaveLen(1))
			})

			It("should re-check the slot and block a late conflict", func() {
				other, err := service.Create(2, createDTO(10, "14:30", "15:30"))
				Expect(err).NotTo(HaveOccurred())

				_, err = service.UpdateStatus(ctx, other.ID, approve)
				Expect(err).NotTo(HaveOccurred())

				_, err = service.UpdateStatus(ctx, pending.ID, approve)
				Expect(err).To(MatchError(reservation.ErrSlotConflict))

				r, err := service.GetByID(pending.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(r.Status).To(Equal(reservation.StatusPending))
			})

			It("should free the slot for a second reservation once the first is rejected", func() {
				other, err := service.Create(2, createDTO(10, "14:30", "15:30"))
				Expect(err).NotTo(HaveOccurred())

				_, err = service.UpdateStatus(ctx, pending.ID, approve)
				Expect(err).NotTo(HaveOccurred())
				_, err = service.UpdateStatus(ctx, other.ID, approve)
				Expect(err).To(MatchError(reservation.ErrSlotConflict))

				_, err = service.UpdateStatus(ctx, pending.ID, reject)
				Expect(err).NotTo(HaveOccurred())

				_, err = service.UpdateStatus(ctx, other.ID, approve)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should let only one of two racing overlapping approvals through", func() {
				other, err := service.Create(2, createDTO(10, "14:30", "15:30"))
				Expect(err).NotTo(HaveOccurred())

				ids := []int64{pending.ID, other.ID}
				errs := make([]error, len(ids))
				start := make(chan struct{})
				var wg sync.WaitGroup
				for i, id := range ids {
					wg.Add(1)
					go func(i int, id int64) {
						defer wg.Done()
						<-start
						_, errs[i] = service.UpdateStatus(ctx, id, approve)
					}(i, id)
				}
				close(start)
				wg.Wait()

				approved := 0
				for _, id := range ids {
					r, err := service.GetByID(id)
					Expect(err).NotTo(HaveOccurred())
					if r.Status == reservation.StatusApproved {
						approved++
					}
				}
				Expect(approved).To(Equal(1))

				if errs[0] == nil {
					Expect(errs[1]).To(MatchError(reservation.ErrSlotConflict))
				} else {
					Expect(errs[0]).To(MatchError(reservation.ErrSlotConflict))
					Expect(errs[1]).NotTo(HaveOccurred())
				}

				// the losing approval revokes the grant it wrote
				Expect(granter.grants).To(HaveLen(1))
			})

			It("should leave the reservation pending when the grant write fails", func() {
				granter.shouldFail = true
				granter.failError = errors.New("database error")

				_, err := service.UpdateStatus(ctx, pending.ID, approve)
				Expect(err).To(HaveOccurred())

				r, err := service.GetByID(pending.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(r.Status).To(Equal(reservation.StatusPending))
			})
		})

		Context("rejection", func() {
			It("should reject a pending reservation without touching grants", func() {
				r, err := service.UpdateStatus(ctx, pending.ID, reject)
				Expect(err).NotTo(HaveOccurred())
				Expect(r.Status).To(Equal(reservation.StatusRejected))
				Expect(granter.deleteCalls).To(BeZero())
			})

			It("should revoke the grant when rejecting an approved reservation", func() {
				_, err := service.UpdateStatus(ctx, pending.ID, approve)
				Expect(err).NotTo(HaveOccurred())
				Expect(granter.grants).To(HaveLen(1))

				r, err := service.UpdateStatus(ctx, pending.ID, reject)
				Expect(err).NotTo(HaveOccurred())
				Expect(r.Status).To(Equal(reservation.StatusRejected))
				Expect(granter.grants).To(BeEmpty())
			})
		})

		Context("invalid transitions", func() {
			It("should refuse to resurrect a rejected reservation", func() {
				_, err := service.UpdateStatus(ctx, pending.ID, reject)
				Expect(err).NotTo(HaveOccurred())

				_, err = service.UpdateStatus(ctx, pending.ID, approve)
				Expect(err).To(MatchError(reservation.ErrInvalidTransition))
			})

			It("should refuse an unknown status value", func() {
				_, err := service.UpdateStatus(ctx, pending.ID, reservation.StatusDTO{Status: "pending"})
				Expect(err).To(MatchError(reservation.ErrInvalidTransition))
			})

			It("should report a missing reservation", func() {
				_, err := service.UpdateStatus(ctx, 999, approve)
				Expect(err).To(MatchError(reservation.ErrReservationNotFound))
			})
		})
	})

	Describe("AvailableLocks", func() {
		availability := func(start, end string) reservation.AvailabilityDTO {
			return reservation.AvailabilityDTO{
				Date:      "2026-03-10",
				StartTime: start,
				EndTime:   end,
			}
		}

		BeforeEach(func() {
			locks.AddLock(11, "Workshop", true)
			locks.AddLock(20, "Front Door", false)
		})

		It("should list every reservable lock when nothing is booked", func() {
			available, err := service.AvailableLocks(availability("14:00", "15:00"))
			Expect(err).NotTo(HaveOccurred())
			Expect(available).To(HaveLen(2))
		})

		It("should hide locks with a pending reservation on the slot", func() {
			_, err := service.Create(1, createDTO(10, "14:00", "15:00"))
			Expect(err).NotTo(HaveOccurred())

			available, err := service.AvailableLocks(availability("14:30", "15:30"))
			Expect(err).NotTo(HaveOccurred())
			Expect(available).To(HaveLen(1))
			Expect(available[0].ID).To(Equal(int64(11)))
		})

		It("should keep locks whose reservations do not overlap the slot", func() {
			_, err := service.Create(1, createDTO(10, "14:00", "15:00"))
			Expect(err).NotTo(HaveOccurred())

			available, err := service.AvailableLocks(availability("15:00", "16:00"))
			Expect(err).NotTo(HaveOccurred())
			Expect(available).To(HaveLen(2))
		})

		It("should show locks again after rejection", func() {
			r, err := service.Create(1, createDTO(10, "14:00", "15:00"))
			Expect(err).NotTo(HaveOccurred())
			_, err = service.UpdateStatus(ctx, r.ID, reject)
			Expect(err).NotTo(HaveOccurred())

			available, err := service.AvailableLocks(availability("14:00", "15:00"))
			Expect(err).NotTo(HaveOccurred())
			Expect(available).To(HaveLen(2))
		})

		It("should reject a malformed slot", func() {
			_, err := service.AvailableLocks(reservation.AvailabilityDTO{
				Date:      "2026-03-10",
				StartTime: "2pm",
				EndTime:   "3pm",
			})
			Expect(err).To(MatchError(reservation.ErrInvalidSlot))
		})
	})
})
