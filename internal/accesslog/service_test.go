package accesslog_test

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/accessly/lock-management/internal/accesslog"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAccessLog(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "AccessLog Suite")
}

// MockRepository implements accesslog.Repository for testing
type MockRepository struct {
	mu         sync.Mutex
	entries    []*accesslog.Entry
	lastFilter accesslog.ListFilter
	shouldFail bool
	failError  error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

func (m *MockRepository) Append(e *accesslog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return m.failError
	}
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return nil
}

func (m *MockRepository) List(filter accesslog.ListFilter) ([]*accesslog.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, m.failError
	}
	m.lastFilter = filter

	var result []*accesslog.Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if filter.UserID != nil && (e.UserID == nil || *e.UserID != *filter.UserID) {
			continue
		}
		if filter.LockID != nil && e.LockID != *filter.LockID {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (m *MockRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MockRepository) SetShouldFail(shouldFail bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = shouldFail
	m.failError = err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func successEntry(lockID int64, userID int64) *accesslog.Entry {
	return &accesslog.Entry{
		Method:    "keypad",
		UserID:    &userID,
		LockID:    lockID,
		LockName:  "Front Door",
		Result:    accesslog.ResultSuccess,
		Timestamp: time.Now(),
	}
}

var _ = Describe("AccessLog Service", func() {
	var (
		mockRepo *MockRepository
		service  *accesslog.Service
	)

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		service = accesslog.NewService(mockRepo, testLogger())
	})

	Describe("Record", func() {
		It("should append a valid entry", func() {
			err := service.Record(successEntry(10, 1))
			Expect(err).NotTo(HaveOccurred())
			Expect(mockRepo.Count()).To(Equal(1))
		})

		It("should stamp the time when the producer did not", func() {
			e := &accesslog.Entry{
				Method:     "keypad",
				FailedCode: "000000",
				LockID:     10,
				LockName:   "Front Door",
				Result:     accesslog.ResultFailed,
			}
			err := service.Record(e)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Timestamp).NotTo(BeZero())
		})

		It("should reject an unknown result", func() {
			e := successEntry(10, 1)
			e.Result = "maybe"
			err := service.Record(e)
			Expect(err).To(MatchError(accesslog.ErrInvalidResult))
			Expect(mockRepo.Count()).To(BeZero())
		})

		It("should surface repository errors", func() {
			mockRepo.SetShouldFail(true, errors.New("database error"))
			err := service.Record(successEntry(10, 1))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database error"))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			Expect(service.Record(successEntry(10, 1))).To(Succeed())
			Expect(service.Record(successEntry(11, 2))).To(Succeed())
		})

		It("should default the limit", func() {
			_, err := service.List(accesslog.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(mockRepo.lastFilter.Limit).To(Equal(100))
		})

		It("should clamp an oversized limit", func() {
			_, err := service.List(accesslog.ListFilter{Limit: 5000})
			Expect(err).NotTo(HaveOccurred())
			Expect(mockRepo.lastFilter.Limit).To(Equal(100))
		})

		It("should keep a limit inside the bound", func() {
			_, err := service.List(accesslog.ListFilter{Limit: 25})
			Expect(err).NotTo(HaveOccurred())
			Expect(mockRepo.lastFilter.Limit).To(Equal(25))
		})

		It("should normalize a negative offset", func() {
			_, err := service.List(accesslog.ListFilter{Offset: -5})
			Expect(err).NotTo(HaveOccurred())
			Expect(mockRepo.lastFilter.Offset).To(BeZero())
		})

		It("should filter by user", func() {
			userID := int64(1)
			entries, err := service.List(accesslog.ListFilter{UserID: &userID})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].LockID).To(Equal(int64(10)))
		})

		It("should filter by lock", func() {
			lockID := int64(11)
			entries, err := service.List(accesslog.ListFilter{LockID: &lockID})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})
	})
})
