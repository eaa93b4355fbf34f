package accesslog_test

import (
	"context"
	"time"

	"github.com/accessly/lock-management/internal/accesslog"
	"github.com/accessly/lock-management/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AccessLog Writer", func() {
	var (
		mockRepo *MockRepository
		writer   *accesslog.Writer
	)

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		service := accesslog.NewService(mockRepo, testLogger())
		writer = accesslog.NewWriter(service, accesslog.WriterConfig{QueueSize: 16, MaxWorkers: 2}, testLogger())
	})

	AfterEach(func() {
		writer.Close()
	})

	It("should persist enqueued entries in the background", func() {
		writer.Enqueue(successEntry(10, 1))

		Eventually(mockRepo.Count, time.Second, 10*time.Millisecond).Should(Equal(1))
	})

	It("should persist every entry under a burst", func() {
		for i := 0; i < 50; i++ {
			writer.Enqueue(successEntry(int64(i), 1))
		}

		Eventually(mockRepo.Count, 2*time.Second, 10*time.Millisecond).Should(Equal(50))
	})

	It("should drain remaining entries on close", func() {
		for i := 0; i < 20; i++ {
			writer.Enqueue(successEntry(int64(i), 1))
		}
		writer.Close()

		Expect(mockRepo.Count()).To(Equal(20))
	})

	It("should not lose entries when the queue saturates", func() {
		small := accesslog.NewWriter(
			accesslog.NewService(mockRepo, testLogger()),
			accesslog.WriterConfig{QueueSize: 1, MaxWorkers: 1},
			testLogger(),
		)
		defer small.Close()

		for i := 0; i < 10; i++ {
			small.Enqueue(successEntry(int64(i), 1))
		}
		small.Close()

		Expect(mockRepo.Count()).To(BeNumerically(">=", 10))
	})
})

var _ = Describe("AccessLog EventHandler", func() {
	var (
		mockRepo *MockRepository
		writer   *accesslog.Writer
		bus      *events.EventBus
	)

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		service := accesslog.NewService(mockRepo, testLogger())
		writer = accesslog.NewWriter(service, accesslog.WriterConfig{QueueSize: 16, MaxWorkers: 1}, testLogger())
		bus = events.NewEventBus(testLogger())

		handler := accesslog.NewEventHandler(writer, testLogger())
		handler.RegisterEventHandlers(bus)
	})

	AfterEach(func() {
		writer.Close()
	})

	It("should record a granted attempt as success", func() {
		userID := int64(1)
		err := bus.PublishSync(context.Background(),
			events.NewAccessAttemptedEvent("keypad", &userID, "", 10, "Front Door", true))
		Expect(err).NotTo(HaveOccurred())

		Eventually(mockRepo.Count, time.Second, 10*time.Millisecond).Should(Equal(1))

		entries, listErr := mockRepo.List(accesslog.ListFilter{})
		Expect(listErr).NotTo(HaveOccurred())
		Expect(entries[0].Result).To(Equal(accesslog.ResultSuccess))
		Expect(*entries[0].UserID).To(Equal(userID))
		Expect(entries[0].LockName).To(Equal("Front Door"))
	})

	It("should record a denied attempt with its failure token", func() {
		err := bus.PublishSync(context.Background(),
			events.NewAccessAttemptedEvent("badge", nil, "deadbeef", 10, "Front Door", false))
		Expect(err).NotTo(HaveOccurred())

		Eventually(mockRepo.Count, time.Second, 10*time.Millisecond).Should(Equal(1))

		entries, listErr := mockRepo.List(accesslog.ListFilter{})
		Expect(listErr).NotTo(HaveOccurred())
		Expect(entries[0].Result).To(Equal(accesslog.ResultFailed))
		Expect(entries[0].UserID).To(BeNil())
		Expect(entries[0].FailedCode).To(Equal("deadbeef"))
	})

	It("should reject an event of the wrong type", func() {
		handler := accesslog.NewEventHandler(writer, testLogger())
		err := handler.HandleAccessAttempted(context.Background(),
			events.NewReservationApprovedEvent(1, 1, 10, 1))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("AccessAttemptedEvent"))
	})
})
