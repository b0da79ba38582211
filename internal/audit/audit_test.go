package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"registrar/pkg/requestcontext"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	fail   error
}

func (s *recordingSink) Publish(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *recordingSink) recorded() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type AuditSuite struct {
	suite.Suite
	publisher *Publisher
	sink      *recordingSink
	worker    *Worker
}

func TestAuditSuite(t *testing.T) {
	suite.Run(t, new(AuditSuite))
}

func (s *AuditSuite) SetupTest() {
	s.publisher = NewPublisher(WithBufferSize(4))
	s.sink = &recordingSink{}
	s.worker = NewWorker(s.publisher, s.sink, WithBatchSize(2))
}

func (s *AuditSuite) TestEmitStampsEvent() {
	fixed := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithRequestID(requestcontext.WithTime(context.Background(), fixed), "req-9")

	s.Require().NoError(s.publisher.Emit(ctx, Event{Type: EventStudentEnrolled, StudentID: 1, CourseID: 2}))
	s.worker.Flush(ctx)

	got := s.sink.recorded()
	s.Require().Len(got, 1)
	s.NotEmpty(got[0].ID)
	s.Equal(fixed, got[0].Timestamp)
	s.Equal("req-9", got[0].RequestID)
	s.Equal("student-1", got[0].Key())
}

func (s *AuditSuite) TestFlushDrainsInOrder() {
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		s.Require().NoError(s.publisher.Emit(ctx, Event{Type: EventCourseCreated, CourseID: i}))
	}

	s.worker.Flush(ctx)

	got := s.sink.recorded()
	s.Require().Len(got, 3)
	s.Equal([]int64{1, 2, 3}, []int64{got[0].CourseID, got[1].CourseID, got[2].CourseID})
	s.Equal(0, s.publisher.Pending())
}

func (s *AuditSuite) TestFailedPublishKeepsEvents() {
	ctx := context.Background()
	s.sink.fail = errors.New("broker down")
	s.Require().NoError(s.publisher.Emit(ctx, Event{Type: EventStudentCreated, StudentID: 1}))
	s.Require().NoError(s.publisher.Emit(ctx, Event{Type: EventStudentCreated, StudentID: 2}))

	s.worker.Flush(ctx)
	s.Equal(2, s.publisher.Pending())

	s.sink.fail = nil
	s.worker.Flush(ctx)
	got := s.sink.recorded()
	s.Require().Len(got, 2)
	s.Equal(int64(1), got[0].StudentID)
}

func (s *AuditSuite) TestRunFlushesOnShutdown() {
	ctx, cancel := context.WithCancel(context.Background())
	worker := NewWorker(s.publisher, s.sink, WithFlushInterval(time.Hour))

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	s.Require().NoError(s.publisher.Emit(context.Background(), Event{Type: EventCourseDeleted, CourseID: 5}))
	cancel()

	s.Require().NoError(<-done)
	s.Len(s.sink.recorded(), 1)
}

func TestRingBufferDropsOldest(t *testing.T) {
	b := NewRingBuffer(2)
	b.Enqueue(Event{CourseID: 1})
	b.Enqueue(Event{CourseID: 2})
	b.Enqueue(Event{CourseID: 3})

	assert.Equal(t, int64(1), b.Dropped())
	got := b.DequeueBatch(10)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].CourseID)
	assert.Equal(t, int64(3), got[1].CourseID)
}

func TestRingBufferRequeueRespectsCapacity(t *testing.T) {
	b := NewRingBuffer(3)
	b.Enqueue(Event{CourseID: 1})
	b.Enqueue(Event{CourseID: 2})
	batch := b.DequeueBatch(2)
	b.Enqueue(Event{CourseID: 3})
	b.Enqueue(Event{CourseID: 4})

	b.Requeue(batch)

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, int64(1), b.Dropped())
	got := b.DequeueBatch(3)
	assert.Equal(t, []int64{2, 3, 4}, []int64{got[0].CourseID, got[1].CourseID, got[2].CourseID})
}
