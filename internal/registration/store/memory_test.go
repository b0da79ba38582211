package store_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"registrar/internal/registration/service"
	"registrar/internal/registration/store"
)

type InMemoryStoreSuite struct {
	contractSuite
}

func TestInMemoryStoreSuite(t *testing.T) {
	s := new(InMemoryStoreSuite)
	s.newStore = func() service.Store { return store.NewInMemoryStore() }
	suite.Run(t, s)
}

// Returned entities are copies; mutating them must not leak into the store.
func (s *InMemoryStoreSuite) TestReturnsCopies() {
	ada := s.createStudent("Ada")
	algebra := s.createCourse("Algebra")
	s.enroll(ada.ID, algebra.ID)

	found, err := s.store.FindStudent(s.ctx, ada.ID)
	s.Require().NoError(err)
	found.CourseIDs[0] = 42
	found.Name = "changed"

	again, err := s.store.FindStudent(s.ctx, ada.ID)
	s.Require().NoError(err)
	s.Equal(algebra.ID, again.CourseIDs[0])
	s.Equal("Ada", again.Name)
}
