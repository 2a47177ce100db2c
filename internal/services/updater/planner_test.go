package updater

import (
	"testing"
	"time"

	"github.com/BearBump/trackrecon/internal/models"
	updatermocks "github.com/BearBump/trackrecon/internal/services/updater/mocks"
	"github.com/stretchr/testify/suite"
)

type PlannerSuite struct {
	suite.Suite
}

func (s *PlannerSuite) TestBackoffDelay() {
	p := NewPlanner(DefaultPlannerConfig(), &updatermocks.Rand{})
	s.Equal(5*time.Minute, p.BackoffDelay(0))
	s.Equal(5*time.Minute, p.BackoffDelay(1))
	s.Equal(15*time.Minute, p.BackoffDelay(2))
	s.Equal(30*time.Minute, p.BackoffDelay(3))
	s.Equal(60*time.Minute, p.BackoffDelay(4))
	s.Equal(60*time.Minute, p.BackoffDelay(100))
}

func (s *PlannerSuite) TestNextCheckDelay_Terminal() {
	m := &updatermocks.Rand{}
	p := NewPlanner(DefaultPlannerConfig(), m)

	s.Equal(30*24*time.Hour, p.NextCheckDelay(models.OwnerOrder, "delivered"))
	s.Equal(30*24*time.Hour, p.NextCheckDelay(models.OwnerOrder, "rto_delivered"))
	s.Equal(30*24*time.Hour, p.NextCheckDelay(models.OwnerReturn, "refunded"))
	m.AssertNotCalled(s.T(), "Intn")
}

func (s *PlannerSuite) TestNextCheckDelay_ActiveUsesJitter() {
	m := &updatermocks.Rand{}
	m.On("Intn", 901).Return(120).Once()
	p := NewPlanner(DefaultPlannerConfig(), m)

	s.Equal(15*time.Minute+120*time.Second, p.NextCheckDelay(models.OwnerOrder, "in_transit"))
	m.AssertExpectations(s.T())
}

func (s *PlannerSuite) TestNextCheckDelay_NoJitter() {
	m := &updatermocks.Rand{}
	cfg := DefaultPlannerConfig()
	cfg.ActiveJitter = 0
	p := NewPlanner(cfg, m)

	// "delivered" не терминален для возврата
	s.Equal(15*time.Minute, p.NextCheckDelay(models.OwnerReturn, "delivered"))
	m.AssertNotCalled(s.T(), "Intn")
}

func TestPlannerSuite(t *testing.T) {
	suite.Run(t, new(PlannerSuite))
}
