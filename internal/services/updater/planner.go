package updater

import (
	"math/rand"
	"time"

	"github.com/BearBump/trackrecon/internal/models"
)

type Rand interface {
	Intn(n int) int
}

type PlannerConfig struct {
	TerminalDelay time.Duration // default: 30 days

	ActiveDelay  time.Duration // default: 15 minutes
	ActiveJitter time.Duration // default: 15 minutes

	Backoff1 time.Duration // default: 5 minutes
	Backoff2 time.Duration // default: 15 minutes
	Backoff3 time.Duration // default: 30 minutes
	Backoff4 time.Duration // default: 60 minutes
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		TerminalDelay: 30 * 24 * time.Hour,

		ActiveDelay:  15 * time.Minute,
		ActiveJitter: 15 * time.Minute,

		Backoff1: 5 * time.Minute,
		Backoff2: 15 * time.Minute,
		Backoff3: 30 * time.Minute,
		Backoff4: 60 * time.Minute,
	}
}

// Planner decides when a record becomes due for the next automatic check.
type Planner struct {
	cfg PlannerConfig
	r   Rand
}

func NewPlanner(cfg PlannerConfig, r Rand) *Planner {
	def := DefaultPlannerConfig()
	if cfg.TerminalDelay <= 0 {
		cfg.TerminalDelay = def.TerminalDelay
	}
	if cfg.ActiveDelay <= 0 {
		cfg.ActiveDelay = def.ActiveDelay
	}
	if cfg.ActiveJitter < 0 {
		cfg.ActiveJitter = 0
	}
	if cfg.Backoff1 <= 0 {
		cfg.Backoff1 = def.Backoff1
	}
	if cfg.Backoff2 <= 0 {
		cfg.Backoff2 = def.Backoff2
	}
	if cfg.Backoff3 <= 0 {
		cfg.Backoff3 = def.Backoff3
	}
	if cfg.Backoff4 <= 0 {
		cfg.Backoff4 = def.Backoff4
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{cfg: cfg, r: r}
}

// NextCheckDelay spreads active records over [ActiveDelay, ActiveDelay+ActiveJitter]
// so a large sync does not hit carriers in one burst next time.
func (p *Planner) NextCheckDelay(owner models.OwnerType, status string) time.Duration {
	if owner.IsTerminal(status) {
		return p.cfg.TerminalDelay
	}
	sec := int(p.cfg.ActiveJitter.Seconds())
	if sec <= 0 {
		return p.cfg.ActiveDelay
	}
	return p.cfg.ActiveDelay + time.Duration(p.r.Intn(sec+1))*time.Second
}

func (p *Planner) BackoffDelay(failCount int32) time.Duration {
	switch {
	case failCount <= 1:
		return p.cfg.Backoff1
	case failCount == 2:
		return p.cfg.Backoff2
	case failCount == 3:
		return p.cfg.Backoff3
	default:
		return p.cfg.Backoff4
	}
}
