package payment

import "math/rand/v2"

// OutcomePolicy decides whether a payment attempt succeeds. Injectable so
// tests can pin either outcome.
type OutcomePolicy interface {
	Approve(orderID string, amount float64) bool
}

// ProbabilityPolicy approves with a fixed probability. Rand defaults to the
// global source; tests substitute a deterministic one.
type ProbabilityPolicy struct {
	SuccessRate float64
	Rand        func() float64
}

func NewProbabilityPolicy(successRate float64) *ProbabilityPolicy {
	return &ProbabilityPolicy{SuccessRate: successRate, Rand: rand.Float64}
}

func (p *ProbabilityPolicy) Approve(string, float64) bool {
	return p.Rand() < p.SuccessRate
}

// FixedPolicy always returns the same outcome. Handy for tests and demos.
type FixedPolicy bool

func (p FixedPolicy) Approve(string, float64) bool { return bool(p) }
