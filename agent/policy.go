package agent

import (
	"github.com/gmmrr/fleet-route-optim/element"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Policy 根据当前状态和Q表选择动作
type Policy interface {
	Act(state int, q *mat.Dense) int
}

// GreedyPolicy 总是选择Q值最大的动作，相同时取序号最小的
type GreedyPolicy struct{}

// Act 实现 Policy
func (GreedyPolicy) Act(state int, q *mat.Dense) int {
	return floats.MaxIdx(q.RawRowView(state))
}

// EpsilonGreedyPolicy 以 Epsilon 的概率随机探索，否则贪心
type EpsilonGreedyPolicy struct {
	Epsilon float64
	rng     *rand.Rand
}

// NewEpsilonGreedyPolicy 创建ε-贪心策略
func NewEpsilonGreedyPolicy(epsilon float64, rng *rand.Rand) *EpsilonGreedyPolicy {
	return &EpsilonGreedyPolicy{Epsilon: epsilon, rng: rng}
}

// Act 实现 Policy
func (p *EpsilonGreedyPolicy) Act(state int, q *mat.Dense) int {
	if p.rng.Float64() < p.Epsilon {
		return p.rng.Intn(element.NumActions)
	}
	return GreedyPolicy{}.Act(state, q)
}
