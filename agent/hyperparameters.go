package agent

import "github.com/gmmrr/fleet-route-optim/config"

// DefaultMaxSteps 单个回合的最大步数
const DefaultMaxSteps = 10000

// Rewards 奖励设置
type Rewards struct {
	Invalid    float64 // 当前节点没有该方向的出边
	DeadEnd    float64 // 驶入没有出边的节点
	Loop       float64 // 重复走过同一对连续路段
	Completion float64 // 到达终点
	Bonus      float64 // 到达终点且代价优于历史最好结果，回溯加到本回合走过的每个 (状态, 动作)
	Continue   float64 // 每一步的基础奖励
}

// Hyperparameters 学习参数
//
//	Q(S,a) = Q(S,a) + alpha * (R + gamma * max(Q(S',a')) - Q(S,a))
type Hyperparameters struct {
	LearningRate   float64 // alpha
	DiscountFactor float64 // gamma
	Rewards        Rewards
	MaxSteps       int
}

// DefaultQLearning 返回Q-Learning的默认参数
func DefaultQLearning() Hyperparameters {
	return Hyperparameters{
		LearningRate:   0.9,
		DiscountFactor: 0.1,
		Rewards: Rewards{
			Invalid:    -50,
			DeadEnd:    -50,
			Loop:       -30,
			Completion: 50,
			Bonus:      50,
			Continue:   0,
		},
		MaxSteps: DefaultMaxSteps,
	}
}

// DefaultSARSA 返回SARSA的默认参数和探索率
func DefaultSARSA() (Hyperparameters, float64) {
	return Hyperparameters{
		LearningRate:   0.9,
		DiscountFactor: 0.1,
		Rewards: Rewards{
			Invalid:    -100,
			DeadEnd:    -100,
			Loop:       -100,
			Completion: 10,
			Bonus:      100,
			Continue:   -1,
		},
		MaxSteps: DefaultMaxSteps,
	}, 0.05
}

// FromConfig 由配置生成学习参数
func FromConfig(c config.LearnerConfig, maxSteps int) Hyperparameters {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return Hyperparameters{
		LearningRate:   c.LearningRate,
		DiscountFactor: c.DiscountFactor,
		Rewards: Rewards{
			Invalid:    c.Rewards.Invalid,
			DeadEnd:    c.Rewards.DeadEnd,
			Loop:       c.Rewards.Loop,
			Completion: c.Rewards.Completion,
			Bonus:      c.Rewards.Bonus,
			Continue:   c.Rewards.Continue,
		},
		MaxSteps: maxSteps,
	}
}
