package agent

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gmmrr/fleet-route-optim/element"
	"github.com/gmmrr/fleet-route-optim/log"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNonConvergence 回合数用尽仍未收敛
var ErrNonConvergence = errors.New("training did not converge")

// Agent 表格型强化学习路径规划
// 状态为路网节点，动作为四个方向标签，Q表只属于一个Agent
type Agent struct {
	name   string
	env    *element.Environment
	net    *element.Network
	start  *element.Node
	end    *element.Node
	hp     Hyperparameters
	policy Policy

	q          *mat.Dense
	bestResult float64
	hasBest    bool
}

// StepResult 执行一个动作的结果
type StepResult struct {
	NextEdge  *element.Edge // 动作无效时仍为当前路段
	NextState *element.Node // 动作无效时仍为当前节点
	Reward    float64
	Terminate bool
}

// EpisodeLog 一个回合走过的节点与路段
type EpisodeLog struct {
	NodePath []*element.Node
	EdgePath []*element.Edge
}

// TrainResult 训练结果
type TrainResult struct {
	NodePath []*element.Node
	EdgePath []*element.Edge
	Episode  int // 收敛时的回合序号
	Logs     []EpisodeLog
	Elapsed  time.Duration
}

// New 创建Agent，起终点必须存在于路网中
func New(name string, env *element.Environment, start, end string, hp Hyperparameters, policy Policy) (*Agent, error) {
	startNode, endNode, err := env.SetStartEnd(start, end)
	if err != nil {
		return nil, err
	}
	if hp.MaxSteps <= 0 {
		hp.MaxSteps = DefaultMaxSteps
	}
	a := &Agent{
		name:   name,
		env:    env,
		net:    env.Network(),
		start:  startNode,
		end:    endNode,
		hp:     hp,
		policy: policy,
	}
	a.Reset()
	return a, nil
}

// NewQLearning 创建贪心策略的Q-Learning
func NewQLearning(env *element.Environment, start, end string, hp Hyperparameters) (*Agent, error) {
	return New("Q-Learning", env, start, end, hp, GreedyPolicy{})
}

// NewSARSA 创建ε-贪心策略的SARSA
// 更新公式与Q-Learning相同，使用下一状态的最大Q值
func NewSARSA(env *element.Environment, start, end string, hp Hyperparameters, epsilon float64, rng *rand.Rand) (*Agent, error) {
	return New("SARSA", env, start, end, hp, NewEpsilonGreedyPolicy(epsilon, rng))
}

// Name 返回算法名称
func (a *Agent) Name() string {
	return a.name
}

// Reset 清空Q表与历史最好结果
func (a *Agent) Reset() {
	a.q = mat.NewDense(a.net.NumNodes(), element.NumActions, nil)
	a.bestResult = 0
	a.hasBest = false
}

// QTable 返回Q表
func (a *Agent) QTable() *mat.Dense {
	return a.q
}

// Act 按策略为状态选择动作
func (a *Agent) Act(state *element.Node) int {
	return a.policy.Act(int(state.ID()), a.q)
}

func (a *Agent) addQ(edge *element.Edge, delta float64) {
	s := int(edge.FromNode().ID())
	act := a.net.Label(edge)
	a.q.Set(s, act, a.q.At(s, act)+delta)
}

// Step 在 nodePath 的最后一个节点执行动作
//
// 奖励以 Continue 为基础，再按情况叠加：
//   - 动作无效：原地不动，加 Invalid
//   - 到达终点：加 Completion；若代价严格优于历史最好结果，给本回合已走过的路段加 Bonus
//   - 进入死路：加 DeadEnd，并沿来路回溯到出度大于1的节点为止，途经的 (状态, 动作) 再加 DeadEnd
//   - 重复走过已出现的连续路段对：加 Loop
func (a *Agent) Step(action int, nodePath []*element.Node, edgePath []*element.Edge) (StepResult, error) {
	current := nodePath[len(nodePath)-1]
	var currentEdge *element.Edge
	if len(edgePath) > 0 {
		currentEdge = edgePath[len(edgePath)-1]
	}

	r := a.hp.Rewards
	result := StepResult{Reward: r.Continue}

	nextEdge := a.net.EdgeForAction(current, action)
	if nextEdge == nil {
		result.Reward += r.Invalid
		result.NextState = current
		result.NextEdge = currentEdge
		return result, nil
	}

	next := nextEdge.ToNode()
	result.NextEdge = nextEdge
	result.NextState = next

	switch {
	case next == a.end:
		result.Reward += r.Completion
		result.Terminate = true

		cost, err := a.env.Cost(append(append([]*element.Edge(nil), edgePath...), nextEdge))
		if err != nil {
			return result, err
		}
		if !a.hasBest {
			a.bestResult = cost
			a.hasBest = true
		} else if cost < a.bestResult {
			for _, edge := range edgePath {
				a.addQ(edge, r.Bonus)
			}
			a.bestResult = cost
		}

	case len(a.net.Outgoing(next)) == 0:
		result.Reward += r.DeadEnd
		result.Terminate = true

		// 回溯找到瓶颈节点
		for i := len(edgePath) - 1; i >= 0; i-- {
			edge := edgePath[i]
			if len(a.net.Outgoing(edge.ToNode())) > 1 {
				break
			}
			a.addQ(edge, r.DeadEnd)
		}

	case currentEdge != nil:
		for i := 0; i < len(edgePath)-1; i++ {
			if edgePath[i] == currentEdge && edgePath[i+1] == nextEdge {
				result.Reward += r.Loop
				break
			}
		}
	}

	return result, nil
}

// Learn 单步时序差分更新
//
//	Q(S,a) += alpha * (R + gamma * max(Q(S',a')) - Q(S,a))
func (a *Agent) Learn(state *element.Node, action int, next *element.Node, reward float64) {
	s := int(state.ID())
	predict := a.q.At(s, action)
	target := reward + a.hp.DiscountFactor*floats.Max(a.q.RawRowView(int(next.ID())))
	a.q.Set(s, action, predict+a.hp.LearningRate*(target-predict))
}

// runEpisode 从起点出发直到终止、到达终点或超过最大步数
func (a *Agent) runEpisode() (EpisodeLog, error) {
	nodePath := []*element.Node{a.start}
	var edgePath []*element.Edge
	terminate := false

	for steps := 0; steps < a.hp.MaxSteps; steps++ {
		last := nodePath[len(nodePath)-1]
		if terminate || last == a.end {
			break
		}

		action := a.Act(last)
		res, err := a.Step(action, nodePath, edgePath)
		if err != nil {
			return EpisodeLog{}, err
		}
		a.Learn(last, action, res.NextState, res.Reward)
		terminate = res.Terminate

		if res.NextState != last {
			edgePath = append(edgePath, res.NextEdge)
			nodePath = append(nodePath, res.NextState)
		}
	}
	return EpisodeLog{NodePath: nodePath, EdgePath: edgePath}, nil
}

// Train 训练直至收敛
//
// 第 threshold 个回合之后，若本回合到达终点，且最近 threshold 个回合的通行时间
// （保留两位小数）完全一致，或本回合通行时间不足1分钟，则视为收敛。
// numEpisodes 个回合内未收敛返回 ErrNonConvergence。
func (a *Agent) Train(numEpisodes, threshold int) (TrainResult, error) {
	if numEpisodes <= 0 || threshold <= 0 {
		return TrainResult{}, fmt.Errorf("%w: episodes and threshold must be positive", element.ErrConfiguration)
	}

	log.WriteLog(fmt.Sprintf("%s Training Start: %s -> %s", a.name, a.start.Name(), a.end.Name()))
	startTime := time.Now()
	a.Reset()

	logs := make([]EpisodeLog, 0, numEpisodes)
	for episode := 0; episode < numEpisodes; episode++ {
		ep, err := a.runEpisode()
		if err != nil {
			return TrainResult{}, err
		}
		logs = append(logs, ep)

		if episode <= threshold || ep.NodePath[len(ep.NodePath)-1] != a.end {
			continue
		}

		converged, err := a.converged(logs, threshold)
		if err != nil {
			return TrainResult{}, err
		}
		if converged {
			result := TrainResult{
				NodePath: ep.NodePath,
				EdgePath: ep.EdgePath,
				Episode:  episode,
				Logs:     logs,
				Elapsed:  time.Since(startTime),
			}
			a.report(result)
			return result, nil
		}
	}

	log.WriteLog(fmt.Sprintf("%s Training Completed without convergence, Processing Time: %v", a.name, time.Since(startTime)))
	return TrainResult{}, fmt.Errorf("%w: cannot find shortest route within %d episodes", ErrNonConvergence, numEpisodes)
}

func (a *Agent) converged(logs []EpisodeLog, threshold int) (bool, error) {
	last := len(logs) - 1
	first := 0.0
	same := true
	for i := 0; i < threshold; i++ {
		t, err := a.env.TravelTime(logs[last-i].EdgePath)
		if err != nil {
			return false, err
		}
		t = round2(t)
		if i == 0 {
			first = t
		} else if t != first {
			same = false
		}
	}
	if same {
		return true, nil
	}
	return round2(first/60) < 1, nil
}

func (a *Agent) report(result TrainResult) {
	log.WriteLog(fmt.Sprintf("%s Training Completed, Last Episode: %d", a.name, result.Episode))
	log.WriteLog(fmt.Sprintf("-- States: %v", result.NodePath))
	log.WriteLog(fmt.Sprintf("-- Edges: %v", result.EdgePath))
	log.WriteLog(fmt.Sprintf("-- Processing Time: %v", result.Elapsed))

	if a.env.Evaluation() == element.EvalTime {
		if t, err := a.env.TravelTime(result.EdgePath); err == nil {
			log.WriteLog(fmt.Sprintf("-- Travelled Time: %.2f mins", t/60))
		}
	} else {
		log.WriteLog(fmt.Sprintf("-- Travelled Distance: %.2f m", a.env.Distance(result.EdgePath)))
	}
}

// Performance 返回每个回合的实际代价，time 为分钟，distance 为米
func Performance(env *element.Environment, logs []EpisodeLog) ([]float64, error) {
	series := make([]float64, len(logs))
	for i, ep := range logs {
		if env.Evaluation() == element.EvalTime {
			t, err := env.TravelTime(ep.EdgePath)
			if err != nil {
				return nil, err
			}
			series[i] = t / 60
		} else {
			series[i] = env.Distance(ep.EdgePath)
		}
	}
	return series, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
