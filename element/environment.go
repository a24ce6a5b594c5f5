package element

import (
	"fmt"

	"github.com/samber/lo"
)

// Evaluation 选择优化的目标量
type Evaluation string

const (
	EvalDistance Evaluation = "distance"
	EvalTime     Evaluation = "time"
)

// ParseEvaluation 校验评估方式
func ParseEvaluation(s string) (Evaluation, error) {
	switch Evaluation(s) {
	case EvalDistance, EvalTime:
		return Evaluation(s), nil
	default:
		return "", fmt.Errorf("%w: invalid evaluation type %q, provide only \"distance\" or \"time\"", ErrConfiguration, s)
	}
}

// Trace 记录一次路径评估中经过的信号灯节点与拥堵路段，仅用于绘图
type Trace struct {
	SignalNodes    []string
	CongestedEdges []string
}

// Environment 路网代价模型：路网 + 信号灯相位 + 拥堵 + 评估方式
// 构建完成后只读，可在多个训练之间共享
type Environment struct {
	net        *Network
	tls        PhaseTable
	congestion *CongestionSet
	evaluation Evaluation
}

// NewEnvironment 创建代价模型
func NewEnvironment(net *Network, tls PhaseTable, congestion *CongestionSet, evaluation Evaluation) (*Environment, error) {
	if _, err := ParseEvaluation(string(evaluation)); err != nil {
		return nil, err
	}
	if net == nil {
		return nil, fmt.Errorf("%w: nil network", ErrConfiguration)
	}
	if net.NumNodes() == 0 {
		return nil, fmt.Errorf("%w: empty network", ErrConfiguration)
	}
	net.Finalize()
	if tls == nil {
		tls = PhaseTable{}
	}
	if congestion == nil {
		congestion = EmptyCongestion()
	}
	return &Environment{
		net:        net,
		tls:        tls,
		congestion: congestion,
		evaluation: evaluation,
	}, nil
}

// WithEvaluation 返回共享路网、相位与拥堵但评估方式不同的代价模型
func (env *Environment) WithEvaluation(evaluation Evaluation) (*Environment, error) {
	return NewEnvironment(env.net, env.tls, env.congestion, evaluation)
}

// Network 返回路网
func (env *Environment) Network() *Network {
	return env.net
}

// Evaluation 返回评估方式
func (env *Environment) Evaluation() Evaluation {
	return env.evaluation
}

// Congestion 返回拥堵集合
func (env *Environment) Congestion() *CongestionSet {
	return env.congestion
}

// SetStartEnd 校验起点和终点
func (env *Environment) SetStartEnd(start, end string) (*Node, *Node, error) {
	startNode, ok := env.net.nodeIndex[start]
	if !ok {
		return nil, nil, fmt.Errorf("%w: invalid start node %s", ErrConfiguration, start)
	}
	endNode, ok := env.net.nodeIndex[end]
	if !ok {
		return nil, nil, fmt.Errorf("%w: invalid end node %s", ErrConfiguration, end)
	}
	return startNode, endNode, nil
}

// Distance 返回路段序列的总长度
func (env *Environment) Distance(edges []*Edge) float64 {
	total := 0.0
	for _, edge := range edges {
		total += edge.length
	}
	return total
}

// DistanceOf 以路段ID计算总长度
func (env *Environment) DistanceOf(ids ...string) (float64, error) {
	edges, err := env.net.ResolveEdges(ids...)
	if err != nil {
		return 0, err
	}
	return env.Distance(edges), nil
}

// Time 返回路段序列的通行时间（秒），每经过一次拥堵路段加一次拥堵时长
func (env *Environment) Time(edges []*Edge) float64 {
	total := 0.0
	for _, edge := range edges {
		total += edge.RideTime()
	}
	for _, edge := range edges {
		if d, ok := env.congestion.Duration(edge.id); ok {
			total += float64(d)
		}
	}
	return total
}

// TimeOf 以路段ID计算通行时间
func (env *Environment) TimeOf(ids ...string) (float64, error) {
	edges, err := env.net.ResolveEdges(ids...)
	if err != nil {
		return 0, err
	}
	return env.Time(edges), nil
}

// TrafficLightOffset 计算信号灯带来的额外等待时间（秒）
//
// 沿路段序列累计行驶时间，每到一个信号灯路口，按 floor(已用时间) mod 周期
// 查找 (进入路段, 驶出路段) 连接的当前信号；若为红灯则逐秒等待到第一个非红灯秒。
// 少于两条路段时没有路口需要评估，返回0。
func (env *Environment) TrafficLightOffset(edges []*Edge) (float64, Trace, error) {
	var trace Trace
	for _, edge := range edges {
		if env.congestion.Contains(edge.id) {
			trace.CongestedEdges = append(trace.CongestedEdges, edge.id)
		}
	}
	trace.CongestedEdges = lo.Uniq(trace.CongestedEdges)

	if len(edges) < 2 {
		return 0, trace, nil
	}

	elapsed := 0.0
	offset := 0.0
	for i := 0; i < len(edges)-1; i++ {
		current, next := edges[i], edges[i+1]
		elapsed += current.RideTime()

		junction := current.to
		if !junction.IsSignalized() {
			continue
		}
		trace.SignalNodes = append(trace.SignalNodes, junction.id)

		conn, ok := env.net.Connection(current, next)
		if !ok {
			return 0, trace, fmt.Errorf("%w: no connection from %s to %s at traffic light %s",
				ErrConfiguration, current.id, next.id, junction.trafficLight)
		}
		seq, err := env.tls.Signal(conn.TrafficLight, conn.LinkIndex)
		if err != nil {
			return 0, trace, err
		}

		wait, ok := idleTime(seq, elapsed)
		if !ok {
			return 0, trace, fmt.Errorf("%w: traffic light %s link %d is red for the whole cycle",
				ErrConfiguration, conn.TrafficLight, conn.LinkIndex)
		}
		elapsed += float64(wait)
		offset += float64(wait)
	}

	trace.SignalNodes = lo.Uniq(trace.SignalNodes)
	return offset, trace, nil
}

// TravelTime 返回考虑信号灯的通行时间（秒）
func (env *Environment) TravelTime(edges []*Edge) (float64, error) {
	offset, _, err := env.TrafficLightOffset(edges)
	if err != nil {
		return 0, err
	}
	return env.Time(edges) + offset, nil
}

// Cost 返回当前评估方式下的实际代价：time 为秒，distance 为米
func (env *Environment) Cost(edges []*Edge) (float64, error) {
	if env.evaluation == EvalDistance {
		return env.Distance(edges), nil
	}
	return env.TravelTime(edges)
}

// EdgeWeight 返回最短路搜索使用的单路段权重
func (env *Environment) EdgeWeight() func(*Edge) float64 {
	if env.evaluation == EvalDistance {
		return func(e *Edge) float64 { return e.length }
	}
	return func(e *Edge) float64 {
		w := e.RideTime()
		if d, ok := env.congestion.Duration(e.id); ok {
			w += float64(d)
		}
		return w
	}
}

// Unit 返回当前评估方式的单位
func (env *Environment) Unit() string {
	if env.evaluation == EvalDistance {
		return "m"
	}
	return "s"
}
