package simulator

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gmmrr/fleet-route-optim/agent"
	"github.com/gmmrr/fleet-route-optim/config"
	"github.com/gmmrr/fleet-route-optim/element"
	"github.com/gmmrr/fleet-route-optim/loader"
	"github.com/gmmrr/fleet-route-optim/log"
	"github.com/gmmrr/fleet-route-optim/utils"
	"github.com/google/uuid"
	"golang.org/x/exp/rand"
)

// BuildEnvironment 根据配置构建代价模型：路网文件或合成网格、信号灯相位、拥堵与评估方式
func BuildEnvironment(cfg *config.Config) (*element.Environment, error) {
	var (
		net *element.Network
		tls element.PhaseTable
		err error
	)

	if cfg.Network.File != "" {
		net, err = loader.LoadNetwork(cfg.Network.File)
		if err != nil {
			return nil, err
		}
		if cfg.Network.TLSFile != "" {
			tls, err = loader.LoadTrafficLights(cfg.Network.TLSFile)
			if err != nil {
				return nil, err
			}
		}
	} else {
		g := cfg.Network.Grid
		net, tls, err = CreateGridNetwork(g.Rows, g.Cols, g.Spacing, g.Speed, g.LightInterval, g.Cycle)
		if err != nil {
			return nil, err
		}
	}

	if net.NumNodes() == 0 {
		return nil, fmt.Errorf("%w: empty network", element.ErrConfiguration)
	}

	log.WriteLog(fmt.Sprintf("节点总数: %d, 路段总数: %d, 红绿灯数量: %d", net.NumNodes(), net.NumEdges(), len(tls)))
	bound := net.Bound()
	log.WriteLog(fmt.Sprintf("路网范围: (%.1f, %.1f) - (%.1f, %.1f)", bound.Min.X(), bound.Min.Y(), bound.Max.X(), bound.Max.Y()))
	log.WriteLog(fmt.Sprintf("图连通性: %v", utils.IsStronglyConnected(net)))

	var congestion *element.CongestionSet
	if len(cfg.Congestion.Edges) > 0 {
		items := make([]element.Congestion, 0, len(cfg.Congestion.Edges))
		for _, c := range cfg.Congestion.Edges {
			items = append(items, element.Congestion{EdgeID: c.Edge, Duration: c.Duration})
		}
		congestion, err = element.NewCongestionSet(net, items)
	} else {
		congestion, err = element.SampleCongestion(net, cfg.Congestion.Level, rand.New(rand.NewSource(cfg.Congestion.Seed)))
	}
	if err != nil {
		return nil, err
	}
	log.WriteLog(fmt.Sprintf("Congested/Total: %d/%d", congestion.Len(), net.NumEdges()))

	evaluation, err := element.ParseEvaluation(cfg.Evaluation)
	if err != nil {
		return nil, err
	}
	return element.NewEnvironment(net, tls, congestion, evaluation)
}

// RouteEndpoints 返回配置的起终点，未配置时取路网第一个和最后一个节点
func RouteEndpoints(env *element.Environment, cfg config.RouteConfig) (string, string) {
	if cfg.Start != "" && cfg.End != "" {
		return cfg.Start, cfg.End
	}
	nodes := env.Network().Nodes()
	return nodes[0].Name(), nodes[len(nodes)-1].Name()
}

// RouteReport 一次路径规划的结果
type RouteReport struct {
	Route   utils.Route
	Cost    float64 // 当前评估方式下的实际代价
	Trace   element.Trace
	Elapsed time.Duration
}

// RunRoute 使用Dijkstra计算 start 到 end 的最短路径
func RunRoute(env *element.Environment, start, end string) (RouteReport, error) {
	startNode, endNode, err := env.SetStartEnd(start, end)
	if err != nil {
		return RouteReport{}, err
	}

	log.WriteLog(fmt.Sprintf("Dijkstra Search Start: %s -> %s", start, end))
	startTime := time.Now()
	route, err := utils.GetPathFinder(env)(startNode, endNode)
	if err != nil {
		return RouteReport{}, err
	}
	elapsed := time.Since(startTime)

	cost, err := env.Cost(route.Edges)
	if err != nil {
		return RouteReport{}, err
	}
	_, trace, err := env.TrafficLightOffset(route.Edges)
	if err != nil {
		return RouteReport{}, err
	}

	log.WriteLog("Dijkstra Search Completed")
	log.WriteLog(fmt.Sprintf("-- States: %v", route.NodeIDs()))
	log.WriteLog(fmt.Sprintf("-- Edges: %v", route.EdgeIDs()))
	log.WriteLog(fmt.Sprintf("-- Processing Time: %v", elapsed))
	log.WriteLog(fmt.Sprintf("-- Cost: %.2f %s", cost, env.Unit()))

	return RouteReport{Route: route, Cost: cost, Trace: trace, Elapsed: elapsed}, nil
}

// TrainingReport 一次强化学习训练的结果
type TrainingReport struct {
	Result      agent.TrainResult
	Cost        float64   // 收敛路径在当前评估方式下的代价
	Performance []float64 // 每个回合的代价，time 为分钟，distance 为米
	Trace       element.Trace
}

// NewAgent 根据算法名称创建Agent
func NewAgent(env *element.Environment, cfg config.AgentConfig, algorithm, start, end string, seed uint64) (*agent.Agent, error) {
	switch algorithm {
	case "qlearning":
		return agent.NewQLearning(env, start, end, agent.FromConfig(cfg.QLearning, cfg.MaxSteps))
	case "sarsa":
		return agent.NewSARSA(env, start, end, agent.FromConfig(cfg.SARSA, cfg.MaxSteps),
			cfg.SARSA.ExplorationRate, rand.New(rand.NewSource(seed)))
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", element.ErrConfiguration, algorithm)
	}
}

// RunTraining 训练一个Agent直至收敛
func RunTraining(env *element.Environment, cfg config.AgentConfig, algorithm, start, end string, seed uint64) (TrainingReport, error) {
	a, err := NewAgent(env, cfg, algorithm, start, end, seed)
	if err != nil {
		return TrainingReport{}, err
	}
	result, err := a.Train(cfg.Episodes, cfg.Threshold)
	if err != nil {
		return TrainingReport{}, err
	}

	cost, err := env.Cost(result.EdgePath)
	if err != nil {
		return TrainingReport{}, err
	}
	performance, err := agent.Performance(env, result.Logs)
	if err != nil {
		return TrainingReport{}, err
	}
	_, trace, err := env.TrafficLightOffset(result.EdgePath)
	if err != nil {
		return TrainingReport{}, err
	}
	return TrainingReport{Result: result, Cost: cost, Performance: performance, Trace: trace}, nil
}

// FleetReport 车队模拟结果
type FleetReport struct {
	Records  []DispatchRecord
	Stats    FleetStats
	Vehicles []*element.Vehicle
}

// RunFleet 运行车队派车模拟，结束后补齐所有车辆时间线
func RunFleet(env *element.Environment, cfg config.FleetConfig) (FleetReport, error) {
	evaluation, err := element.ParseEvaluation(cfg.Evaluation)
	if err != nil {
		return FleetReport{}, err
	}
	fleetEnv, err := env.WithEvaluation(evaluation)
	if err != nil {
		return FleetReport{}, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	gen, err := NewDemandGenerator(fleetEnv, cfg.Demand, rng)
	if err != nil {
		return FleetReport{}, err
	}
	fleet, err := NewFleet(fleetEnv, gen, cfg, rng)
	if err != nil {
		return FleetReport{}, err
	}

	log.WriteLog("----------------------------------Fleet Simulation Start----------------------------------")
	records, err := fleet.Run()
	if err != nil {
		return FleetReport{}, err
	}
	fleet.FillTimeline()

	stats := fleet.Stats()
	stats.LogStatus()
	return FleetReport{Records: records, Stats: stats, Vehicles: fleet.Vehicles()}, nil
}

// SweepResult 参数扫描中一次训练的结果
type SweepResult struct {
	Run    int
	RunID  string
	Seed   uint64
	Report TrainingReport
	Err    error
}

// RunSweep 使用不同随机种子并行训练多个Agent
// 每次训练拥有独立的Agent与Q表，代价模型只读共享
func RunSweep(ctx context.Context, env *element.Environment, cfg *config.Config, start, end string) ([]SweepResult, error) {
	runs := cfg.Sweep.Runs
	if runs <= 0 {
		return nil, fmt.Errorf("%w: sweep needs at least one run", element.ErrConfiguration)
	}

	pool := utils.NewWorkerPool(ctx, cfg.Sweep.Workers)
	defer pool.Stop()
	log.WriteLog(fmt.Sprintf("Sweep Start: %d runs of %s, %d workers", runs, cfg.Agent.Algorithm, pool.Workers()))

	var mu sync.Mutex
	results := make([]SweepResult, 0, runs)
	for i := 0; i < runs; i++ {
		run := SweepResult{Run: i, RunID: uuid.NewString(), Seed: cfg.Agent.Seed + uint64(i)}
		ok := pool.Submit(func() {
			run.Report, run.Err = RunTraining(env, cfg.Agent, cfg.Agent.Algorithm, start, end, run.Seed)
			if run.Err != nil {
				log.WriteLog(fmt.Sprintf("Sweep run %d (%s) failed: %v", run.Run, run.RunID, run.Err))
			}
			mu.Lock()
			results = append(results, run)
			mu.Unlock()
		})
		if !ok {
			break
		}
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b SweepResult) int { return a.Run - b.Run })
	return results, nil
}
