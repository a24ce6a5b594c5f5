package simulator

import (
	"errors"
	"fmt"

	"github.com/gmmrr/fleet-route-optim/config"
	"github.com/gmmrr/fleet-route-optim/element"
	"github.com/gmmrr/fleet-route-optim/utils"
	"golang.org/x/exp/rand"
)

// DemandGenerator 随机生成出行需求
// 请求时刻单调递增，每次增加 [MinInterval, MaxInterval] 秒；
// 起终点不同且最短时间路径不短于 MinTravelTime，避免过近的需求
type DemandGenerator struct {
	env         *element.Environment // 以时间评估的代价模型
	finder      utils.PathFinder
	nodes       []*element.Node
	cfg         config.DemandConfig
	rng         *rand.Rand
	currentTime int
	count       int
}

// NewDemandGenerator 创建需求生成器
func NewDemandGenerator(env *element.Environment, cfg config.DemandConfig, rng *rand.Rand) (*DemandGenerator, error) {
	timeEnv, err := env.WithEvaluation(element.EvalTime)
	if err != nil {
		return nil, err
	}
	nodes := timeEnv.Network().Nodes()
	if len(nodes) < 2 {
		return nil, fmt.Errorf("%w: demand generation needs at least two nodes", element.ErrConfiguration)
	}
	if cfg.MinInterval < 0 || cfg.MaxInterval < cfg.MinInterval {
		return nil, fmt.Errorf("%w: invalid demand interval [%d, %d]", element.ErrConfiguration, cfg.MinInterval, cfg.MaxInterval)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1000
	}

	return &DemandGenerator{
		env:    timeEnv,
		finder: utils.GetPathFinder(timeEnv),
		nodes:  nodes,
		cfg:    cfg,
		rng:    rng,
	}, nil
}

// Push 生成下一个需求
func (g *DemandGenerator) Push() (element.Demand, error) {
	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		askingTime := g.currentTime + g.cfg.MinInterval + g.rng.Intn(g.cfg.MaxInterval-g.cfg.MinInterval+1)
		start := g.nodes[g.rng.Intn(len(g.nodes))]
		end := g.nodes[g.rng.Intn(len(g.nodes))]
		for end == start {
			end = g.nodes[g.rng.Intn(len(g.nodes))]
		}

		route, err := g.finder(start, end)
		if errors.Is(err, utils.ErrUnreachable) {
			continue
		}
		if err != nil {
			return element.Demand{}, err
		}
		if g.env.Time(route.Edges) < g.cfg.MinTravelTime {
			continue
		}

		g.currentTime = askingTime
		g.count++
		return element.Demand{
			Index:       g.count,
			RequestTime: askingTime,
			Start:       start,
			End:         end,
		}, nil
	}

	return element.Demand{}, fmt.Errorf("%w: no demand with travel time >= %.0f s after %d attempts",
		element.ErrConfiguration, g.cfg.MinTravelTime, g.cfg.MaxAttempts)
}

// Count 返回已生成的需求数量
func (g *DemandGenerator) Count() int {
	return g.count
}
