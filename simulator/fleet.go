package simulator

import (
	"container/list"
	"errors"
	"fmt"
	"math"

	"github.com/gmmrr/fleet-route-optim/config"
	"github.com/gmmrr/fleet-route-optim/element"
	"github.com/gmmrr/fleet-route-optim/log"
	"github.com/gmmrr/fleet-route-optim/utils"
	"github.com/samber/lo"
	"golang.org/x/exp/rand"
)

// Dispatch 一次派车决策
type Dispatch struct {
	Vehicle  *element.Vehicle
	Wait     int         // 等待车辆空闲的秒数，空闲车辆为0
	Commute  int         // 前往接客点的秒数
	Estimate float64     // 派车评估使用的接客代价（米或秒）
	Route    utils.Route // 接客路径
}

// DispatchRecord 一个需求的处理结果
type DispatchRecord struct {
	Demand  element.Demand
	Vehicle int
	Wait    int // 等待车辆空闲
	Commute int // 接客耗时
	Service int // 送客耗时
}

// Waiting 乘客总等待时间
func (r DispatchRecord) Waiting() int {
	return r.Wait + r.Commute
}

// Fleet 车队派车模拟
// 需求按生成顺序逐个处理，队列中最多只有一个待处理需求
type Fleet struct {
	env        *element.Environment // 派车评估
	timeEnv    *element.Environment // 通行时间
	finder     utils.PathFinder
	timeFinder utils.PathFinder
	gen        *DemandGenerator
	numVehicle int
	numDemand  int
	rng        *rand.Rand

	vehicles []*element.Vehicle
	queue    *list.List
	now      int
	records  []DispatchRecord
}

// NewFleet 创建车队，env 的评估方式决定派车时比较接客距离还是接客时间
func NewFleet(env *element.Environment, gen *DemandGenerator, cfg config.FleetConfig, rng *rand.Rand) (*Fleet, error) {
	if cfg.NumVehicle <= 0 {
		return nil, fmt.Errorf("%w: fleet needs at least one vehicle", element.ErrConfiguration)
	}
	if env.Network().NumNodes() == 0 {
		return nil, fmt.Errorf("%w: empty network", element.ErrConfiguration)
	}
	timeEnv, err := env.WithEvaluation(element.EvalTime)
	if err != nil {
		return nil, err
	}

	f := &Fleet{
		env:        env,
		timeEnv:    timeEnv,
		finder:     utils.GetPathFinder(env),
		timeFinder: utils.GetPathFinder(timeEnv),
		gen:        gen,
		numVehicle: cfg.NumVehicle,
		numDemand:  cfg.NumDemand,
		rng:        rng,
	}
	f.Reset()
	return f, nil
}

// Reset 将车辆随机分布到路网节点上并清空时间线
func (f *Fleet) Reset() {
	nodes := f.env.Network().Nodes()
	f.vehicles = make([]*element.Vehicle, f.numVehicle)
	for i := range f.vehicles {
		f.vehicles[i] = element.NewVehicle(i, nodes[f.rng.Intn(len(nodes))])
	}
	f.queue = list.New()
	f.now = 0
	f.records = nil

	locations := lo.Map(f.vehicles, func(v *element.Vehicle, _ int) string { return v.Location().Name() })
	log.WriteLog(fmt.Sprintf("-- Initial vehicle states: %v", locations))
}

// Vehicles 返回车队车辆
func (f *Fleet) Vehicles() []*element.Vehicle {
	return f.vehicles
}

// Now 返回当前模拟时刻
func (f *Fleet) Now() int {
	return f.now
}

// Records 返回已处理需求的记录
func (f *Fleet) Records() []DispatchRecord {
	return f.records
}

// IsEmpty 需求已全部生成且队列为空
func (f *Fleet) IsEmpty() bool {
	return f.gen.Count() >= f.numDemand && f.queue.Len() == 0
}

// UpdateDemandQueue 取出下一个需求，推进时钟并把所有车辆的时间线补齐到请求时刻
func (f *Fleet) UpdateDemandQueue() (element.Demand, error) {
	d, err := f.gen.Push()
	if err != nil {
		return element.Demand{}, err
	}
	f.queue.PushBack(d)

	f.now = d.RequestTime
	for _, v := range f.vehicles {
		v.PadTo(f.now)
	}

	demand := f.queue.Remove(f.queue.Front()).(element.Demand)
	log.WriteLog(fmt.Sprintf("-- %s", demand))
	return demand, nil
}

// GetNearestVehicle 为接客点选择车辆
//
// 有空闲车辆时选择接客代价最小的，代价相同取序号最小的；
// 没有空闲车辆时选择最早空闲的车辆，从其当前位置出发接客
func (f *Fleet) GetNearestVehicle(start *element.Node) (Dispatch, error) {
	var candidates []Dispatch
	for _, v := range f.vehicles {
		if !v.IsIdle(f.now) {
			continue
		}
		d, err := f.dispatchFor(v, start)
		if errors.Is(err, utils.ErrUnreachable) {
			continue
		}
		if err != nil {
			return Dispatch{}, err
		}
		candidates = append(candidates, d)
	}

	if len(candidates) > 0 {
		best := lo.MinBy(candidates, func(a, b Dispatch) bool { return a.Estimate < b.Estimate })
		return best, nil
	}

	// 所有车辆都在忙，选最早空闲的
	busy := lo.Filter(f.vehicles, func(v *element.Vehicle, _ int) bool { return !v.IsIdle(f.now) })
	for len(busy) > 0 {
		v := lo.MinBy(busy, func(a, b *element.Vehicle) bool { return a.BusyUntil() < b.BusyUntil() })
		d, err := f.dispatchFor(v, start)
		if errors.Is(err, utils.ErrUnreachable) {
			busy = lo.Without(busy, v)
			continue
		}
		if err != nil {
			return Dispatch{}, err
		}
		d.Wait = v.BusyUntil() - f.now
		return d, nil
	}

	return Dispatch{}, fmt.Errorf("no vehicle can reach %s: %w", start.Name(), utils.ErrUnreachable)
}

func (f *Fleet) dispatchFor(v *element.Vehicle, start *element.Node) (Dispatch, error) {
	route, err := f.finder(v.Location(), start)
	if err != nil {
		return Dispatch{}, err
	}
	estimate, err := f.env.Cost(route.Edges)
	if err != nil {
		return Dispatch{}, err
	}
	commute, err := f.timeEnv.TravelTime(route.Edges)
	if err != nil {
		return Dispatch{}, err
	}
	return Dispatch{
		Vehicle:  v,
		Commute:  int(math.Ceil(commute)),
		Estimate: estimate,
		Route:    route,
	}, nil
}

// SetVehicleWorking 先追加接客状态再追加载客状态，车辆停到需求终点
func (f *Fleet) SetVehicleWorking(d Dispatch, demand element.Demand, serviceTime int) error {
	d.Vehicle.Append(element.Commuting, d.Commute)
	d.Vehicle.Append(element.Serving, serviceTime)
	return d.Vehicle.SetLocation(demand.End)
}

// ServiceTime 返回需求起点到终点的通行时间（秒，向上取整）
func (f *Fleet) ServiceTime(demand element.Demand) (int, error) {
	route, err := f.timeFinder(demand.Start, demand.End)
	if err != nil {
		return 0, err
	}
	t, err := f.timeEnv.TravelTime(route.Edges)
	if err != nil {
		return 0, err
	}
	return int(math.Ceil(t)), nil
}

// Step 处理一个需求
func (f *Fleet) Step() (DispatchRecord, error) {
	demand, err := f.UpdateDemandQueue()
	if err != nil {
		return DispatchRecord{}, err
	}
	dispatch, err := f.GetNearestVehicle(demand.Start)
	if err != nil {
		return DispatchRecord{}, err
	}
	service, err := f.ServiceTime(demand)
	if err != nil {
		return DispatchRecord{}, err
	}
	if err := f.SetVehicleWorking(dispatch, demand, service); err != nil {
		return DispatchRecord{}, err
	}

	record := DispatchRecord{
		Demand:  demand,
		Vehicle: dispatch.Vehicle.Index(),
		Wait:    dispatch.Wait,
		Commute: dispatch.Commute,
		Service: service,
	}
	f.records = append(f.records, record)
	log.WriteLog(fmt.Sprintf("-- Assigned vehicle id: %d, wait %d s, commute %d s, service %d s",
		record.Vehicle, record.Wait, record.Commute, record.Service))
	return record, nil
}

// Run 处理所有需求
func (f *Fleet) Run() ([]DispatchRecord, error) {
	for !f.IsEmpty() {
		if _, err := f.Step(); err != nil {
			return f.records, err
		}
	}
	return f.records, nil
}

// FillTimeline 将所有车辆的时间线用空闲状态补齐到相同长度
func (f *Fleet) FillTimeline() {
	total := f.TotalTime()
	for _, v := range f.vehicles {
		v.PadTo(total)
	}
}

// TotalTime 返回最长的时间线长度，即模拟总时长
func (f *Fleet) TotalTime() int {
	total := 0
	for _, v := range f.vehicles {
		total = max(total, v.BusyUntil())
	}
	return total
}
