package element

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

// 拥堵等级对应的拥堵路段比例
var congestionLevels = map[string]float64{
	"low":    0.05,
	"medium": 0.10,
	"high":   0.20,
}

// 随机拥堵时长范围（秒）
const (
	MinCongestionDuration = 60
	MaxCongestionDuration = 120
)

// Congestion 表示一条拥堵路段及其额外耗时（秒）
type Congestion struct {
	EdgeID   string
	Duration int
}

// CongestionSet 拥堵路段集合，同一路段以首次出现的时长为准
type CongestionSet struct {
	items    []Congestion
	duration map[string]int
}

func newCongestionSet(items []Congestion) *CongestionSet {
	set := &CongestionSet{
		items:    items,
		duration: make(map[string]int, len(items)),
	}
	for _, c := range items {
		if _, ok := set.duration[c.EdgeID]; !ok {
			set.duration[c.EdgeID] = c.Duration
		}
	}
	return set
}

// NewCongestionSet 使用指定的拥堵路段创建集合，所有路段必须存在于路网中
func NewCongestionSet(net *Network, items []Congestion) (*CongestionSet, error) {
	for _, c := range items {
		if _, ok := net.edgeIndex[c.EdgeID]; !ok {
			return nil, fmt.Errorf("%w: invalid congestion edge %s", ErrConfiguration, c.EdgeID)
		}
		if c.Duration < 0 {
			return nil, fmt.Errorf("%w: negative congestion duration on %s", ErrConfiguration, c.EdgeID)
		}
	}
	return newCongestionSet(append([]Congestion(nil), items...)), nil
}

// SampleCongestion 按拥堵等级随机选择拥堵路段（不放回），时长在 [60, 120] 秒内均匀取整
func SampleCongestion(net *Network, level string, rng *rand.Rand) (*CongestionSet, error) {
	fraction, ok := congestionLevels[level]
	if !ok {
		return nil, fmt.Errorf("%w: invalid congestion level %q, provide low, medium or high", ErrConfiguration, level)
	}

	count := int(math.RoundToEven(float64(len(net.edges)) * fraction))
	perm := rng.Perm(len(net.edges))

	items := make([]Congestion, 0, count)
	for _, idx := range perm[:count] {
		items = append(items, Congestion{
			EdgeID:   net.edges[idx].id,
			Duration: MinCongestionDuration + rng.Intn(MaxCongestionDuration-MinCongestionDuration+1),
		})
	}
	return newCongestionSet(items), nil
}

// EmptyCongestion 返回没有拥堵的集合
func EmptyCongestion() *CongestionSet {
	return newCongestionSet(nil)
}

// Duration 返回路段的拥堵时长
func (s *CongestionSet) Duration(edgeID string) (int, bool) {
	d, ok := s.duration[edgeID]
	return d, ok
}

// Contains 判断路段是否拥堵
func (s *CongestionSet) Contains(edgeID string) bool {
	_, ok := s.duration[edgeID]
	return ok
}

// Items 返回拥堵路段列表
func (s *CongestionSet) Items() []Congestion {
	return append([]Congestion(nil), s.items...)
}

// Len 返回拥堵路段数量
func (s *CongestionSet) Len() int {
	return len(s.items)
}
