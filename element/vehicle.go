package element

import (
	"errors"
	"slices"
)

// 时间线上的占用状态
const (
	Idle      = 0.0 // 空闲
	Commuting = 0.5 // 前往接客点
	Serving   = 1.0 // 载客中
)

// Vehicle 表示车队中的一辆车
type Vehicle struct {
	index    int       // 车辆在车队中的位置
	location *Node     // 当前位置（完成最后一单后的位置）
	timeline []float64 // 每秒一个占用状态
}

// NewVehicle 创建一辆停在 location 的车
func NewVehicle(index int, location *Node) *Vehicle {
	if location == nil {
		panic("vehicle location must not be nil")
	}
	return &Vehicle{
		index:    index,
		location: location,
	}
}

// Index 返回车辆ID
func (v *Vehicle) Index() int {
	return v.index
}

// Location 返回车辆当前位置
func (v *Vehicle) Location() *Node {
	return v.location
}

// SetLocation 更新车辆位置
func (v *Vehicle) SetLocation(node *Node) error {
	if node == nil {
		return errors.New("location cannot be nil")
	}
	v.location = node
	return nil
}

// Timeline 返回时间线副本
func (v *Vehicle) Timeline() []float64 {
	return slices.Clone(v.timeline)
}

// BusyUntil 返回时间线长度，即车辆空闲下来的时刻
func (v *Vehicle) BusyUntil() int {
	return len(v.timeline)
}

// IsIdle 判断车辆在 now 时刻是否空闲
func (v *Vehicle) IsIdle(now int) bool {
	return len(v.timeline) <= now
}

// PadTo 用空闲状态将时间线补齐到 t
func (v *Vehicle) PadTo(t int) {
	for len(v.timeline) < t {
		v.timeline = append(v.timeline, Idle)
	}
}

// Append 在时间线末尾追加 n 秒的状态
func (v *Vehicle) Append(state float64, n int) {
	for i := 0; i < n; i++ {
		v.timeline = append(v.timeline, state)
	}
}

// Utilization 返回非空闲秒数占比
func (v *Vehicle) Utilization() float64 {
	if len(v.timeline) == 0 {
		return 0
	}
	busy := 0
	for _, s := range v.timeline {
		if s != Idle {
			busy++
		}
	}
	return float64(busy) / float64(len(v.timeline))
}
