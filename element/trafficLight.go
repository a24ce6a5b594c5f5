package element

import (
	"fmt"
)

// Phase 信号灯的一个相位：持续秒数与各连接的信号字符
type Phase struct {
	Duration int
	State    string
}

// PhaseGroup 一个信号灯的完整相位程序
type PhaseGroup struct {
	ID     string
	Phases []Phase
}

// PhaseTable 信号灯ID -> 连接序号 -> 每秒一个字符的周期序列
type PhaseTable map[string]map[int][]byte

// ExpandPhases 将相位程序展开为逐秒的信号序列
// 每个连接序列的长度等于该信号灯所有相位时长之和
func ExpandPhases(groups []PhaseGroup) (PhaseTable, error) {
	table := make(PhaseTable, len(groups))

	for _, group := range groups {
		if _, ok := table[group.ID]; ok {
			return nil, fmt.Errorf("%w: traffic light %s duplicated", ErrConfiguration, group.ID)
		}
		if len(group.Phases) == 0 {
			return nil, fmt.Errorf("%w: traffic light %s has no phase", ErrConfiguration, group.ID)
		}

		links := make(map[int][]byte)
		width := len(group.Phases[0].State)
		for _, phase := range group.Phases {
			if phase.Duration <= 0 {
				return nil, fmt.Errorf("%w: traffic light %s has non-positive phase duration %d", ErrConfiguration, group.ID, phase.Duration)
			}
			if len(phase.State) != width {
				return nil, fmt.Errorf("%w: traffic light %s mixes state lengths %d and %d", ErrConfiguration, group.ID, width, len(phase.State))
			}
			for link := 0; link < len(phase.State); link++ {
				for s := 0; s < phase.Duration; s++ {
					links[link] = append(links[link], phase.State[link])
				}
			}
		}
		table[group.ID] = links
	}

	return table, nil
}

// Signal 返回某信号灯某连接的逐秒信号序列
func (t PhaseTable) Signal(trafficLight string, link int) ([]byte, error) {
	links, ok := t[trafficLight]
	if !ok {
		return nil, fmt.Errorf("%w: no phase data for traffic light %s", ErrConfiguration, trafficLight)
	}
	seq, ok := links[link]
	if !ok || len(seq) == 0 {
		return nil, fmt.Errorf("%w: traffic light %s has no link index %d", ErrConfiguration, trafficLight, link)
	}
	return seq, nil
}

// CycleLength 返回信号灯的周期长度
func (t PhaseTable) CycleLength(trafficLight string) int {
	for _, seq := range t[trafficLight] {
		return len(seq)
	}
	return 0
}

// IsRed 判断信号字符是否为红灯
func IsRed(c byte) bool {
	return c == 'r'
}

// idleTime 计算在 elapsed 时刻到达时需要等待的秒数
// 从到达秒开始逐秒向后查找第一个非红灯秒，最多查找一个周期
func idleTime(seq []byte, elapsed float64) (int, bool) {
	cycle := len(seq)
	now := int(elapsed)
	for wait := 0; wait < cycle; wait++ {
		if !IsRed(seq[(now+wait)%cycle]) {
			return wait, true
		}
	}
	return 0, false
}
