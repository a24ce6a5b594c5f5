package simulator

import (
	"fmt"

	"github.com/gmmrr/fleet-route-optim/log"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// FleetStats 车队模拟的汇总指标
type FleetStats struct {
	Demands     int
	TotalTime   int       // 最长时间线长度（秒）
	TotalWait   float64   // 所有需求的等待时间之和（秒）
	AverageWait float64   // 平均每个需求的等待时间（秒）
	Utilization []float64 // 每辆车非空闲时间占比
}

// Stats 计算当前的汇总指标
func (f *Fleet) Stats() FleetStats {
	waits := lo.Map(f.records, func(r DispatchRecord, _ int) float64 { return float64(r.Waiting()) })

	stats := FleetStats{
		Demands:   len(f.records),
		TotalTime: f.TotalTime(),
		TotalWait: lo.Sum(waits),
	}
	if len(waits) > 0 {
		stats.AverageWait = stat.Mean(waits, nil)
	}

	// 按总时长计算利用率，不修改车辆时间线
	stats.Utilization = make([]float64, len(f.vehicles))
	if stats.TotalTime > 0 {
		for i, v := range f.vehicles {
			stats.Utilization[i] = v.Utilization() * float64(v.BusyUntil()) / float64(stats.TotalTime)
		}
	}
	return stats
}

// LogStatus 输出汇总指标
func (s FleetStats) LogStatus() {
	log.WriteLog(fmt.Sprintf("Demands: %d, Total Time: %s (%d s), Total Waiting: %.0f s, Average Waiting: %.2f s",
		s.Demands, log.ConvertSecondsToTime(s.TotalTime), s.TotalTime, s.TotalWait, s.AverageWait))
	if len(s.Utilization) > 0 {
		log.WriteLog(fmt.Sprintf("Average Utilization: %.2f%%", stat.Mean(s.Utilization, nil)*100))
	}
}
