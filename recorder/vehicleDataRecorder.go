package recorder

import (
	"strconv"

	"github.com/gmmrr/fleet-route-optim/element"
	"github.com/gmmrr/fleet-route-optim/simulator"
)

// WriteTimelineCSV 写入车辆时间线矩阵（甘特图），每行一辆车，每列一秒
// 调用前应先补齐时间线
func WriteTimelineCSV(filename string, vehicles []*element.Vehicle) error {
	length := 0
	for _, v := range vehicles {
		length = max(length, v.BusyUntil())
	}

	header := make([]string, 0, length+1)
	header = append(header, "Vehicle ID")
	for t := 0; t < length; t++ {
		header = append(header, strconv.Itoa(t))
	}

	data := make([][]string, 0, len(vehicles))
	for _, v := range vehicles {
		row := make([]string, 0, length+1)
		row = append(row, strconv.Itoa(v.Index()))
		for _, state := range v.Timeline() {
			row = append(row, strconv.FormatFloat(state, 'f', -1, 64))
		}
		data = append(data, row)
	}
	return writeCSV(filename, header, data)
}

// WriteDemandCSV 写入每个需求的派车结果
func WriteDemandCSV(filename string, records []simulator.DispatchRecord) error {
	header := []string{
		"Demand ID", "Request Time", "Origin", "Destination", "Vehicle ID", "Wait", "Commute", "Service", "Waiting",
	}

	data := make([][]string, 0, len(records))
	for _, r := range records {
		data = append(data, []string{
			strconv.Itoa(r.Demand.Index),       // 需求序号
			strconv.Itoa(r.Demand.RequestTime), // 请求时刻
			r.Demand.Start.Name(),              // 起点 ID
			r.Demand.End.Name(),                // 终点 ID
			strconv.Itoa(r.Vehicle),            // 车辆 ID
			strconv.Itoa(r.Wait),               // 等待车辆空闲
			strconv.Itoa(r.Commute),            // 接客耗时
			strconv.Itoa(r.Service),            // 送客耗时
			strconv.Itoa(r.Waiting()),          // 乘客总等待时间
		})
	}
	return writeCSV(filename, header, data)
}
