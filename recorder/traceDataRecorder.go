package recorder

import (
	"fmt"
	"strconv"

	"github.com/gmmrr/fleet-route-optim/element"
	"github.com/samber/lo"
)

// WriteRouteCSV 写入路径上每条路段及其拥堵、信号灯情况，供绘图使用
func WriteRouteCSV(filename string, env *element.Environment, edges []*element.Edge, trace element.Trace) error {
	header := []string{"Step", "Edge", "From", "To", "Length", "RideTime", "Congestion", "Signal"}

	signals := lo.SliceToMap(trace.SignalNodes, func(id string) (string, struct{}) { return id, struct{}{} })
	data := make([][]string, 0, len(edges))
	for i, edge := range edges {
		congestion, _ := env.Congestion().Duration(edge.Name())
		_, signal := signals[edge.ToNode().Name()]
		data = append(data, []string{
			strconv.Itoa(i),
			edge.Name(),
			edge.FromNode().Name(),
			edge.ToNode().Name(),
			fmt.Sprintf("%.2f", edge.Length()),
			fmt.Sprintf("%.2f", edge.RideTime()),
			strconv.Itoa(congestion),
			strconv.FormatBool(signal),
		})
	}
	return writeCSV(filename, header, data)
}

// WritePerformanceCSV 写入每个回合的代价
func WritePerformanceCSV(filename string, unit string, series []float64) error {
	header := []string{"Episode", "Cost (" + unit + ")"}
	data := make([][]string, len(series))
	for i, v := range series {
		data[i] = []string{strconv.Itoa(i), fmt.Sprintf("%.4f", v)}
	}
	return writeCSV(filename, header, data)
}

// WriteNetworkCSV 写入路段端点坐标，供绘制路网使用
func WriteNetworkCSV(filename string, net *element.Network) error {
	header := []string{"Edge", "From", "To", "FromX", "FromY", "ToX", "ToY", "Label"}
	coords := net.NodeCoords()
	endpoints := net.EdgeEndpoints()
	labels := net.Labels()

	data := make([][]string, 0, net.NumEdges())
	for _, edge := range net.Edges() {
		ends := endpoints[edge.Name()]
		from, to := coords[ends[0]], coords[ends[1]]
		data = append(data, []string{
			edge.Name(), ends[0], ends[1],
			fmt.Sprintf("%.2f", from.X()), fmt.Sprintf("%.2f", from.Y()),
			fmt.Sprintf("%.2f", to.X()), fmt.Sprintf("%.2f", to.Y()),
			strconv.Itoa(labels[edge.Name()]),
		})
	}
	return writeCSV(filename, header, data)
}
