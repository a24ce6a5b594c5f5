package simulator

import (
	"fmt"
	"math"
	"strings"

	"github.com/gmmrr/fleet-route-optim/element"
)

// GridNodeID 返回网格路网中第 row 行第 col 列节点的ID
func GridNodeID(row, col int) string {
	return fmt.Sprintf("n%d_%d", row, col)
}

// CreateGridNetwork 创建一个双向网格路网
//
// 参数:
//   - rows, cols: 行列数
//   - spacing: 相邻节点间距（米）
//   - speed: 路段限速（米/秒）
//   - lightInterval: 每隔多少个节点放置一个红绿灯，0 表示不设红绿灯
//   - cycle: 红绿灯周期（秒）
//
// 返回:
//   - *element.Network: 已完成方向标注的路网
//   - element.PhaseTable: 红绿灯相位表
//
// 红绿灯交替使用 0.3 / 0.7 的东西向绿灯比例，南北向在其余时间通行
func CreateGridNetwork(rows, cols int, spacing, speed float64, lightInterval, cycle int) (*element.Network, element.PhaseTable, error) {
	// 参数验证
	if rows < 1 || cols < 1 || rows*cols < 2 {
		return nil, nil, fmt.Errorf("%w: grid needs at least two nodes, got %dx%d", element.ErrConfiguration, rows, cols)
	}
	if lightInterval > 0 && cycle < 2 {
		return nil, nil, fmt.Errorf("%w: traffic light cycle must be at least 2 seconds", element.ErrConfiguration)
	}

	net := element.NewNetwork()

	// 创建所有节点
	trafficLightRatioCount := 0
	greenRatio := make(map[string]float64)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			id := GridNodeID(r, c)
			tl := ""
			if lightInterval > 0 && (r*cols+c)%lightInterval == 0 {
				tl = "tl_" + id
				// 交替设置绿灯比例，一个0.3，一个0.7
				if trafficLightRatioCount%2 == 0 {
					greenRatio[tl] = 0.3
				} else {
					greenRatio[tl] = 0.7
				}
				trafficLightRatioCount++
			}
			if _, err := net.AddNode(id, float64(c)*spacing, float64(r)*spacing, tl); err != nil {
				return nil, nil, err
			}
		}
	}

	// 创建双向路段
	addPair := func(a, b string) error {
		if _, err := net.AddEdge(a+"-"+b, a, b, spacing, speed); err != nil {
			return err
		}
		_, err := net.AddEdge(b+"-"+a, b, a, spacing, speed)
		return err
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				if err := addPair(GridNodeID(r, c), GridNodeID(r, c+1)); err != nil {
					return nil, nil, err
				}
			}
			if r+1 < rows {
				if err := addPair(GridNodeID(r, c), GridNodeID(r+1, c)); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	// 每条进入路段占用一个连接序号，东西向与南北向交替放行
	groups := make([]element.PhaseGroup, 0, len(greenRatio))
	for _, node := range net.Nodes() {
		if !node.IsSignalized() {
			continue
		}
		incoming := net.Incoming(node)
		outgoing := net.Outgoing(node)

		horizontal := make([]bool, len(incoming))
		for link, in := range incoming {
			horizontal[link] = in.FromNode().Coord().Y() == node.Coord().Y()
			for _, out := range outgoing {
				if err := net.AddConnection(node.TrafficLight(), in.Name(), out.Name(), link); err != nil {
					return nil, nil, err
				}
			}
		}

		green := int(math.Round(float64(cycle) * greenRatio[node.TrafficLight()]))
		green = max(1, min(cycle-1, green))
		groups = append(groups, element.PhaseGroup{
			ID: node.TrafficLight(),
			Phases: []element.Phase{
				{Duration: green, State: phaseState(horizontal, true)},
				{Duration: cycle - green, State: phaseState(horizontal, false)},
			},
		})
	}

	tls, err := element.ExpandPhases(groups)
	if err != nil {
		return nil, nil, err
	}

	net.Finalize()
	return net, tls, nil
}

// phaseState 东西向放行时 horizontal 为 true 的连接为绿灯，反之亦然
func phaseState(horizontal []bool, eastWest bool) string {
	var sb strings.Builder
	for _, h := range horizontal {
		if h == eastWest {
			sb.WriteByte('G')
		} else {
			sb.WriteByte('r')
		}
	}
	return sb.String()
}
