package element

import (
	"math"
	"slices"
)

// NumActions 每个节点最多四个方向动作：0 右 -> 1 上 -> 2 左 -> 3 下
const NumActions = 4

// labelEdges 按出边方位角为每条路段打方向标签
// 排序规则：先 [0, 180] 再 (-180, 0)，各自升序，即 右 -> 上 -> 左 -> 下
func labelEdges(net *Network) []int {
	labels := make([]int, len(net.edges))
	for i := range labels {
		labels[i] = -1
	}

	type edgeAngle struct {
		edge  *Edge
		angle float64
	}

	for _, node := range net.nodes {
		outgoing := net.out[node.index]
		if len(outgoing) == 0 {
			continue
		}

		angles := make([]edgeAngle, 0, len(outgoing))
		for _, edge := range outgoing {
			dx := edge.to.coord.X() - node.coord.X()
			dy := edge.to.coord.Y() - node.coord.Y()
			angles = append(angles, edgeAngle{edge, math.Atan2(dy, dx) * 180 / math.Pi})
		}

		// 稳定排序保证相同方位角时仍按加载顺序
		slices.SortStableFunc(angles, func(a, b edgeAngle) int {
			ha, hb := halfPlane(a.angle), halfPlane(b.angle)
			if ha != hb {
				return ha - hb
			}
			switch {
			case a.angle < b.angle:
				return -1
			case a.angle > b.angle:
				return 1
			}
			return 0
		})

		for rank, ea := range angles {
			labels[ea.edge.index] = rank
		}
	}
	return labels
}

func halfPlane(angle float64) int {
	if angle >= 0 {
		return 0
	}
	return 1
}

// Label 返回路段的方向标签
func (net *Network) Label(edge *Edge) int {
	return net.labels[edge.index]
}

// Labels 返回 路段ID -> 方向标签
func (net *Network) Labels() map[string]int {
	labels := make(map[string]int, len(net.edges))
	for _, edge := range net.edges {
		labels[edge.id] = net.labels[edge.index]
	}
	return labels
}

// Actions 返回节点可执行的动作（升序）
func (net *Network) Actions(node *Node) []int {
	actions := make([]int, 0, NumActions)
	for _, edge := range net.out[node.index] {
		if label := net.labels[edge.index]; label >= 0 && label < NumActions {
			actions = append(actions, label)
		}
	}
	slices.Sort(actions)
	return actions
}

// EdgeForAction 返回节点上带有该动作标签的出边，不存在时返回nil
func (net *Network) EdgeForAction(node *Node, action int) *Edge {
	for _, edge := range net.out[node.index] {
		if net.labels[edge.index] == action {
			return edge
		}
	}
	return nil
}
