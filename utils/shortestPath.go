package utils

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/gmmrr/fleet-route-optim/element"
)

// ErrUnreachable 搜索耗尽仍未到达终点
var ErrUnreachable = errors.New("target unreachable")

// WeightFunc 单条路段的权重
type WeightFunc func(*element.Edge) float64

// Route 表示一条路径
type Route struct {
	Nodes []*element.Node
	Edges []*element.Edge
	Cost  float64 // 搜索使用的权重之和
}

// NodeIDs 返回路径的节点ID序列
func (r Route) NodeIDs() []string {
	ids := make([]string, len(r.Nodes))
	for i, n := range r.Nodes {
		ids[i] = n.Name()
	}
	return ids
}

// EdgeIDs 返回路径的路段ID序列
func (r Route) EdgeIDs() []string {
	ids := make([]string, len(r.Edges))
	for i, e := range r.Edges {
		ids[i] = e.Name()
	}
	return ids
}

// Empty 判断路径是否为空
func (r Route) Empty() bool {
	return len(r.Nodes) == 0
}

// dijkstraItem 优先队列元素
type dijkstraItem struct {
	node int64
	cost float64
}

// dijkstraHeap 实现 heap.Interface，按代价升序
type dijkstraHeap []dijkstraItem

func (h dijkstraHeap) Len() int           { return len(h) }
func (h dijkstraHeap) Less(i, j int) bool { return h[i].cost < h[j].cost }
func (h dijkstraHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *dijkstraHeap) Push(x any)        { *h = append(*h, x.(dijkstraItem)) }
func (h *dijkstraHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// ShortestPath 使用Dijkstra算法计算 start 到 end 的最小代价路径
//
// 参数:
//   - net: 路网
//   - weight: 路段权重（距离或时间）
//   - start, end: 起点与终点
//
// 返回:
//   - Route: 节点序列、路段序列和总代价
//   - error: 终点不可达时返回 ErrUnreachable，此时 Route 为空
//
// 过期的堆元素不删除，弹出时与当前代价比较后跳过
func ShortestPath(net *element.Network, weight WeightFunc, start, end *element.Node) (Route, error) {
	if start == nil || end == nil {
		return Route{}, fmt.Errorf("shortest path: %w", element.ErrUnknownNode)
	}

	n := net.NumNodes()
	cost := make([]float64, n)
	prev := make([]int64, n)
	for i := range cost {
		cost[i] = math.Inf(1)
		prev[i] = -1
	}
	cost[start.ID()] = 0

	pq := &dijkstraHeap{{node: start.ID(), cost: 0}}
	reached := false

	for pq.Len() > 0 {
		item := heap.Pop(pq).(dijkstraItem)
		if item.node == end.ID() {
			reached = true
			break
		}
		if item.cost > cost[item.node] {
			continue
		}

		current := net.NodeAt(item.node)
		for _, edge := range net.Outgoing(current) {
			next := edge.ToNode().ID()
			tentative := item.cost + weight(edge)
			if tentative < cost[next] {
				cost[next] = tentative
				prev[next] = item.node
				heap.Push(pq, dijkstraItem{node: next, cost: tentative})
			}
		}
	}

	if !reached {
		return Route{}, fmt.Errorf("%w: from %s to %s", ErrUnreachable, start.Name(), end.Name())
	}

	// 由终点沿前驱回溯，再反转
	var nodes []*element.Node
	for idx := end.ID(); idx != -1; idx = prev[idx] {
		nodes = append(nodes, net.NodeAt(idx))
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}

	edges := make([]*element.Edge, 0, len(nodes))
	for i := 0; i < len(nodes)-1; i++ {
		edge := net.EdgeBetween(nodes[i], nodes[i+1])
		if edge == nil {
			return Route{}, fmt.Errorf("no edge between %s and %s: %w", nodes[i].Name(), nodes[i+1].Name(), element.ErrUnknownEdge)
		}
		edges = append(edges, edge)
	}

	return Route{Nodes: nodes, Edges: edges, Cost: cost[end.ID()]}, nil
}
