package utils

import (
	"github.com/gmmrr/fleet-route-optim/element"
	"gonum.org/v1/gonum/graph/topo"
)

// PathFinder 定义了查找路径的函数类型
type PathFinder func(origin, destination *element.Node) (Route, error)

// GetPathFinder 根据代价模型的评估方式返回相应的路径查找函数
// distance 以路段长度为权重，time 以路段通行时间（含拥堵）为权重
func GetPathFinder(env *element.Environment) PathFinder {
	net := env.Network()
	weight := WeightFunc(env.EdgeWeight())
	return func(origin, destination *element.Node) (Route, error) {
		return ShortestPath(net, weight, origin, destination)
	}
}

// IsStronglyConnected 判断路网是否强连通
func IsStronglyConnected(net *element.Network) bool {
	if net.NumNodes() == 0 {
		return false
	}
	return len(topo.TarjanSCC(net.Graph())) == 1
}
