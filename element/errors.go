package element

import "errors"

// 错误分类，调用方使用 errors.Is 判断
var (
	// ErrConfiguration 配置错误：评估方式非法、拥堵路段不存在、信号灯ID重复、起终点不存在等
	ErrConfiguration = errors.New("configuration error")

	// ErrUnknownEdge 路段ID不存在
	ErrUnknownEdge = errors.New("unknown edge")

	// ErrUnknownNode 节点ID不存在
	ErrUnknownNode = errors.New("unknown node")

	// ErrInvalidDirection 方向参数不在 incoming / outgoing / 未指定 之中
	ErrInvalidDirection = errors.New("invalid direction")
)
