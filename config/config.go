package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config 保存所有配置项的顶级结构
type Config struct {
	Network    NetworkConfig    `yaml:"network"`
	Evaluation string           `yaml:"evaluation" validate:"oneof=distance time"`
	Congestion CongestionConfig `yaml:"congestion"`
	Route      RouteConfig      `yaml:"route"`
	Agent      AgentConfig      `yaml:"agent"`
	Fleet      FleetConfig      `yaml:"fleet"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Output     OutputConfig     `yaml:"output"`
}

// NetworkConfig 路网来源，未指定文件时使用合成网格路网
type NetworkConfig struct {
	File    string     `yaml:"file"`
	TLSFile string     `yaml:"tlsFile"`
	Grid    GridConfig `yaml:"grid"`
}

// GridConfig 合成网格路网参数
type GridConfig struct {
	Rows          int     `yaml:"rows" validate:"gte=2"`
	Cols          int     `yaml:"cols" validate:"gte=2"`
	Spacing       float64 `yaml:"spacing" validate:"gt=0"`
	Speed         float64 `yaml:"speed" validate:"gt=0"`
	LightInterval int     `yaml:"lightInterval" validate:"gte=0"`
	Cycle         int     `yaml:"cycle" validate:"gte=0"`
}

// Congestion 指定的拥堵路段
type Congestion struct {
	Edge     string `yaml:"edge" validate:"required"`
	Duration int    `yaml:"duration" validate:"gte=0"`
}

// CongestionConfig 拥堵配置：指定 edges 时直接使用，否则按 level 随机生成
type CongestionConfig struct {
	Level string       `yaml:"level" validate:"omitempty,oneof=low medium high"`
	Edges []Congestion `yaml:"edges" validate:"dive"`
	Seed  uint64       `yaml:"seed"`
}

// RouteConfig 单次路径规划的起终点
type RouteConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Rewards 强化学习奖励，顺序同 invalid, dead-end, loop, completion, bonus, continue
type Rewards struct {
	Invalid    float64 `yaml:"invalid"`
	DeadEnd    float64 `yaml:"deadEnd"`
	Loop       float64 `yaml:"loop"`
	Completion float64 `yaml:"completion"`
	Bonus      float64 `yaml:"bonus"`
	Continue   float64 `yaml:"continue"`
}

// LearnerConfig 单个算法的超参数
type LearnerConfig struct {
	LearningRate    float64 `yaml:"learningRate" validate:"gt=0,lte=1"`
	DiscountFactor  float64 `yaml:"discountFactor" validate:"gte=0,lte=1"`
	ExplorationRate float64 `yaml:"explorationRate" validate:"gte=0,lte=1"`
	Rewards         Rewards `yaml:"rewards"`
}

// AgentConfig 强化学习训练配置
type AgentConfig struct {
	Algorithm string        `yaml:"algorithm" validate:"oneof=qlearning sarsa"`
	Episodes  int           `yaml:"episodes" validate:"gt=0"`
	Threshold int           `yaml:"threshold" validate:"gt=0"`
	MaxSteps  int           `yaml:"maxSteps" validate:"gt=0"`
	Seed      uint64        `yaml:"seed"`
	QLearning LearnerConfig `yaml:"qLearning"`
	SARSA     LearnerConfig `yaml:"sarsa"`
}

// DemandConfig 需求生成配置
type DemandConfig struct {
	MinInterval   int     `yaml:"minInterval" validate:"gte=0"`
	MaxInterval   int     `yaml:"maxInterval" validate:"gtefield=MinInterval"`
	MinTravelTime float64 `yaml:"minTravelTime" validate:"gte=0"`
	MaxAttempts   int     `yaml:"maxAttempts" validate:"gt=0"`
}

// FleetConfig 车队调度配置
type FleetConfig struct {
	NumVehicle int          `yaml:"numVehicle" validate:"gt=0"`
	NumDemand  int          `yaml:"numDemand" validate:"gt=0"`
	Evaluation string       `yaml:"evaluation" validate:"oneof=distance time"`
	Seed       uint64       `yaml:"seed"`
	Demand     DemandConfig `yaml:"demand"`
}

// SweepConfig 多随机种子并行训练
type SweepConfig struct {
	Runs    int `yaml:"runs" validate:"gte=0"`
	Workers int `yaml:"workers" validate:"gte=0"`
}

// OutputConfig 日志与数据输出目录
type OutputConfig struct {
	LogDir  string `yaml:"logDir"`
	DataDir string `yaml:"dataDir"`
}

// DefaultConfig 返回默认配置，超参数与奖励取自原始实验
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Grid: GridConfig{
				Rows:          6,
				Cols:          6,
				Spacing:       200,
				Speed:         13.89,
				LightInterval: 2,
				Cycle:         90,
			},
		},
		Evaluation: "time",
		Congestion: CongestionConfig{
			Level: "low",
			Seed:  1,
		},
		Agent: AgentConfig{
			Algorithm: "sarsa",
			Episodes:  5000,
			Threshold: 20,
			MaxSteps:  10000,
			Seed:      1,
			QLearning: LearnerConfig{
				LearningRate:   0.9,
				DiscountFactor: 0.1,
				Rewards:        Rewards{Invalid: -50, DeadEnd: -50, Loop: -30, Completion: 50, Bonus: 50, Continue: 0},
			},
			SARSA: LearnerConfig{
				LearningRate:    0.9,
				DiscountFactor:  0.1,
				ExplorationRate: 0.05,
				Rewards:         Rewards{Invalid: -100, DeadEnd: -100, Loop: -100, Completion: 10, Bonus: 100, Continue: -1},
			},
		},
		Fleet: FleetConfig{
			NumVehicle: 20,
			NumDemand:  200,
			Evaluation: "distance",
			Seed:       1,
			Demand: DemandConfig{
				MinInterval:   10,
				MaxInterval:   30,
				MinTravelTime: 100,
				MaxAttempts:   1000,
			},
		},
		Sweep: SweepConfig{
			Runs: 4,
		},
		Output: OutputConfig{
			LogDir:  "./log",
			DataDir: "./data",
		},
	}
}

// LoadConfig 从YAML文件加载配置，未出现的字段保留默认值
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	}

	// 设置输出目录的默认值
	if cfg.Output.LogDir == "" {
		cfg.Output.LogDir = "./log"
	}
	if cfg.Output.DataDir == "" {
		cfg.Output.DataDir = "./data"
	}

	// 设置车队配置的默认值
	if cfg.Fleet.Demand.MaxAttempts <= 0 {
		cfg.Fleet.Demand.MaxAttempts = 1000
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置项
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if (cfg.Route.Start == "") != (cfg.Route.End == "") {
		return fmt.Errorf("invalid config: route start and end must be given together")
	}
	// 未指定拥堵路段时才按等级随机生成
	if len(cfg.Congestion.Edges) == 0 && cfg.Congestion.Level == "" {
		return fmt.Errorf("invalid config: congestion level is required when no congested edges are given")
	}
	// 周期只对合成网格中的红绿灯有效
	if cfg.Network.File == "" && cfg.Network.Grid.LightInterval > 0 && cfg.Network.Grid.Cycle < 2 {
		return fmt.Errorf("invalid config: grid traffic light cycle must be at least 2 seconds")
	}
	return nil
}
