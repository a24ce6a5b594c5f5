package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/gmmrr/fleet-route-optim/config"
)

var (
	mu      sync.Mutex
	logFile *os.File
	logger  = stdlog.New(os.Stdout, "", stdlog.LstdFlags|stdlog.Lmicroseconds)
)

// InitLog 初始化日志，同时输出到标准输出和日志文件
func InitLog(filename string) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = file
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	return nil
}

// WriteLog 写入一条日志，可在多个协程中调用
func WriteLog(msg string) {
	logger.Println(msg)
}

// CloseLog 关闭日志文件，之后的日志只输出到标准输出
func CloseLog() {
	mu.Lock()
	defer mu.Unlock()

	logger.SetOutput(os.Stdout)
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// LogEnvironment 记录运行环境
func LogEnvironment() {
	WriteLog(fmt.Sprintf("Go Version: %s", runtime.Version()))
	WriteLog(fmt.Sprintf("OS/Arch: %s/%s", runtime.GOOS, runtime.GOARCH))
	WriteLog(fmt.Sprintf("CPU: %d, GOMAXPROCS: %d", runtime.NumCPU(), runtime.GOMAXPROCS(0)))
	WriteLog(fmt.Sprintf("Start Time: %s", time.Now().Format(time.RFC3339)))
}

// LogParameters 记录实验参数
func LogParameters(cfg *config.Config) {
	WriteLog("----------------------------------Parameters----------------------------------")
	if cfg.Network.File != "" {
		WriteLog(fmt.Sprintf("Network: %s, TrafficLights: %s", cfg.Network.File, cfg.Network.TLSFile))
	} else {
		g := cfg.Network.Grid
		WriteLog(fmt.Sprintf("Network: grid %dx%d, spacing %.1f m, speed %.2f m/s, light interval %d, cycle %d s",
			g.Rows, g.Cols, g.Spacing, g.Speed, g.LightInterval, g.Cycle))
	}
	WriteLog(fmt.Sprintf("Evaluation: %s", cfg.Evaluation))
	if len(cfg.Congestion.Edges) > 0 {
		WriteLog(fmt.Sprintf("Congestion: %d configured edges", len(cfg.Congestion.Edges)))
	} else {
		WriteLog(fmt.Sprintf("Congestion: level %s, seed %d", cfg.Congestion.Level, cfg.Congestion.Seed))
	}
	if cfg.Route.Start != "" {
		WriteLog(fmt.Sprintf("Route: %s -> %s", cfg.Route.Start, cfg.Route.End))
	}

	a := cfg.Agent
	WriteLog(fmt.Sprintf("Agent: %s, episodes %d, threshold %d, max steps %d, seed %d",
		a.Algorithm, a.Episodes, a.Threshold, a.MaxSteps, a.Seed))
	WriteLog(fmt.Sprintf("Q-Learning: alpha %.2f, gamma %.2f, rewards %+v",
		a.QLearning.LearningRate, a.QLearning.DiscountFactor, a.QLearning.Rewards))
	WriteLog(fmt.Sprintf("SARSA: alpha %.2f, gamma %.2f, epsilon %.2f, rewards %+v",
		a.SARSA.LearningRate, a.SARSA.DiscountFactor, a.SARSA.ExplorationRate, a.SARSA.Rewards))

	f := cfg.Fleet
	WriteLog(fmt.Sprintf("Fleet: %d vehicles, %d demands, evaluation %s, interval [%d, %d] s, min travel time %.0f s",
		f.NumVehicle, f.NumDemand, f.Evaluation, f.Demand.MinInterval, f.Demand.MaxInterval, f.Demand.MinTravelTime))
	WriteLog(fmt.Sprintf("Sweep: %d runs, %d workers", cfg.Sweep.Runs, cfg.Sweep.Workers))
}

// ConvertSecondsToTime 将模拟秒数转换为 时:分:秒
func ConvertSecondsToTime(seconds int) string {
	h := seconds / 3600
	m := seconds % 3600 / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
