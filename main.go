package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gmmrr/fleet-route-optim/config"
	"github.com/gmmrr/fleet-route-optim/element"
	"github.com/gmmrr/fleet-route-optim/log"
	"github.com/gmmrr/fleet-route-optim/recorder"
	"github.com/gmmrr/fleet-route-optim/simulator"
	"github.com/google/uuid"
)

func main() {
	configFile := flag.String("config", "config/config.yaml", "配置文件路径")
	mode := flag.String("mode", "route", "运行模式: route | qlearning | sarsa | fleet | sweep")
	flag.Parse()

	// 加载配置文件
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 生成唯一的运行标识
	initTime := time.Now().Format("2006010215040506")
	runID := uuid.NewString()

	logFile := filepath.Join(cfg.Output.LogDir, fmt.Sprintf("%s_%s.log", initTime, *mode))
	if err := log.InitLog(logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init log: %v\n", err)
		os.Exit(1)
	}
	log.LogEnvironment()
	log.WriteLog(fmt.Sprintf("Run ID: %s, Mode: %s", runID, *mode))
	log.LogParameters(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, cfg, *mode, func(name string) string {
		return filepath.Join(cfg.Output.DataDir, fmt.Sprintf("%s_%s_%s.csv", initTime, *mode, name))
	})
	stop()

	if err != nil {
		log.WriteLog(fmt.Sprintf("Error: %v", err))
		log.CloseLog()
		os.Exit(1)
	}
	log.WriteLog("---------------------------------- Completed ----------------------------------")
	log.CloseLog()
}

// run 按模式执行实验，dataFile 返回输出CSV的路径
func run(ctx context.Context, cfg *config.Config, mode string, dataFile func(string) string) error {
	env, err := simulator.BuildEnvironment(cfg)
	if err != nil {
		return err
	}
	if err := recorder.WriteNetworkCSV(dataFile("Network"), env.Network()); err != nil {
		return err
	}
	start, end := simulator.RouteEndpoints(env, cfg.Route)

	switch mode {
	case "route":
		report, err := simulator.RunRoute(env, start, end)
		if err != nil {
			return err
		}
		return recorder.WriteRouteCSV(dataFile("Route"), env, report.Route.Edges, report.Trace)

	case "qlearning", "sarsa":
		report, err := simulator.RunTraining(env, cfg.Agent, mode, start, end, cfg.Agent.Seed)
		if err != nil {
			return err
		}
		if err := recorder.WriteRouteCSV(dataFile("Route"), env, report.Result.EdgePath, report.Trace); err != nil {
			return err
		}
		return recorder.WritePerformanceCSV(dataFile("Performance"), performanceUnit(env), report.Performance)

	case "fleet":
		report, err := simulator.RunFleet(env, cfg.Fleet)
		if err != nil {
			return err
		}
		if err := recorder.WriteDemandCSV(dataFile("Demand"), report.Records); err != nil {
			return err
		}
		return recorder.WriteTimelineCSV(dataFile("Timeline"), report.Vehicles)

	case "sweep":
		results, err := simulator.RunSweep(ctx, env, cfg, start, end)
		if err != nil {
			return err
		}
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				continue
			}
			log.WriteLog(fmt.Sprintf("Run %d (%s) seed %d: episode %d, cost %.2f %s, %v",
				r.Run, r.RunID, r.Seed, r.Report.Result.Episode, r.Report.Cost, env.Unit(), r.Report.Result.Elapsed))
			if err := recorder.WritePerformanceCSV(dataFile(fmt.Sprintf("Performance_%d", r.Run)), performanceUnit(env), r.Report.Performance); err != nil {
				return err
			}
		}
		if len(results) > 0 && failed == len(results) {
			return fmt.Errorf("all %d sweep runs failed: %w", failed, results[0].Err)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown mode %q", element.ErrConfiguration, mode)
	}
}

// performanceUnit 回合代价序列的单位，时间以分钟计
func performanceUnit(env *element.Environment) string {
	if env.Evaluation() == element.EvalTime {
		return "min"
	}
	return env.Unit()
}
