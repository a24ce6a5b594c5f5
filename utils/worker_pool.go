package utils

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool 表示一个工作池，用于并行执行互不共享可变状态的任务
type WorkerPool struct {
	jobs    chan func()
	wg      sync.WaitGroup // 工作协程
	pending sync.WaitGroup // 已提交未完成的任务
	workers int
	closed  atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWorkerPool 创建一个新的工作池，workers<=0 时使用 GOMAXPROCS
func NewWorkerPool(ctx context.Context, workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ctx, cancel := context.WithCancel(ctx)
	pool := &WorkerPool{
		jobs:    make(chan func(), workers*2), // 缓冲区大小为工作者数量的2倍
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
	pool.start()
	return pool
}

// Workers 返回工作协程数量
func (p *WorkerPool) Workers() int {
	return p.workers
}

func (p *WorkerPool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					job()
					p.pending.Done()
				}
			}
		}()
	}
}

// Submit 提交一个任务到工作池
// 如果工作池已关闭或上下文已取消，返回false
func (p *WorkerPool) Submit(job func()) bool {
	if p.closed.Load() {
		return false
	}

	p.pending.Add(1)
	select {
	case p.jobs <- job:
		return true
	case <-p.ctx.Done():
		p.pending.Done()
		return false
	}
}

// Wait 等待所有已提交的任务完成，上下文取消时立即返回
func (p *WorkerPool) Wait() {
	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-p.ctx.Done():
	}
}

// Stop 停止工作池，未执行的任务被丢弃
func (p *WorkerPool) Stop() {
	if p.closed.Swap(true) {
		return
	}

	p.cancel()
	close(p.jobs)
	p.wg.Wait()
}
