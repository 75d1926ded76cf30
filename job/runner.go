package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quadra-commerce/hybridrec/core"
)

// RunState 是后台构建任务的状态。
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateSucceeded RunState = "succeeded"
	RunStateFailed    RunState = "failed"
)

// RunStatus 是一次后台构建的状态快照。
type RunStatus struct {
	ID         string
	Name       string
	State      RunState
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner 管理脱离请求生命周期的后台构建任务。
//
// 触发方立即拿到 run ID，之后通过 Status 轮询进度。
// 构建失败只体现在状态里，已发布的旧结果不受影响。
type Runner struct {
	Log *zap.Logger

	mu   sync.RWMutex
	runs map[string]*RunStatus
	wg   sync.WaitGroup
}

// NewRunner 创建一个后台任务管理器。
func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Log: log, runs: make(map[string]*RunStatus)}
}

// Start 启动一个后台构建，返回 run ID。
// fn 在独立 goroutine 中执行，ctx 与触发方解耦（脱离请求生命周期）。
func (r *Runner) Start(name string, fn func(ctx context.Context) error) string {
	id := uuid.NewString()
	status := &RunStatus{
		ID:        id,
		Name:      name,
		State:     RunStateRunning,
		StartedAt: time.Now(),
	}

	r.mu.Lock()
	r.runs[id] = status
	r.mu.Unlock()

	r.Log.Info("build started", zap.String("run_id", id), zap.String("job", name))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		err := fn(context.Background())

		r.mu.Lock()
		defer r.mu.Unlock()
		status.FinishedAt = time.Now()
		if err != nil {
			status.State = RunStateFailed
			status.Error = err.Error()
			r.Log.Error("build failed",
				zap.String("run_id", id),
				zap.String("job", name),
				zap.Error(err))
			return
		}
		status.State = RunStateSucceeded
		r.Log.Info("build succeeded",
			zap.String("run_id", id),
			zap.String("job", name),
			zap.Duration("elapsed", status.FinishedAt.Sub(status.StartedAt)))
	}()

	return id
}

// Status 返回指定构建的状态快照；run ID 未知时返回 NOT_FOUND。
func (r *Runner) Status(runID string) (RunStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status, ok := r.runs[runID]
	if !ok {
		return RunStatus{}, core.NewDomainError(core.ModuleJob, core.ErrorCodeNotFound,
			fmt.Sprintf("job: unknown run id %s", runID))
	}
	return *status, nil
}

// List 返回全部构建的状态快照。
func (r *Runner) List() []RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RunStatus, 0, len(r.runs))
	for _, s := range r.runs {
		out = append(out, *s)
	}
	return out
}

// Wait 阻塞到所有已启动的构建结束（CLI 退出前排空用）。
func (r *Runner) Wait() {
	r.wg.Wait()
}
