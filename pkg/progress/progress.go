package progress

import (
	"fmt"
	"sync"
	"time"

	"certsync/pkg/core/logger"
)

// 部署流水线阶段名
const (
	PhaseRenewal = "certificate_renewal"
	PhaseDeploy  = "deployment"
)

// 事件级别
const (
	LevelInfo    = "info"
	LevelWarn    = "warn"
	LevelError   = "error"
	LevelSuccess = "success"
)

// Event 部署过程中的单条进度事件
type Event struct {
	Phase     string    `json:"phase"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Render 渲染为单行文本，用于落库和日志
func (e Event) Render() string {
	return fmt.Sprintf("[%s] %s", e.Phase, e.Message)
}

// Stream 进度事件的接收端
type Stream interface {
	Publish(event Event)
}

// Recorder 保存进度事件历史并镜像到日志
// 多个发布者并发安全
type Recorder struct {
	mu     sync.Mutex
	events []Event
	limit  int
	log    *logger.Log
}

var _ Stream = (*Recorder)(nil)

const defaultHistoryLimit = 500

// NewRecorder 创建进度记录器
func NewRecorder(log *logger.Log) *Recorder {
	return &Recorder{
		limit: defaultHistoryLimit,
		log:   log,
	}
}

func (r *Recorder) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	r.mu.Lock()
	r.events = append(r.events, event)
	if len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
	r.mu.Unlock()

	if r.log == nil {
		return
	}
	entry := r.log.WithField("Phase", event.Phase)
	switch event.Level {
	case LevelError:
		entry.Error(event.Message)
	case LevelWarn:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}
}

// Infof 发布 info 级别事件
func (r *Recorder) Infof(phase, format string, args ...interface{}) {
	r.Publish(Event{Phase: phase, Level: LevelInfo, Message: fmt.Sprintf(format, args...)})
}

// Warnf 发布 warn 级别事件
func (r *Recorder) Warnf(phase, format string, args ...interface{}) {
	r.Publish(Event{Phase: phase, Level: LevelWarn, Message: fmt.Sprintf(format, args...)})
}

// Errorf 发布 error 级别事件
func (r *Recorder) Errorf(phase, format string, args ...interface{}) {
	r.Publish(Event{Phase: phase, Level: LevelError, Message: fmt.Sprintf(format, args...)})
}

// Successf 发布 success 级别事件，标记阶段成功结束
func (r *Recorder) Successf(phase, format string, args ...interface{}) {
	r.Publish(Event{Phase: phase, Level: LevelSuccess, Message: fmt.Sprintf(format, args...)})
}

// History 返回事件历史快照
func (r *Recorder) History() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Tail 返回最后 n 条事件的渲染文本
func (r *Recorder) Tail(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := len(r.events) - n
	if start < 0 {
		start = 0
	}

	lines := make([]string, 0, len(r.events)-start)
	for _, e := range r.events[start:] {
		lines = append(lines, e.Render())
	}
	return lines
}

// Succeeded 判断指定阶段是否以 success 事件收尾
func (r *Recorder) Succeeded(phase string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Phase != phase {
			continue
		}
		return r.events[i].Level == LevelSuccess
	}
	return false
}
