package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestOnceTaskExecute(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	if err := s.Start(); err != nil {
		t.Fatalf("启动调度器失败: %v", err)
	}
	defer s.Stop()

	var count atomic.Int32
	task := NewOnceTask("一次性任务", time.Now(), time.Second, func(ctx context.Context) error {
		count.Add(1)
		return nil
	})

	if err := s.AddTask(task); err != nil {
		t.Fatalf("添加任务失败: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for count.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	if count.Load() != 1 {
		t.Errorf("一次性任务应执行一次, 实际 %d 次", count.Load())
	}
	if !task.IsCompleted() {
		t.Errorf("一次性任务执行后应为已完成状态")
	}
}

func TestIntervalTaskReschedule(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	if err := s.Start(); err != nil {
		t.Fatalf("启动调度器失败: %v", err)
	}
	defer s.Stop()

	var count atomic.Int32
	task := NewIntervalTask("间隔任务", time.Now(), 50*time.Millisecond, time.Second, func(ctx context.Context) error {
		count.Add(1)
		return nil
	})

	if err := s.AddTask(task); err != nil {
		t.Fatalf("添加任务失败: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for count.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	if count.Load() < 2 {
		t.Errorf("间隔任务应至少执行两次, 实际 %d 次", count.Load())
	}
}

func TestNewCronTaskInvalidExpr(t *testing.T) {
	_, err := NewCronTask("非法表达式", "not a cron", time.Second, func(ctx context.Context) error {
		return nil
	})
	if err == nil {
		t.Errorf("非法 cron 表达式应返回错误")
	}
}

func TestAddTaskBeforeStart(t *testing.T) {
	s := NewScheduler(nil)
	task := NewOnceTask("未启动", time.Now(), time.Second, nil)
	if err := s.AddTask(task); err == nil {
		t.Errorf("调度器未启动时添加任务应返回错误")
	}
}
