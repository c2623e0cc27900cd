package progress

import (
	"fmt"
	"sync"
	"testing"
)

func TestRecorderTail(t *testing.T) {
	r := NewRecorder(nil)
	for i := 0; i < 15; i++ {
		r.Infof(PhaseDeploy, "step %d", i)
	}

	tail := r.Tail(10)
	if len(tail) != 10 {
		t.Fatalf("Tail(10) 应返回 10 条, 实际 %d 条", len(tail))
	}
	if tail[0] != "[deployment] step 5" {
		t.Errorf("Tail 起点错误: %s", tail[0])
	}
	if tail[9] != "[deployment] step 14" {
		t.Errorf("Tail 终点错误: %s", tail[9])
	}
}

func TestRecorderTailShortHistory(t *testing.T) {
	r := NewRecorder(nil)
	r.Infof(PhaseRenewal, "only one")

	tail := r.Tail(10)
	if len(tail) != 1 {
		t.Fatalf("历史不足时 Tail 应返回全部, 实际 %d 条", len(tail))
	}
	if tail[0] != "[certificate_renewal] only one" {
		t.Errorf("渲染格式错误: %s", tail[0])
	}
}

func TestRecorderSucceeded(t *testing.T) {
	r := NewRecorder(nil)

	r.Infof(PhaseRenewal, "start")
	r.Successf(PhaseRenewal, "done")
	r.Infof(PhaseDeploy, "start")
	r.Errorf(PhaseDeploy, "import failed")

	if !r.Succeeded(PhaseRenewal) {
		t.Errorf("续期阶段应判定为成功")
	}
	if r.Succeeded(PhaseDeploy) {
		t.Errorf("部署阶段最后一条为 error，不应判定为成功")
	}
	if r.Succeeded("unknown") {
		t.Errorf("未出现过的阶段不应判定为成功")
	}
}

func TestRecorderHistoryLimit(t *testing.T) {
	r := NewRecorder(nil)
	for i := 0; i < defaultHistoryLimit+100; i++ {
		r.Infof(PhaseDeploy, "msg %d", i)
	}

	history := r.History()
	if len(history) != defaultHistoryLimit {
		t.Errorf("历史应截断到 %d 条, 实际 %d 条", defaultHistoryLimit, len(history))
	}
	// 保留的是最新的事件
	last := history[len(history)-1]
	if last.Message != fmt.Sprintf("msg %d", defaultHistoryLimit+99) {
		t.Errorf("截断后应保留最新事件, 实际 %s", last.Message)
	}
}

func TestRecorderConcurrentPublish(t *testing.T) {
	r := NewRecorder(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Infof(PhaseDeploy, "worker %d msg %d", n, j)
			}
		}(i)
	}
	wg.Wait()

	if len(r.History()) != 200 {
		t.Errorf("并发写入后历史应为 200 条, 实际 %d 条", len(r.History()))
	}
}
