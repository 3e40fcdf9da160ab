package reliability

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/zoobzio/perfz"
)

func TestMonitorLifecycle(t *testing.T) {
	config := getReliabilityConfig()

	switch config.Level {
	case "basic":
		t.Run("startup_shutdown", testStartupShutdown)
		t.Run("handler_churn", testHandlerChurn)
	case "stress":
		t.Run("sustained_load", func(t *testing.T) { testSustainedLoad(t, config) })
		t.Run("rapid_cycling", testRapidCycling)
	default:
		t.Skip("PERFZ_RELIABILITY_LEVEL not set, skipping reliability tests")
	}
}

// testStartupShutdown verifies a monitor stays usable after Close.
func testStartupShutdown(t *testing.T) {
	monitor := perfz.New(perfz.NewTimeline(clockz.RealClock))
	_ = monitor.EnableWorkerPool(2, 16)

	tr := monitor.NewTrace("startup")
	_ = tr.Start()
	_ = tr.Stop()

	monitor.Close()

	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Panic after monitor close: %v", r)
			}
		}()
		tr := monitor.NewTrace("post-close")
		_ = tr.Start()
		_ = tr.Stop()
		monitor.NewTrace("post-close-record").Record(1, 1, nil)
	}()

	if monitor.Reported() != 3 {
		t.Errorf("Expected 3 reports, got %d", monitor.Reported())
	}
}

// testHandlerChurn registers and removes handlers while traces are reported.
func testHandlerChurn(t *testing.T) {
	monitor := perfz.New(perfz.NewTimeline(clockz.RealClock))
	defer monitor.Close()

	var delivered atomic.Int64
	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				id := monitor.OnTraceComplete(func(perfz.Snapshot) { delivered.Add(1) })
				monitor.RemoveHandler(id)
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		monitor.NewTrace("churn").Record(float64(i), 1, nil)
	}
	close(stop)
	wg.Wait()

	if monitor.Reported() != 2000 {
		t.Errorf("Expected 2000 reports, got %d", monitor.Reported())
	}
	t.Logf("Delivered %d traces to transient handlers", delivered.Load())
}

// testSustainedLoad reports traces from many goroutines for the configured duration.
func testSustainedLoad(t *testing.T, config ReliabilityConfig) {
	timeline := perfz.NewTimeline(clockz.RealClock)
	monitor := perfz.New(timeline)
	defer monitor.Close()
	_ = monitor.EnableWorkerPool(4, 1024)

	collector := perfz.NewCollector("load", 4096)
	defer collector.Close()
	monitor.OnTraceCompleteAsync(collector.Handler())

	deadline := time.Now().Add(config.Duration)
	var wg sync.WaitGroup
	for g := 0; g < config.MaxGoroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				tr := monitor.NewTrace("load")
				_ = tr.Start()
				tr.Increment("n")
				_ = tr.Stop()
			}
		}()
	}

	exported := 0
	for time.Now().Before(deadline) {
		exported += len(collector.Export())
		timeline.ClearMarks("")
		timeline.ClearMeasures("")
		time.Sleep(50 * time.Millisecond)
	}
	wg.Wait()
	exported += len(collector.Export())

	t.Logf("reported=%d exported=%d dropped(monitor)=%d dropped(collector)=%d",
		monitor.Reported(), exported, monitor.DroppedTraces(), collector.DroppedCount())

	if exported == 0 {
		t.Error("Expected traces to be exported under load")
	}
}

// testRapidCycling creates and closes many monitors without leaking goroutines.
func testRapidCycling(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := 0; i < 200; i++ {
		monitor := perfz.New(perfz.NewTimeline(clockz.RealClock))
		_ = monitor.EnableWorkerPool(2, 8)
		monitor.OnTraceCompleteAsync(func(perfz.Snapshot) {})
		tr := monitor.NewTrace("cycle")
		_ = tr.Start()
		_ = tr.Stop()
		monitor.Close()
	}

	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	if after := runtime.NumGoroutine(); after > before+5 {
		t.Errorf("Goroutine growth after cycling: %d -> %d", before, after)
	}
}
