package query

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_OnlyLastCallFires(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var fired atomic.Int32
	var last atomic.Int32

	for i := 1; i <= 5; i++ {
		i := int32(i)
		d.Do(func() {
			fired.Add(1)
			last.Store(i)
		})
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("%d calls fired, want 1", got)
	}
	if got := last.Load(); got != 5 {
		t.Errorf("call %d fired, want the last scheduled (5)", got)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var fired atomic.Int32
	d.Do(func() { fired.Add(1) })
	d.Stop()

	time.Sleep(80 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Errorf("%d calls fired after Stop, want 0", got)
	}

	// Stop does not retire the debouncer.
	d.Do(func() { fired.Add(1) })
	time.Sleep(80 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("%d calls fired after re-arm, want 1", got)
	}
	d.Stop()
}

func TestNewDebouncer_DefaultDelay(t *testing.T) {
	if d := NewDebouncer(0); d.delay != DefaultSearchDelay {
		t.Errorf("delay = %v, want %v", d.delay, DefaultSearchDelay)
	}
	if d := NewDebouncer(-time.Second); d.delay != DefaultSearchDelay {
		t.Errorf("delay = %v, want %v", d.delay, DefaultSearchDelay)
	}
	if d := NewDebouncer(time.Second); d.delay != time.Second {
		t.Errorf("delay = %v, want %v", d.delay, time.Second)
	}
}
