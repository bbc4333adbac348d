package timer

import "testing"

func TestTimer_DIVAccumulatesAndWraps(t *testing.T) {
	tm := New(nil)
	tm.Step(255)
	if got := tm.DIV(); got != 0 {
		t.Fatalf("DIV got %d want 0 before 256 cycles", got)
	}
	tm.Step(1)
	if got := tm.DIV(); got != 1 {
		t.Fatalf("DIV got %d want 1 after 256 cycles", got)
	}
}

func TestTimer_WriteDIVResets(t *testing.T) {
	tm := New(nil)
	tm.Step(300)
	if tm.DIV() == 0 {
		t.Fatalf("expected DIV to have advanced")
	}
	tm.WriteDIV(0xFF)
	if got := tm.DIV(); got != 0 {
		t.Fatalf("DIV got %d want 0 after write", got)
	}
}

func TestTimer_TIMAOverflowReloadsFromTMAAndRequestsInterrupt(t *testing.T) {
	requested := 0
	tm := New(func() { requested++ })
	tm.WriteTAC(0x04) // enabled, period 1024 (00)
	tm.WriteTMA(0x05)
	tm.tima = 0xFF

	tm.Step(1023)
	if tm.TIMA() != 0xFF {
		t.Fatalf("TIMA got %02X want FF before period elapses", tm.TIMA())
	}
	tm.Step(1)
	if tm.TIMA() != 0x05 {
		t.Fatalf("TIMA got %02X want 05 after reload", tm.TIMA())
	}
	if requested != 1 {
		t.Fatalf("requested got %d want 1", requested)
	}
}

// §8: 256 increments of 1024 T-cycles wrap TIMA exactly once and request
// the Timer interrupt exactly once.
func TestTimer_WrapsOnceOverFullPeriod(t *testing.T) {
	requested := 0
	tm := New(func() { requested++ })
	tm.WriteTAC(0x04)
	tm.WriteTMA(0x00)

	tm.Step(256 * 1024)
	if tm.TIMA() != 0x00 {
		t.Fatalf("TIMA got %02X want 00 after full wrap", tm.TIMA())
	}
	if requested != 1 {
		t.Fatalf("requested got %d want 1", requested)
	}
}

func TestTimer_DisabledDoesNotAdvanceTIMA(t *testing.T) {
	tm := New(nil)
	tm.WriteTAC(0x00) // disabled
	tm.Step(100000)
	if tm.TIMA() != 0 {
		t.Fatalf("TIMA got %02X want 00 while disabled", tm.TIMA())
	}
}

func TestTimer_TACPeriodChangeRestartsCountdown(t *testing.T) {
	tm := New(nil)
	tm.WriteTAC(0x04) // period 1024
	tm.Step(1000)
	tm.WriteTAC(0x05) // switch to period 16; countdown restarts at 16
	tm.Step(15)
	if tm.TIMA() != 0 {
		t.Fatalf("TIMA got %02X want 00 before new period elapses", tm.TIMA())
	}
	tm.Step(1)
	if tm.TIMA() != 1 {
		t.Fatalf("TIMA got %02X want 01 after new period elapses", tm.TIMA())
	}
}
