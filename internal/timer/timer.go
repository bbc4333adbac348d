// Package timer implements the DMG DIV/TIMA/TMA/TAC timer using the
// additive accumulator model: a running count of T-cycles since the last
// DIV increment, and a countdown to the next TIMA increment.
package timer

// period gives the T-cycle count between TIMA increments for each TAC[1:0]
// selection.
var period = [4]int{1024, 16, 64, 256}

// Requester lets the timer raise the Timer interrupt without importing
// the interrupt package's Controller directly.
type Requester func()

type Timer struct {
	div  byte // FF04, as observed by the CPU
	tima byte // FF05
	tma  byte // FF06
	tac  byte // FF07, lower 3 bits

	divAccum  int // T-cycles accumulated toward the next DIV++
	timerCtr int // T-cycles remaining until the next TIMA step

	req Requester
}

func New(req Requester) *Timer {
	t := &Timer{req: req}
	t.timerCtr = period[0]
	return t
}

func (t *Timer) DIV() byte { return t.div }
func (t *Timer) TIMA() byte { return t.tima }
func (t *Timer) TMA() byte  { return t.tma }
func (t *Timer) TAC() byte  { return 0xF8 | (t.tac & 0x07) }

// WriteDIV resets DIV (and its accumulator) to zero on any write, per §4.1.
func (t *Timer) WriteDIV(byte) {
	t.div = 0
	t.divAccum = 0
}

func (t *Timer) WriteTIMA(v byte) { t.tima = v }
func (t *Timer) WriteTMA(v byte)  { t.tma = v }

// WriteTAC stores the new control byte and, if the selected period
// changed, restarts the countdown from the newly selected period (§4.1
// rule 5).
func (t *Timer) WriteTAC(v byte) {
	v &= 0x07
	if (v & 0x03) != (t.tac & 0x03) {
		t.timerCtr = period[v&0x03]
	}
	t.tac = v
}

// Step advances the timer by cycles T-cycles, per §4.4.
func (t *Timer) Step(cycles int) {
	t.divAccum += cycles
	for t.divAccum >= 256 {
		t.divAccum -= 256
		t.div++
	}

	if (t.tac & 0x04) == 0 {
		return
	}
	t.timerCtr -= cycles
	for t.timerCtr <= 0 {
		t.timerCtr += period[t.tac&0x03]
		if t.tima == 0xFF {
			t.tima = t.tma
			if t.req != nil {
				t.req()
			}
		} else {
			t.tima++
		}
	}
}
