package interrupt

import "testing"

type fakeTarget struct {
	ime    bool
	pc     uint16
	pushed []uint16
	vector uint16
}

func (f *fakeTarget) PushPC()             { f.pushed = append(f.pushed, f.pc) }
func (f *fakeTarget) JumpTo(v uint16)      { f.vector = v; f.pc = v }
func (f *fakeTarget) IME() bool            { return f.ime }
func (f *fakeTarget) SetIME(v bool)        { f.ime = v }

func TestController_PollServicesHighestPriorityOnly(t *testing.T) {
	c := New()
	c.SetIE(0xFF)
	c.Request(Timer)
	c.Request(VBlank)

	tgt := &fakeTarget{ime: true, pc: 0x0200}
	if !c.Poll(tgt) {
		t.Fatalf("expected Poll to service an interrupt")
	}
	if tgt.vector != 0x40 {
		t.Fatalf("vector got %#x want VBlank 0x40 (higher priority than Timer)", tgt.vector)
	}
	if tgt.ime {
		t.Fatalf("IME should be cleared after servicing")
	}
	if c.IF()&0x01 != 0 {
		t.Fatalf("VBlank IF bit should be cleared after servicing")
	}
	if c.IF()&0x04 == 0 {
		t.Fatalf("Timer IF bit should remain set; only one interrupt is serviced per poll")
	}
}

func TestController_PollDoesNothingWhenIMEClear(t *testing.T) {
	c := New()
	c.SetIE(0xFF)
	c.Request(VBlank)
	tgt := &fakeTarget{ime: false}
	if c.Poll(tgt) {
		t.Fatalf("Poll should not service when IME is false")
	}
	if c.IF()&0x01 == 0 {
		t.Fatalf("IF bit should remain set when nothing was serviced")
	}
}

func TestController_PollIgnoresDisabledSources(t *testing.T) {
	c := New()
	c.SetIE(0x00) // nothing enabled
	c.Request(VBlank)
	tgt := &fakeTarget{ime: true}
	if c.Poll(tgt) {
		t.Fatalf("Poll should not service a requested-but-disabled source")
	}
}

func TestController_AnyPendingIgnoresIME(t *testing.T) {
	c := New()
	c.SetIE(0xFF)
	c.Request(Joypad)
	if !c.AnyPending() {
		t.Fatalf("AnyPending should be true regardless of IME")
	}
}
