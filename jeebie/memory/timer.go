package memory

import (
	"github.com/lr35902/dmg-core/jeebie/addr"
	"github.com/lr35902/dmg-core/jeebie/bit"
)

// tacBitPosition maps TAC's low two bits (the selected timer frequency) to
// the bit of the 16-bit system counter that TIMA's falling edge watches.
// Indexes: 00->4096Hz, 01->262144Hz, 10->65536Hz, 11->16384Hz.
var tacBitPosition = [4]uint16{9, 3, 5, 7}

// Timer models DIV/TIMA/TMA/TAC the way the real hardware does: there is no
// separate "tick every N cycles" counter, only a free-running 16-bit system
// counter (DIV is just its upper byte) and a falling-edge detector on one
// bit of that counter, selected by TAC. TIMA increments on every 1->0
// transition of that bit while the timer is enabled.
type Timer struct {
	systemCounter   uint16
	lastSelectedBit bool // previous sample of the TAC-selected counter bit
	overflowCycles  int  // cycles remaining before a pending TIMA overflow reloads
	pendingOverflow bool // the reload is done; its interrupt is due on the next Tick call

	div  byte
	tima byte
	tma  byte
	tac  byte

	TimerInterruptHandler func()
}

// SetSeed seeds the system counter (and DIV) directly, used by tests that
// need the timer in a known phase relative to CPU execution.
func (t *Timer) SetSeed(seed uint16) {
	t.systemCounter = seed
	t.lastSelectedBit = false
	t.overflowCycles = 0
	t.pendingOverflow = false
	t.div = byte(t.systemCounter >> 8)
}

// Tick advances the system counter by cycles CPU cycles, firing the
// delayed TIMA-overflow reload and any edge-triggered increments along
// the way.
func (t *Timer) Tick(cycles int) {
	t.resolvePendingOverflow()

	if t.overflowCycles > 0 {
		t.overflowCycles -= cycles
		if t.overflowCycles <= 0 {
			t.tima = t.tma
			t.pendingOverflow = true
			t.overflowCycles = 0
		}
	}

	for range cycles {
		t.systemCounter++
		t.div = byte(t.systemCounter >> 8)
		t.sampleEdge()
	}
}

// resolvePendingOverflow fires the interrupt for a TIMA overflow that
// completed its reload delay on a previous Tick call. Real hardware loads
// TMA into TIMA and raises the interrupt one M-cycle (4 T-cycles) after
// the overflow, which overflowCycles models.
func (t *Timer) resolvePendingOverflow() {
	if !t.pendingOverflow {
		return
	}
	if t.TimerInterruptHandler != nil {
		t.TimerInterruptHandler()
	}
	t.pendingOverflow = false
}

// sampleEdge re-samples the TAC-selected counter bit and increments TIMA on
// a 1->0 transition, matching the falling-edge quirk real DMG hardware
// timer glitches depend on.
func (t *Timer) sampleEdge() {
	if t.overflowCycles > 0 {
		return
	}

	if t.tac&0x04 == 0 {
		t.lastSelectedBit = false
		return
	}

	selectedBit := bit.IsSet16(tacBitPosition[t.tac&0x03], t.systemCounter)
	if t.lastSelectedBit && !selectedBit {
		if t.tima == 0xFF {
			t.tima = 0x00
			t.overflowCycles = 4
		} else {
			t.tima++
		}
	}
	t.lastSelectedBit = selectedBit
}

func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return t.div
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac
	default:
		return 0xFF
	}
}

func (t *Timer) Write(address uint16, value byte) {
	switch address {
	case addr.DIV:
		// any write resets the full 16-bit counter, not just the visible byte
		t.systemCounter = 0
		t.div = 0
	case addr.TIMA:
		t.tima = value
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		t.tac = value
	}
}
