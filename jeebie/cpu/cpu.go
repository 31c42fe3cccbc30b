package cpu

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lr35902/dmg-core/jeebie/addr"
	"github.com/lr35902/dmg-core/jeebie/memory"
)

// Flag is one of the 4 possible flags used in the flag register (high nibble of F)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// illegalOpcodes are primary-table opcodes with no defined behavior on the LR35902.
var illegalOpcodes = map[uint8]bool{
	0xD3: true, 0xDB: true, 0xDD: true, 0xE3: true, 0xE4: true,
	0xEB: true, 0xEC: true, 0xED: true, 0xF4: true, 0xFC: true, 0xFD: true,
}

// CPU is the main struct holding Z80-derived LR35902 state: registers, flags,
// interrupt/halt status and a reference to the bus it executes against.
type CPU struct {
	a, b, c, d, e, h, l, f uint8
	sp, pc                 uint16

	memory *memory.MMU

	currentOpcode uint16

	interruptsEnabled bool
	eiPending         bool // set by EI; IME turns on after the instruction following it finishes
	halted            bool
	haltBug           bool
	stopped           bool

	cycles uint64 // cumulative clock cycles (T-states) executed
}

// New returns a CPU in its post-boot-ROM state, matching what the real
// bootstrap leaves in the registers right before handing off to 0x0100.
func New(mem *memory.MMU) *CPU {
	return &CPU{
		a: 0x01, f: 0xB0,
		b: 0x00, c: 0x13,
		d: 0x00, e: 0xD8,
		h: 0x01, l: 0x4D,
		sp:     0xFFFE,
		pc:     0x0100,
		memory: mem,
	}
}

func (c *CPU) GetPC() uint16     { return c.pc }
func (c *CPU) GetSP() uint16     { return c.sp }
func (c *CPU) GetCycles() uint64 { return c.cycles }
func (c *CPU) IsHalted() bool    { return c.halted }
func (c *CPU) GetIME() bool      { return c.interruptsEnabled }

func (c *CPU) GetA() uint8 { return c.a }
func (c *CPU) GetB() uint8 { return c.b }
func (c *CPU) GetC() uint8 { return c.c }
func (c *CPU) GetD() uint8 { return c.d }
func (c *CPU) GetE() uint8 { return c.e }
func (c *CPU) GetH() uint8 { return c.h }
func (c *CPU) GetL() uint8 { return c.l }
func (c *CPU) GetF() uint8 { return c.f }

func (c *CPU) GetAF() uint16 { return c.getAF() }
func (c *CPU) GetBC() uint16 { return c.getBC() }
func (c *CPU) GetDE() uint16 { return c.getDE() }
func (c *CPU) GetHL() uint16 { return c.getHL() }

// GetFlagString renders the Z/N/H/C flags as set letters or a dash, e.g. "Z-H-".
func (c *CPU) GetFlagString() string {
	flags := [4]struct {
		flag   Flag
		letter byte
	}{
		{zeroFlag, 'Z'},
		{subFlag, 'N'},
		{halfCarryFlag, 'H'},
		{carryFlag, 'C'},
	}

	out := make([]byte, 4)
	for i, f := range flags {
		if c.isSetFlag(f.flag) {
			out[i] = f.letter
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

// flagToBit returns 1 if the given flag is set, 0 otherwise. Used by ADC/SBC
// to fold the carry flag into an arithmetic operand.
func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c *CPU) getAF() uint16 { return uint16(c.a)<<8 | uint16(c.f&0xF0) }
func (c *CPU) getBC() uint16 { return uint16(c.b)<<8 | uint16(c.c) }
func (c *CPU) getDE() uint16 { return uint16(c.d)<<8 | uint16(c.e) }
func (c *CPU) getHL() uint16 { return uint16(c.h)<<8 | uint16(c.l) }

func (c *CPU) setAF(v uint16) {
	c.a = uint8(v >> 8)
	c.f = uint8(v) & 0xF0
}
func (c *CPU) setBC(v uint16) {
	c.b = uint8(v >> 8)
	c.c = uint8(v)
}
func (c *CPU) setDE(v uint16) {
	c.d = uint8(v >> 8)
	c.e = uint8(v)
}
func (c *CPU) setHL(v uint16) {
	c.h = uint8(v >> 8)
	c.l = uint8(v)
}

// readImmediate reads the byte at PC and advances PC by one.
func (c *CPU) readImmediate() uint8 {
	v := c.memory.Read(c.pc)
	c.pc++
	return v
}

// readSignedImmediate reads the byte at PC as a signed 8-bit displacement and advances PC.
func (c *CPU) readSignedImmediate() int8 {
	return int8(c.readImmediate())
}

// readImmediateWord reads a little-endian 16-bit immediate at PC and advances PC by two.
func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return uint16(high)<<8 | uint16(low)
}

// peekImmediate reads the byte at PC+offset without advancing it. Used by
// Decode to inspect the CB continuation byte ahead of dispatch.
func (c *CPU) peekImmediate(offset uint16) uint8 {
	return c.memory.Read(c.pc + offset)
}

// Decode looks at the byte(s) at the current PC and resolves the Opcode
// function that implements it, without mutating CPU state other than
// recording the (possibly CB-extended) opcode value for diagnostics.
func Decode(c *CPU) Opcode {
	first := c.peekImmediate(0)

	if first == 0xCB {
		second := c.peekImmediate(1)
		c.currentOpcode = 0xCB00 | uint16(second)
		return decode(c.currentOpcode)
	}

	c.currentOpcode = uint16(first)
	return decode(c.currentOpcode)
}

// handleInterrupts checks IE & IF for pending interrupts. If IME is set, it
// dispatches the highest-priority pending interrupt: clears its IF bit,
// clears IME, pushes PC and jumps to the fixed vector. Returns true whenever
// any interrupt is pending, regardless of whether IME allowed dispatch — the
// caller needs this to know whether to wake from HALT.
func (c *CPU) handleInterrupts() bool {
	ie := c.memory.Read(addr.IE)
	iflags := c.memory.Read(addr.IF)
	pending := ie & iflags & 0x1F

	if pending == 0 {
		return false
	}

	if !c.interruptsEnabled {
		return true
	}

	var bitPos uint8
	var vector uint16
	switch {
	case pending&0x01 != 0:
		bitPos, vector = 0, 0x40
	case pending&0x02 != 0:
		bitPos, vector = 1, 0x48
	case pending&0x04 != 0:
		bitPos, vector = 2, 0x50
	case pending&0x08 != 0:
		bitPos, vector = 3, 0x58
	default:
		bitPos, vector = 4, 0x60
	}

	c.memory.Write(addr.IF, iflags&^(1<<bitPos))
	c.interruptsEnabled = false
	c.pushStack(c.pc)
	c.pc = vector
	c.cycles += 12

	return true
}

// Tick executes a single CPU step and returns the number of clock cycles
// (T-states) it consumed. A step is one of: dispatching a pending interrupt
// (the dispatch is the whole step), idling 4 cycles while halted, or
// fetching, decoding and executing exactly one instruction. A pending EI
// takes effect at the end of the step that runs the instruction after EI.
func (c *CPU) Tick() int {
	start := c.cycles

	if c.halted {
		pending := c.handleInterrupts()
		if pending {
			c.halted = false
			if !c.interruptsEnabled {
				c.haltBug = true
			}
		}
		if c.halted {
			c.cycles += 4
			return 4
		}
		if c.cycles != start {
			// an interrupt was serviced while halted: that dispatch is the
			// whole step.
			return int(c.cycles - start)
		}
	} else {
		dispatched := c.handleInterrupts()
		if dispatched && c.cycles != start {
			return int(c.cycles - start)
		}
	}

	if c.stopped {
		c.dumpAndAbort("STOP opcode executed")
	}

	if illegalOpcodes[c.peekImmediate(0)] {
		c.dumpAndAbort(fmt.Sprintf("illegal opcode 0x%02X", c.peekImmediate(0)))
	}

	op := Decode(c)
	if (c.currentOpcode & 0xFF00) == 0xCB00 {
		c.pc += 2
	} else {
		c.pc++
	}

	eiWasPending := c.eiPending
	cycles := op(c)
	c.cycles += uint64(cycles)

	// EI's effect is delayed until the instruction following it has executed,
	// so the pending flag is only applied here, after that instruction runs
	// (a flag set by EI in this very step waits for the next step; DI clears it).
	if eiWasPending && c.eiPending {
		c.eiPending = false
		c.interruptsEnabled = true
	}

	return int(c.cycles - start)
}

func (c *CPU) dumpAndAbort(reason string) {
	slog.Error("CPU halted execution",
		"reason", reason,
		"pc", fmt.Sprintf("0x%04X", c.pc),
		"sp", fmt.Sprintf("0x%04X", c.sp),
		"af", fmt.Sprintf("0x%04X", c.getAF()),
		"bc", fmt.Sprintf("0x%04X", c.getBC()),
		"de", fmt.Sprintf("0x%04X", c.getDE()),
		"hl", fmt.Sprintf("0x%04X", c.getHL()),
	)
	os.Exit(1)
}
