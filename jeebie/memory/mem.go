package memory

import (
	"fmt"
	"log/slog"

	"github.com/lr35902/dmg-core/jeebie/addr"
	"github.com/lr35902/dmg-core/jeebie/audio"
	"github.com/lr35902/dmg-core/jeebie/bit"
	"github.com/lr35902/dmg-core/jeebie/serial"
)

// busRegion classifies an address's high byte so Read/Write can dispatch
// with a single table lookup instead of a chain of range comparisons.
type busRegion uint8

const (
	regionROM busRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// JoypadKey identifies one of the eight physical buttons.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// SerialPort is the minimal interface for a device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// MMU is the 64 KiB Game Boy address space: cartridge + mapper, VRAM/WRAM/
// OAM/HRAM, and the memory-mapped I/O registers (joypad, timer, APU,
// serial). The CPU and PPU never touch any of these backing stores
// directly — everything routes through Read/Write.
type MMU struct {
	cart      *Cartridge
	mbc       MBC
	ram       []byte
	APU       *audio.APU
	busLookup [256]busRegion

	joypadButtons uint8 // live state of A/B/Select/Start, active-low nibble
	joypadDpad    uint8 // live state of the d-pad, active-low nibble

	serial SerialPort
	timer  Timer
}

// New returns an MMU with an empty cartridge loaded — equivalent to
// powering on a DMG with no cartridge inserted.
func New() *MMU {
	mmu := &MMU{
		ram:           make([]byte, 0x10000),
		cart:          NewCartridge(),
		APU:           audio.New(),
		joypadButtons: 0x0F,
		joypadDpad:    0x0F,
	}
	mmu.serial = serial.NewLogSink(func() { mmu.RequestInterrupt(addr.SerialInterrupt) })
	mmu.timer.TimerInterruptHandler = func() { mmu.RequestInterrupt(addr.TimerInterrupt) }
	mmu.buildBusLookup()
	return mmu
}

// NewWithCartridge returns an MMU with cart loaded and its mapper attached.
func NewWithCartridge(cart *Cartridge) *MMU {
	mmu := New()
	mmu.cart = cart
	mmu.mbc = newMBCFor(cart)
	return mmu
}

// newMBCFor constructs the mapper implementation a cartridge's header
// declares it needs.
func newMBCFor(cart *Cartridge) MBC {
	switch cart.mbcType {
	case NoMBCType:
		return NewNoMBC(cart.data)
	case MBC1Type, MBC1MultiType:
		// TODO: MBC1MultiType (multicart) needs its own bank-select quirks;
		// falls back to plain MBC1 banking for now.
		return NewMBC1(cart.data, cart.hasBattery, cart.ramBankCount)
	case MBC2Type:
		return NewMBC2(cart.data, cart.hasBattery)
	case MBC3Type:
		return NewMBC3(cart.data, cart.ramBankCount, cart.hasRTC, nil)
	case MBC5Type:
		return NewMBC5(cart.data, cart.hasRumble, cart.ramBankCount)
	case MBCUnknownType:
		panic("unsupported MBC type: unknown")
	default:
		panic(fmt.Sprintf("unsupported MBC type: %d", cart.mbcType))
	}
}

// Tick advances the timer and serial port by cycles CPU cycles.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
}

// SetTimerSeed seeds the internal divider counter (and DIV).
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

// serialLineReader is implemented by SerialPort providers that buffer
// readable lines, such as the log-sink used when no real link partner
// exists. Not part of SerialPort itself since it's debug-only.
type serialLineReader interface {
	LastLine() string
}

// SerialLastLine returns the most recently completed line of serial output,
// or "" if the attached SerialPort doesn't expose line buffering.
func (m *MMU) SerialLastLine() string {
	if r, ok := m.serial.(serialLineReader); ok {
		return r.LastLine()
	}
	return ""
}

// buildBusLookup fills the high-byte-to-region table once at construction.
func (m *MMU) buildBusLookup() {
	for b := 0x00; b <= 0x7F; b++ {
		m.busLookup[b] = regionROM
	}
	for b := 0x80; b <= 0x9F; b++ {
		m.busLookup[b] = regionVRAM
	}
	for b := 0xA0; b <= 0xBF; b++ {
		m.busLookup[b] = regionExtRAM
	}
	for b := 0xC0; b <= 0xDF; b++ {
		m.busLookup[b] = regionWRAM
	}
	for b := 0xE0; b <= 0xFD; b++ {
		m.busLookup[b] = regionEcho
	}
	m.busLookup[0xFE] = regionOAM // 0xFE00-FE9F OAM, 0xFEA0-FEFF unused-but-RAM-backed
	m.busLookup[0xFF] = regionIO  // I/O registers + HRAM + IE
}

// RequestInterrupt sets the given interrupt's bit in IF.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	bitPos, ok := interruptBit(interrupt)
	if !ok {
		panic(fmt.Sprintf("unknown interrupt: 0x%02X", uint8(interrupt)))
	}
	m.Write(addr.IF, bit.Set(bitPos, m.Read(addr.IF)))
}

func interruptBit(interrupt addr.Interrupt) (uint8, bool) {
	switch interrupt {
	case addr.VBlankInterrupt:
		return 0, true
	case addr.LCDSTATInterrupt:
		return 1, true
	case addr.TimerInterrupt:
		return 2, true
	case addr.SerialInterrupt:
		return 3, true
	case addr.JoypadInterrupt:
		return 4, true
	default:
		return 0, false
	}
}

func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

func (m *MMU) SetBit(index uint8, address uint16, set bool) {
	value := m.Read(address)
	if set {
		value = bit.Set(index, value)
	} else {
		value = bit.Reset(index, value)
	}
	m.Write(address, value)
}

func (m *MMU) Read(address uint16) byte {
	switch m.busLookup[address>>8] {
	case regionROM, regionExtRAM:
		if m.mbc == nil {
			slog.Warn("read from cartridge space with no mapper attached", "addr", fmt.Sprintf("0x%04X", address))
			return 0xFF
		}
		return m.mbc.Read(address)
	case regionVRAM, regionWRAM, regionOAM:
		return m.ram[address]
	case regionEcho:
		return m.ram[address-0x2000]
	case regionIO:
		return m.readIO(address)
	default:
		panic(fmt.Sprintf("read at unmapped address: 0x%X", address))
	}
}

func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.SB || address == addr.SC:
		return m.serial.Read(address)
	case address == addr.DIV, address == addr.TIMA, address == addr.TMA, address == addr.TAC:
		return m.timer.Read(address)
	case address >= 0xFF10 && address <= 0xFF3F:
		return m.APU.ReadRegister(address)
	case address == addr.IF:
		// Bits 5-7 are unused and always read back as 1; matching this
		// precisely matters for HALT-bug detection (which watches IF != 0).
		return m.ram[address] | 0xE0
	default:
		return m.ram[address]
	}
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.busLookup[address>>8] {
	case regionROM, regionExtRAM:
		if m.mbc == nil {
			slog.Warn("write to cartridge space with no mapper attached", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.mbc.Write(address, value)
	case regionVRAM, regionWRAM, regionOAM:
		m.ram[address] = value
	case regionEcho:
		m.ram[address-0x2000] = value
	case regionIO:
		m.writeIO(address, value)
	default:
		panic(fmt.Sprintf("write at unmapped address: 0x%X", address))
	}
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.P1:
		m.writeJoypadSelect(value)
	case address == addr.SB || address == addr.SC:
		m.serial.Write(address, value)
	case address == addr.DIV, address == addr.TIMA, address == addr.TMA, address == addr.TAC:
		m.timer.Write(address, value)
	case address >= 0xFF10 && address <= 0xFF3F:
		m.APU.WriteRegister(address, value)
	case address == addr.IF:
		m.ram[address] = value | 0xE0
	case address == addr.DMA:
		m.performOAMDMA(value)
	default:
		m.ram[address] = value
	}
}

// performOAMDMA copies 160 bytes starting at value<<8 into OAM. Modeled as
// instantaneous to the bus; its 160-M-cycle cost is charged to the CPU step
// that triggered it, not spent here.
func (m *MMU) performOAMDMA(value byte) {
	source := uint16(value) << 8
	for i := uint16(0); i < 160; i++ {
		m.ram[0xFE00+i] = m.Read(source + i)
	}
	m.ram[addr.DMA] = value
}

// refreshJoypadRegister recomputes P1's low nibble from the selector bits
// (4-5, set by the last write) crossed with current button/d-pad state.
//
//   - bit 4 clear -> low nibble reflects the d-pad
//   - bit 5 clear -> low nibble reflects A/B/Select/Start
//   - both clear  -> hardware ANDs the two button sets together
//   - neither     -> reads back 0x0F (nothing selected)
//
// Buttons are active-low: 0 means pressed. Bits 6-7 always read as 1.
func (m *MMU) refreshJoypadRegister() {
	p1 := m.ram[addr.P1]
	result := uint8(0b1100_0000)
	result |= p1 & 0b0011_0000

	dpadSelected := !bit.IsSet(4, p1)
	buttonsSelected := !bit.IsSet(5, p1)

	switch {
	case buttonsSelected && !dpadSelected:
		result |= m.joypadButtons & 0x0F
	case dpadSelected && !buttonsSelected:
		result |= m.joypadDpad & 0x0F
	case buttonsSelected && dpadSelected:
		result |= m.joypadButtons & m.joypadDpad & 0x0F
	default:
		result |= 0x0F
	}

	m.ram[addr.P1] = result
}

func (m *MMU) writeJoypadSelect(value uint8) {
	m.ram[addr.P1] = value & 0b0011_0000 // only the selector bits are writable
	m.refreshJoypadRegister()
}

func joypadMaskBit(key JoypadKey) (isDpad bool, bitPos uint8) {
	switch key {
	case JoypadRight:
		return true, 0
	case JoypadLeft:
		return true, 1
	case JoypadUp:
		return true, 2
	case JoypadDown:
		return true, 3
	case JoypadA:
		return false, 0
	case JoypadB:
		return false, 1
	case JoypadSelect:
		return false, 2
	case JoypadStart:
		return false, 3
	default:
		return false, 0
	}
}

func (m *MMU) HandleKeyPress(key JoypadKey) {
	oldButtons, oldDpad := m.joypadButtons, m.joypadDpad
	isDpad, bitPos := joypadMaskBit(key)
	if isDpad {
		m.joypadDpad = bit.Reset(bitPos, m.joypadDpad)
	} else {
		m.joypadButtons = bit.Reset(bitPos, m.joypadButtons)
	}

	// a 1->0 transition on either nibble raises the joypad interrupt
	if (oldButtons&^m.joypadButtons)|(oldDpad&^m.joypadDpad) != 0 {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}

	m.refreshJoypadRegister()
}

func (m *MMU) HandleKeyRelease(key JoypadKey) {
	isDpad, bitPos := joypadMaskBit(key)
	if isDpad {
		m.joypadDpad = bit.Set(bitPos, m.joypadDpad)
	} else {
		m.joypadButtons = bit.Set(bitPos, m.joypadButtons)
	}
	m.refreshJoypadRegister()
}
