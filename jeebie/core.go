package jeebie

import (
	"crypto/md5"
	"fmt"
	"io/ioutil"
	"log/slog"
	"sync"

	"github.com/lr35902/dmg-core/jeebie/addr"
	"github.com/lr35902/dmg-core/jeebie/bit"
	"github.com/lr35902/dmg-core/jeebie/cpu"
	"github.com/lr35902/dmg-core/jeebie/debug"
	"github.com/lr35902/dmg-core/jeebie/memory"
	"github.com/lr35902/dmg-core/jeebie/video"
)

const (
	debugSnapshotSize     = 200
	debugSnapshotLookback = 16
)

// DebuggerState represents the current debugger mode
type DebuggerState int

const (
	DebuggerRunning   DebuggerState = iota // Normal execution
	DebuggerPaused                         // Paused, waiting for commands
	DebuggerStep                           // Execute one instruction then pause
	DebuggerStepFrame                      // Execute one frame then pause
)

// Emulator represents the root struct and entry point for running the emulation
type Emulator struct {
	cpu *cpu.CPU
	gpu *video.GPU
	mem *memory.MMU

	// Debugger state
	debuggerState    DebuggerState
	debuggerMutex    sync.RWMutex
	stepRequested    bool
	frameRequested   bool
	instructionCount uint64
	frameCount       uint64

	completionMaxFrames    uint64
	completionMinLoopCount int
}

func (e *Emulator) init(mem *memory.MMU) {
	e.cpu = cpu.New(mem)
	e.gpu = video.NewGpu(mem)
	e.mem = mem

	mem.SetTimerSeed(0xABCC)
}

// New creates a new emulator instance
func New() *Emulator {
	e := &Emulator{}
	e.init(memory.NewWithCartridge(memory.NewCartridge()))

	return e
}

// NewWithFile creates a new emulator instance and loads the file specified into it.
func NewWithFile(path string) (*Emulator, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded ROM data", "size", len(data))

	e := &Emulator{}
	e.init(memory.NewWithCartridge(memory.NewCartridgeWithData(data)))

	return e, nil
}

func (e *Emulator) RunUntilFrame() {
	e.debuggerMutex.RLock()
	state := e.debuggerState
	e.debuggerMutex.RUnlock()

	// Handle paused state - don't execute anything
	if state == DebuggerPaused {
		return
	}

	// Handle step instruction - execute one instruction then pause
	if state == DebuggerStep {
		e.debuggerMutex.Lock()
		if e.stepRequested {
			e.stepRequested = false
			e.debuggerMutex.Unlock()

			// Execute one CPU instruction
			oldPC := e.cpu.GetPC()
			cycles := e.cpu.Tick()
			e.gpu.Tick(cycles)
			e.mem.Tick(cycles)
			e.instructionCount++

			// Log the executed instruction
			slog.Debug("Step executed", "pc", fmt.Sprintf("0x%04X", oldPC), "new_pc", fmt.Sprintf("0x%04X", e.cpu.GetPC()))

			// Pause after execution
			e.SetDebuggerState(DebuggerPaused)
		} else {
			e.debuggerMutex.Unlock()
		}
		return
	}

	// Handle step frame - execute one frame then pause
	if state == DebuggerStepFrame {
		e.debuggerMutex.Lock()
		frameRequested := e.frameRequested
		if frameRequested {
			e.frameRequested = false
		}
		e.debuggerMutex.Unlock()

		if frameRequested {
			// Execute one full frame
			total := 0
			for {
				cycles := e.cpu.Tick()
				e.gpu.Tick(cycles)
				e.mem.Tick(cycles)
				e.instructionCount++
				total += cycles

				if total >= 70224 {
					break
				}
			}
			e.frameCount++
			slog.Debug("Frame step completed", "frame", e.frameCount, "instructions", e.instructionCount)
			e.SetDebuggerState(DebuggerPaused)
		}
		return
	}

	// Normal execution (DebuggerRunning)
	total := 0
	for {
		cycles := e.cpu.Tick()
		e.gpu.Tick(cycles)
		e.mem.Tick(cycles)
		e.instructionCount++

		total += cycles

		if total >= 70224 {
			e.frameCount++
			// Log every 60 frames (once per second at 60 FPS) only when running
			if e.frameCount%60 == 0 {
				slog.Debug("Frame completed", "frame", e.frameCount, "pc", fmt.Sprintf("0x%04X", e.cpu.GetPC()))
			}
			return
		}
	}
}

func (e *Emulator) GetCurrentFrame() *video.FrameBuffer {
	return e.gpu.GetFrameBuffer()
}

func (e *Emulator) HandleKeyPress(key memory.JoypadKey) {
	e.mem.HandleKeyPress(key)
}

func (e *Emulator) HandleKeyRelease(key memory.JoypadKey) {
	e.mem.HandleKeyRelease(key)
}

func (e *Emulator) GetCPU() *cpu.CPU {
	return e.cpu
}

// Debugger control methods
func (e *Emulator) SetDebuggerState(state DebuggerState) {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.debuggerState = state
	slog.Debug("Debugger state changed", "state", state)
}

func (e *Emulator) GetDebuggerState() DebuggerState {
	e.debuggerMutex.RLock()
	defer e.debuggerMutex.RUnlock()
	return e.debuggerState
}

func (e *Emulator) DebuggerPause() {
	e.SetDebuggerState(DebuggerPaused)
	slog.Info("Emulator paused")
}

func (e *Emulator) DebuggerResume() {
	e.SetDebuggerState(DebuggerRunning)
	slog.Info("Emulator resumed")
}

func (e *Emulator) DebuggerStepInstruction() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.stepRequested = true
	e.debuggerState = DebuggerStep
	slog.Info("Step instruction requested")
}

func (e *Emulator) DebuggerStepFrame() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.frameRequested = true
	e.debuggerState = DebuggerStepFrame
	slog.Info("Step frame requested")
}

func (e *Emulator) GetInstructionCount() uint64 {
	return e.instructionCount
}

func (e *Emulator) GetFrameCount() uint64 {
	return e.frameCount
}

func (e *Emulator) GetMMU() *memory.MMU {
	return e.mem
}

// ExtractDebugData snapshots CPU/memory/PPU/APU state for debug UIs. Returns
// nil when the emulator hasn't been initialized (e.g. the zero value).
func (e *Emulator) ExtractDebugData() *debug.CompleteDebugData {
	if e.cpu == nil || e.gpu == nil || e.mem == nil {
		return nil
	}

	cpuState := &debug.CPUState{
		A: e.cpu.GetA(), F: e.cpu.GetF(),
		B: e.cpu.GetB(), C: e.cpu.GetC(),
		D: e.cpu.GetD(), E: e.cpu.GetE(),
		H: e.cpu.GetH(), L: e.cpu.GetL(),
		SP:     e.cpu.GetSP(),
		PC:     e.cpu.GetPC(),
		IME:    e.cpu.GetIME(),
		Cycles: e.cpu.GetCycles(),
	}

	line := int(e.mem.Read(addr.LY))
	spriteHeight := 8
	if bit.IsSet(2, e.mem.Read(addr.LCDC)) {
		spriteHeight = 16
	}

	return &debug.CompleteDebugData{
		OAM:             debug.ExtractOAMData(e.mem, line, spriteHeight),
		VRAM:            debug.ExtractVRAMData(e.mem),
		CPU:             cpuState,
		Memory:          e.buildMemorySnapshot(),
		Audio:           debug.ExtractAudioData(e.mem, e.mem.APU),
		Serial:          &debug.SerialData{LastLine: e.mem.SerialLastLine()},
		DebuggerState:   debug.DebuggerState(e.GetDebuggerState()),
		InterruptEnable: e.mem.Read(addr.IE),
		InterruptFlags:  e.mem.Read(addr.IF),
	}
}

// buildMemorySnapshot windows a chunk of address space around the PC
// (a little lookback for disassembly context), truncated so it never reads
// past 0xFFFF.
func (e *Emulator) buildMemorySnapshot() *debug.MemorySnapshot {
	pc := e.cpu.GetPC()
	start := pc
	if start > debugSnapshotLookback {
		start -= debugSnapshotLookback
	} else {
		start = 0
	}

	size := debugSnapshotSize
	if uint32(start)+uint32(size) > 0x10000 {
		size = int(0x10000 - uint32(start))
	}

	bytes := make([]byte, size)
	for i := range bytes {
		bytes[i] = e.mem.Read(start + uint16(i))
	}

	return &debug.MemorySnapshot{StartAddr: start, Bytes: bytes}
}

// ConfigureCompletionDetection sets the bounds used by RunUntilComplete:
// maxFrames is a hard cap, and minLoopCount is how many consecutive identical
// frames mark the test ROM as having reached a steady state (pass/fail screen).
func (e *Emulator) ConfigureCompletionDetection(maxFrames uint64, minLoopCount int) {
	e.completionMaxFrames = maxFrames
	e.completionMinLoopCount = minLoopCount
}

// RunUntilComplete runs frames until the framebuffer stops changing for
// completionMinLoopCount consecutive frames, or completionMaxFrames is reached.
// Test ROMs (e.g. Blargg's) spin in an infinite loop once they've printed their
// result, so a stable framebuffer is a reliable completion signal.
func (e *Emulator) RunUntilComplete() {
	var lastHash [16]byte
	identicalFrames := 0

	for e.frameCount < e.completionMaxFrames {
		e.RunUntilFrame()

		hash := md5.Sum(e.GetCurrentFrame().ToGrayscale())
		if hash == lastHash {
			identicalFrames++
			if e.completionMinLoopCount > 0 && identicalFrames >= e.completionMinLoopCount {
				return
			}
		} else {
			identicalFrames = 0
			lastHash = hash
		}
	}
}
