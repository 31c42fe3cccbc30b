package jeebie

import (
	"github.com/lr35902/dmg-core/jeebie/debug"
	"github.com/lr35902/dmg-core/jeebie/input/action"
	"github.com/lr35902/dmg-core/jeebie/timing"
	"github.com/lr35902/dmg-core/jeebie/video"
)

// EmulatorBackend is the interface backends (terminal, SDL2, headless, test
// pattern) drive, as opposed to *Emulator, which callers that want direct
// access to the core (CPU/MMU/GPU) use concretely.
type EmulatorBackend interface {
	RunUntilFrame() error
	GetCurrentFrame() *video.FrameBuffer
	HandleAction(act action.Action, pressed bool)
	ExtractDebugData() *debug.CompleteDebugData
	SetFrameLimiter(limiter timing.Limiter)
	ResetFrameTiming()
}
