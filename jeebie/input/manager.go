package input

import (
	"time"

	"github.com/lr35902/dmg-core/jeebie/input/action"
	"github.com/lr35902/dmg-core/jeebie/input/event"
	"github.com/lr35902/dmg-core/jeebie/memory"
)

const (
	// debounceDuration is the minimum time between debounced events
	debounceDuration = 300 * time.Millisecond
)

// Manager handles input actions and their associated callbacks
type Manager struct {
	handlers      map[action.Action]map[event.Type][]func()
	lastTriggered map[action.Action]map[event.Type]time.Time
	mmu           *memory.MMU
}

func NewManager(mmu *memory.MMU) *Manager {
	return &Manager{
		handlers:      make(map[action.Action]map[event.Type][]func()),
		lastTriggered: make(map[action.Action]map[event.Type]time.Time),
		mmu:           mmu,
	}
}

// On registers a callback for a specific action and event type
func (m *Manager) On(act action.Action, evt event.Type, callback func()) {
	if m.handlers[act] == nil {
		m.handlers[act] = make(map[event.Type][]func())
	}

	m.handlers[act][evt] = append(m.handlers[act][evt], callback)
}

// debounced reports whether act/evt fired too recently to act on again, and
// records the current time as the new last-fired time when it didn't.
// Only Press and Release are debounced; Hold fires every tick by design.
func (m *Manager) debounced(act action.Action, evt event.Type) bool {
	if evt != event.Press && evt != event.Release {
		return false
	}

	now := time.Now()
	if m.lastTriggered[act] == nil {
		m.lastTriggered[act] = make(map[event.Type]time.Time)
	}
	if now.Sub(m.lastTriggered[act][evt]) < debounceDuration {
		return true
	}
	m.lastTriggered[act][evt] = now
	return false
}

// Trigger handles the given action and event type.
func (m *Manager) Trigger(act action.Action, evt event.Type) {
	if m.debounced(act, evt) {
		return
	}

	// GB controls, written directly to memory (joypad)
	if m.mmu != nil {
		if joypadKey, ok := m.getJoypadKey(act); ok {
			switch evt {
			case event.Press:
				m.mmu.HandleKeyPress(joypadKey)
			case event.Release:
				m.mmu.HandleKeyRelease(joypadKey)
			}
			return // Only return for GB controls
		}
	}

	// Other emulator actions
	if m.handlers[act] != nil && len(m.handlers[act][evt]) > 0 {
		for _, callback := range m.handlers[act][evt] {
			callback()
		}
	}
}

// getJoypadKey maps a Game Boy action to its joypad key. The bool reports
// whether act is a GB control at all; JoypadRight is zero-valued, so it
// can't be distinguished from "no mapping" without it.
func (m *Manager) getJoypadKey(act action.Action) (memory.JoypadKey, bool) {
	switch act {
	case action.GBButtonA:
		return memory.JoypadA, true
	case action.GBButtonB:
		return memory.JoypadB, true
	case action.GBButtonStart:
		return memory.JoypadStart, true
	case action.GBButtonSelect:
		return memory.JoypadSelect, true
	case action.GBDPadUp:
		return memory.JoypadUp, true
	case action.GBDPadDown:
		return memory.JoypadDown, true
	case action.GBDPadLeft:
		return memory.JoypadLeft, true
	case action.GBDPadRight:
		return memory.JoypadRight, true
	default:
		return 0, false
	}
}
