package input

import (
	"time"

	"github.com/lr35902/dmg-core/jeebie/backend"
	"github.com/lr35902/dmg-core/jeebie/input/action"
	"github.com/lr35902/dmg-core/jeebie/input/event"
)

// Handler manages input processing with debouncing for UI actions
type Handler struct {
	lastActionTime map[action.Action]time.Time
	debounceDelay  time.Duration
}

func NewHandler() *Handler {
	return &Handler{
		lastActionTime: make(map[action.Action]time.Time),
		debounceDelay:  300 * time.Millisecond,
	}
}

// ProcessEvent reports whether evt should be handled. Only Press events of
// actions whose Debounce flag is set are debounced, keyed per action;
// Release and Hold events and game controls always pass.
func (h *Handler) ProcessEvent(evt backend.InputEvent) bool {
	if evt.Type != event.Press || !action.GetInfo(evt.Action).Debounce {
		return true
	}
	return !h.debounced(evt.Action)
}

// debounced reports whether act fired too recently to act on again, and
// records now as its new last-fired time when it didn't.
func (h *Handler) debounced(act action.Action) bool {
	now := time.Now()
	if now.Sub(h.lastActionTime[act]) < h.debounceDelay {
		return true
	}
	h.lastActionTime[act] = now
	return false
}
