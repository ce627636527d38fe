// Package performance tracks the live cursor during a rehearsal or show:
// which setlist is on stage and which page everyone should be looking at.
package performance

import (
	"sync"
	"time"
)

// State represents the shared position in the running setlist.
type State struct {
	SetlistID  int       `json:"setlistId"`
	BlockIndex int       `json:"blockIndex"`
	ItemIndex  int       `json:"itemIndex"`
	Active     bool      `json:"active"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StateManager manages the performance state and notifies listeners
type StateManager struct {
	state     *State
	mutex     sync.RWMutex
	listeners []chan *State
}

// NewStateManager creates a new performance state manager
func NewStateManager() *StateManager {
	return &StateManager{
		state: &State{
			UpdatedAt: time.Now(),
		},
		listeners: make([]chan *State, 0),
	}
}

// GetState returns the current state (thread-safe)
func (sm *StateManager) GetState() *State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	stateCopy := *sm.state
	return &stateCopy
}

// Start marks a setlist as on stage, positioned at its first page.
func (sm *StateManager) Start(setlistID int) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.SetlistID = setlistID
	sm.state.BlockIndex = 0
	sm.state.ItemIndex = 0
	sm.state.Active = true
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// SetCursor moves the shared cursor to a page.
func (sm *StateManager) SetCursor(blockIndex, itemIndex int) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.BlockIndex = blockIndex
	sm.state.ItemIndex = itemIndex
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// Stop clears the performance (end of the show).
func (sm *StateManager) Stop() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.SetlistID = 0
	sm.state.BlockIndex = 0
	sm.state.ItemIndex = 0
	sm.state.Active = false
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// Subscribe adds a listener for state changes
func (sm *StateManager) Subscribe() <-chan *State {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	ch := make(chan *State, 10) // Buffered channel to prevent blocking
	sm.listeners = append(sm.listeners, ch)
	return ch
}

// Unsubscribe removes a listener (call this when done to prevent memory leaks)
func (sm *StateManager) Unsubscribe(ch <-chan *State) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	for i, listener := range sm.listeners {
		if listener == ch {
			close(listener)
			sm.listeners = append(sm.listeners[:i], sm.listeners[i+1:]...)
			break
		}
	}
}

// notifyListeners sends state updates to all subscribers (must be called with
// lock held). Listeners that stopped draining are closed and dropped; the
// slice is rebuilt from the survivors so removal never shifts elements under
// the iteration.
func (sm *StateManager) notifyListeners() {
	stateCopy := *sm.state
	surviving := sm.listeners[:0]
	for _, listener := range sm.listeners {
		select {
		case listener <- &stateCopy:
			surviving = append(surviving, listener)
		default:
			close(listener)
		}
	}
	sm.listeners = surviving
}
