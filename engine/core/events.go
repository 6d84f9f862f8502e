package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01

	// Resized/resolution changed from the OS.
	// Data: *SystemEvent with WindowWidth and WindowHeight set.
	EVENT_CODE_RESIZED EventCode = 0x08

	MAX_EVENT_CODE EventCode = 0xFF
)

// SystemEvent carries window state for EVENT_CODE_RESIZED.
type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type EventContext struct {
	Type   EventCode
	Sender interface{}
	Data   interface{}
}

// FnOnEvent handles a fired event. Returning true marks the event handled and
// stops delivery to the remaining listeners.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	id       uint64
	callback FnOnEvent
}

// State structure.
type eventSystemState struct {
	mu         sync.RWMutex
	nextID     uint64
	registered map[EventCode][]registeredEvent
}

var eventState *eventSystemState

var eventMu sync.Mutex

// EventSystemInitialize prepares the event registry. Returns false if it was
// already initialized.
func EventSystemInitialize() bool {
	eventMu.Lock()
	defer eventMu.Unlock()
	if eventState != nil {
		return false
	}
	eventState = &eventSystemState{
		registered: make(map[EventCode][]registeredEvent),
	}
	return true
}

// EventSystemShutdown drops every registration.
func EventSystemShutdown() error {
	eventMu.Lock()
	defer eventMu.Unlock()
	eventState = nil
	return nil
}

func currentEventState() *eventSystemState {
	eventMu.Lock()
	defer eventMu.Unlock()
	return eventState
}

// EventRegister adds a listener for code and returns a handle for
// EventUnregister. The handle is 0 when the system is not initialized.
func EventRegister(code EventCode, onEvent FnOnEvent) uint64 {
	s := currentEventState()
	if s == nil || onEvent == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.registered[code] = append(s.registered[code], registeredEvent{
		id:       s.nextID,
		callback: onEvent,
	})
	return s.nextID
}

// EventUnregister removes the listener registered under handle for code.
func EventUnregister(code EventCode, handle uint64) bool {
	s := currentEventState()
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.registered[code]
	for i, e := range events {
		if e.id == handle {
			s.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire delivers the event synchronously, in registration order, until a
// listener reports it handled. Returns true if handled.
func EventFire(context EventContext) bool {
	s := currentEventState()
	if s == nil {
		return false
	}
	s.mu.RLock()
	events := make([]registeredEvent, len(s.registered[context.Type]))
	copy(events, s.registered[context.Type])
	s.mu.RUnlock()

	for _, e := range events {
		if e.callback(context) {
			return true
		}
	}
	return false
}
