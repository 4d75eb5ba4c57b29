package timing

// An Event is something going to happen in the future.
type Event interface {
	// Time returns the time that the event should happen.
	Time() ScenarioTime

	// Handler returns the handler that should handle the event.
	Handler() Handler
}

// A Handler processes the events scheduled for it.
//
// Events are plain data; handlers type switch on them:
//
//	func (h *MyHandler) Handle(e timing.Event) error {
//	    switch e := e.(type) {
//	    case *MyEvent:
//	        // handle MyEvent
//	    default:
//	        return fmt.Errorf("unknown event type: %T", e)
//	    }
//	    return nil
//	}
type Handler interface {
	Handle(e Event) error
}

// EventBase provides the basic fields and getters for other events.
type EventBase struct {
	time    ScenarioTime
	handler Handler
}

// NewEventBase creates a new EventBase.
func NewEventBase(t ScenarioTime, handler Handler) EventBase {
	return EventBase{time: t, handler: handler}
}

// Time returns the time that the event is going to happen.
func (e EventBase) Time() ScenarioTime {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}
