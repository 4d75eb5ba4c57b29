package timing

import (
	"fmt"
	"log"
	"reflect"
)

// A SerialEngine runs events one after another in time order. It is single
// threaded; handlers may schedule further events while the engine runs.
type SerialEngine struct {
	HookableBase

	now   ScenarioTime
	queue *eventQueue
}

// NewSerialEngine creates a SerialEngine.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{queue: newEventQueue()}
}

// Schedule registers an event to happen in the future.
func (e *SerialEngine) Schedule(evt Event) {
	if evt.Time() < e.now {
		log.Panicf(
			"timing: cannot schedule event in the past, evt %s @ %d, now %d",
			reflect.TypeOf(evt), evt.Time(), e.now,
		)
	}

	e.queue.Push(evt)
}

// Run processes all the scheduled events. It stops at the first handler
// error.
func (e *SerialEngine) Run() error {
	for e.queue.Len() > 0 {
		evt := e.queue.Pop()
		e.now = evt.Time()

		hookCtx := HookCtx{
			Domain: e,
			Pos:    HookPosBeforeEvent,
			Item:   evt,
		}
		e.InvokeHook(hookCtx)

		if handler := evt.Handler(); handler != nil {
			if err := handler.Handle(evt); err != nil {
				return fmt.Errorf("timing: handling %s @ %d: %w",
					reflect.TypeOf(evt), evt.Time(), err)
			}
		}

		hookCtx.Pos = HookPosAfterEvent
		e.InvokeHook(hookCtx)
	}

	return nil
}

// CurrentTime returns the time of the most recently handled event.
func (e *SerialEngine) CurrentTime() ScenarioTime {
	return e.now
}

// Pending returns the number of events still waiting to be handled.
func (e *SerialEngine) Pending() int {
	return e.queue.Len()
}
