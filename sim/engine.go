package sim

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event)

	// ScheduleNow builds an event with the current time and schedules it
	// atomically, so that the time cannot advance in between. Interrupt-like
	// producers that run outside of the engine loop use this.
	ScheduleNow(build func(now VTimeInSec) Event)
}

// An IdleHandler is invoked when the engine runs out of events to process.
// Idle handlers may schedule more events, in which case the engine keeps
// running.
type IdleHandler interface {
	OnIdle(now VTimeInSec)
}

// A SimulationEndHandler is a handler that is called after the simulation ends.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// An Engine is a unit that keeps the event loop running.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run will process all the events until the queue drains
	Run() error

	// Pause will pause the engine until continue is called.
	Pause()

	// Continue will continue the paused engine
	Continue()

	// RegisterIdleHandler registers a handler that runs when no other event
	// is pending.
	RegisterIdleHandler(handler IdleHandler)

	// RegisterSimulationEndHandler registers a handler that perform some
	// actions after the simulation is finished.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished invokes all the registered SimulationEndHandler
	Finished()
}
