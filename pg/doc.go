// Package pg implements the power gating controllers of a low power
// management task.
//
// A Registry owns one record per power-gateable controller (PgCtrl). Each
// controller runs a small state machine
//
//	PwrOn -> On2Off -> PwrOff -> Off2On -> PwrOn
//	  ^ |
//	  | v
//	Disallow
//
// driven by LogicEvents that are serviced sequentially by a sim.Engine. Clients
// forbid gating with Disallow and permit it again with Allow; every outstanding
// reason keeps the controller fully powered. Interrupt context never touches a
// controller directly, it only posts events with Post and PostIdleSnap.
package pg
