// Package automation schedules parameter changes and renders them to
// per-sample buffers.
//
// Control code calls the scheduling methods of a [Scheduler] at any time,
// from any goroutine. Once per block the audio side calls
// [Scheduler.Process], which turns the pending events of every registered
// (node, parameter) pair into a dense buffer of values and advances the
// sample cursor. Nodes then read those buffers while they render.
//
// Events are ordered by absolute sample position and then by insertion
// sequence, so two events for the same sample resolve in the order they
// were scheduled.
package automation

import "github.com/juju/loggo"

var logger = loggo.GetLogger("synth.automation")
