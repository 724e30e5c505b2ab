// Package monitor implements clipwatch's adaptive change-detection engine.
//
// # Overview
//
// The engine polls a Source (the system clipboard) on an interval that adapts
// to observed activity: a burst of changes pins the loop to its fastest tier,
// while a quiet clipboard lets it degrade one tier at a time down to a slow
// idle cadence. Each tick reads a Snapshot, asks the Classifier whether the
// new content is a significant change, and hands accepted changes to an
// Emitter without blocking the next tick.
//
// # Tiers
//
// Polling tiers (ActivityMode) and their downgrade thresholds live in a
// Policy value so deployments can tune latency against resource use without
// touching engine code. Degradation is strictly one step per tick; any
// accepted change resets the engine to the fastest tier.
//
// # Concurrency
//
// The tick cycle is strictly sequential: read, classify, emit, sleep. Two
// trigger sources (the interval timer and Nudge) feed the same executor, so
// ticks never overlap even when both fire close together. Engine state has a
// single writer; StateNow returns copies for observers.
//
// Liveness of the engine's host task is supervised externally by the
// watchdog package, which deliberately shares no state with the engine.
package monitor
