// Package viewer bridges an engine module to a scene renderer.
//
// A [Viewer] loads the engine through the shared [engine.Cache], writes the
// model description into the engine filesystem, and builds one scene group
// per body. Every display frame it updates the camera controls, advances
// the engine with a fixed-timestep [Accumulator], copies body poses into
// the scene (converting z-up to y-up) and renders once.
//
// Frames are driven by a [Scheduler]. [TickerScheduler] runs them from a
// timer; [ManualScheduler] lets a TUI or test fire them explicitly.
//
// [Viewer.Dispose] releases everything New acquired and may be called any
// number of times.
package viewer
