// Package control provides actuator command policies for the viewer.
//
// A [Policy] maps the current time and held keys to one command per
// actuator:
//
//   - [Sinusoid]: open-loop periodic commands, e.g. [HumanoidWave]
//   - [Keyboard]: key bindings to fixed commands, e.g. [HumanoidKeys]
//   - [Switch]: toggles between a manual and an automatic policy on "m"
//   - [None]: zero commands
//
// # Usage
//
//	keys := control.NewKeyState(0)
//	pol := control.NewSwitch(control.HumanoidKeys(), control.HumanoidWave())
//	u := pol.Compute(control.Input{Time: t, Keys: keys})
package control
