// Package dynamo provides the numeric primitives shared by the built-in
// physics engine and the control policies.
//
//   - [State]: vector of generalized coordinates and velocities
//   - [Control]: vector of actuator commands
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator
package dynamo
