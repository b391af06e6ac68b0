// Package viz shows a viewer in the terminal.
//
// [Renderer] draws mesh wireframes into a braille [Canvas]; [App] hosts a
// viewer in a Bubble Tea program and fires its frames from the program tick.
//
// # Key Bindings
//
//	Space       - reset the world
//	P           - pause / resume
//	M           - toggle manual control
//	Q/E/A/D/W/S - manual actuator control
//	Arrows      - orbit the camera
//	+/-         - zoom
//	Ctrl+C      - quit
package viz
