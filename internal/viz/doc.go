// Package viz renders a population to the terminal.
//
// Bodies are projected onto a braille [Canvas], two by four dots per cell.
// Three dimensional populations go through a [Camera] first. [Model] is a
// Bubble Tea program that steps a simulator and redraws on every tick.
//
// # Key Bindings
//
//	Space   - Pause/Resume
//	R       - Reset to the initial population
//	F       - Toggle automatic framing
//	+/-     - Zoom
//	Arrows  - Rotate the camera (3D only)
//	[ ]     - Fewer/more steps per frame
//	T       - Cycle color themes
//	Q       - Quit
package viz
