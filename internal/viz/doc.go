// Package viz renders tracking runs in the terminal and to SVG.
//
//   - [Canvas]: Braille pixel canvas addressed in field coordinates
//   - [Series], [Compare]: time-series charts
//   - [PathSVG]: reference vs. driven path as an SVG document
package viz
