// Package viz renders derivative tables, error sparklines and error plots
// for the terminal.
//
//   - [Table]: bordered table with a styled header row
//   - [Sparkline]: one-line sketch of a series
//   - [PlotErrors]: asciigraph plot of log10 errors along a sweep
package viz
