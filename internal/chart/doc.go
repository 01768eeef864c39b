// Package chart describes figures of date series, fitted lines, shaded
// regions and numbered events, and renders them to PNG with gonum/plot.
//
// A Figure is a grid of Panels. Panels with Time set take X values in Unix
// seconds (see TimeX and DateLine) and show month ticks; other panels plot
// against plain numbers such as days from a peak (see OffsetLine).
package chart
