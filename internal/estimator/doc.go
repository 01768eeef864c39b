// Package estimator derives fatal-infection series from death registrations
// and fits log-linear trends to them.
//
// Estimate attributes every death to the day of infection by shifting it back
// a fixed lag, smooths the weekend gaps with a centred moving average and
// rescales the result so that no deaths are lost to the smoothing. The
// rescaling is checked: if the corrected total strays from the raw total by
// more than the tolerance, Estimate fails instead of returning a series.
//
// FitSegment fits a straight line in log10 space over a closed date range,
// which is an exponential growth or decay model in linear space.
package estimator
