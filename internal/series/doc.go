// Package series provides date-indexed daily series and frames of named
// columns. Every series has a contiguous daily index; missing observations
// are NaN and are skipped by aggregates.
package series
