// Package scan accumulates polar range samples into a persistent raster.
//
// A Projector maps (angle, distance) samples onto pixel coordinates around a
// fixed origin. A ScanBuffer keeps the most recent samples in a bounded FIFO
// window, draws a trail segment from each point to the next, and erases the
// segment a point contributed once that point is evicted, so the surface only
// ever shows the current window.
//
// A ScanBuffer has a single writer. Observers receive a private copy of the
// surface on every update.
package scan
