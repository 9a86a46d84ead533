// Package resource bounds what a set of indexes may consume together: the
// memory reserved for their graphs, the number of batch calls running at
// once, and the byte rate of saves and loads.
//
// A nil *Controller imposes no limits.
package resource
