// Package workspace manages the directories a build writes into: the
// staging tree that is promoted to the output root on success, and scratch
// space for artifacts that are never shipped.
package workspace
