// Package watch provides the file-watching half of hotswap's reload loop.
// It monitors build output directories recursively, folds raw change
// notifications into path sets, and debounces bursts of changes so that a
// recompilation triggers a single restart.
package watch
