// Package devmode wires the change watcher, the debouncer and the
// supervisor into a development session: whenever the build output under
// one of the watch roots settles after a change, the application is
// restarted inside a fresh reload boundary.
package devmode
