// Package supervisor owns the lifecycle of the supervised application: one
// instance at a time, each started inside a fresh reload boundary and
// stopped by a cooperative interrupt before the next one starts.
package supervisor
