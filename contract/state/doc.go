// Package state describes the capability an observable-state container offers to
// the synchronization effects: a key, current-value snapshots that distinguish
// the default, self-setters and change notification.
package state
