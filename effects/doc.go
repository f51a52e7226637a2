/*
Package effects binds observable state to host-persisted storage.

Each strategy returns a state.Effect that performs the initial load, writes local
changes back to the host when their encoded form changes, optionally applies host
pushes, and removes its push subscription on teardown. Values applied from the host
are recorded in a per-binding ledger before they reach the observable, so they are
never written back.
*/
package effects
