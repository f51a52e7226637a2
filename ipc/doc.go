/*
Package ipc routes host messages inside the renderer and bridges requests to the host.
It coordinates a topic registry, the dispatcher that fans inbound envelopes out to it,
and a request/response bridge, while remaining decoupled from concrete transports via
the contract/ipc interfaces.
*/
package ipc
