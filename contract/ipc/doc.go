/*
Package ipc holds the transport-neutral contracts between the renderer core and
the host process: the request/response and push interfaces implemented by
adapters, the subscription handle types, and the JSON wire shapes shared by the
multiplexing transports.
*/
package ipc
