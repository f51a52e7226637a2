/*
Package websocket provides a channel for the IPC client over a single
gorilla/websocket connection. Invokes are written as JSON requests carrying a
uuid; the read loop routes replies back by id and hands every other message to
the push listeners as a frame.
*/
package websocket
