/*
Package rabbitmq provides a RabbitMQ channel for the IPC client.
Invokes are published as RPC requests and answered through direct reply-to,
matched by correlation id. Push frames are consumed from a queue, and an
optional cipc.HeaderPropagator injects context into request headers.
*/
package rabbitmq
