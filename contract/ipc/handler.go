package ipc

// MessageHandler receives the value carried for one topic of an inbound envelope.
// Handlers are invoked synchronously by the dispatcher and should return quickly.
type MessageHandler func(val any)

// ListenKey identifies one subscription. It is returned by Subscribe and is the
// only way to remove that subscription again.
type ListenKey struct {
	Key string
	ID  string
}
