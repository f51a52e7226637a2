package ipc

import "encoding/json"

// Well-known channel names served by the host.
const (
	ChannelReadFromStorage = "read-from-storage"
	ChannelWriteToStorage  = "write-to-storage"

	// DefaultPushTopic is the name of the host's async stream.
	DefaultPushTopic = "async-data"
)

// Request is the wire form of one invoke on transports that multiplex
// requests over a shared connection.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Channel string          `json:"channel"`
	Arg     json.RawMessage `json:"arg,omitempty"`
}

// Reply answers a Request. A non-empty Error means the host rejected the call.
type Reply struct {
	ID     string          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Frame is the shape of one push on the async stream. Message holds an envelope
// whose keys are topics.
type Frame struct {
	Message json.RawMessage `json:"message"`
}

// MarshalFrame wraps an envelope into a push frame.
func MarshalFrame(envelope any) ([]byte, error) {
	msg, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Frame{Message: msg})
}

// MarshalArg encodes an invoke argument. A nil arg yields a nil payload.
func MarshalArg(arg any) (json.RawMessage, error) {
	if arg == nil {
		return nil, nil
	}

	return json.Marshal(arg)
}

// UnmarshalResult decodes a reply payload into a generic value. An empty payload
// decodes to nil.
func UnmarshalResult(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}

	return v, nil
}
