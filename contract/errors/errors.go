package errors

// Error codes for the ipc contracts. Keep stable; used across adapters, the bridge and effects.
const (
	ErrCodeNotConnected         = "ipcsync.not_connected"
	ErrCodeInvokeFailed         = "ipcsync.invoke_failed"
	ErrCodeRemote               = "ipcsync.remote_error"
	ErrCodeValidationFailed     = "ipcsync.validation_failed"
	ErrCodeDecodeFailed         = "ipcsync.decode_failed"
	ErrCodeReadOnly             = "ipcsync.read_only"
	ErrCodeSerializationFailed  = "ipcsync.serialization_failed"
	ErrCodeMalformedMessage     = "ipcsync.malformed_message"
	ErrCodeUnhandledMessage     = "ipcsync.unhandled_message"
	ErrCodeListenFailed         = "ipcsync.listen_failed"
	ErrCodeConfigurationInvalid = "ipcsync.configuration_invalid"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrNotConnected         = Code(ErrCodeNotConnected)
	ErrInvokeFailed         = Code(ErrCodeInvokeFailed)
	ErrRemote               = Code(ErrCodeRemote)
	ErrValidationFailed     = Code(ErrCodeValidationFailed)
	ErrDecodeFailed         = Code(ErrCodeDecodeFailed)
	ErrReadOnly             = Code(ErrCodeReadOnly)
	ErrSerializationFailed  = Code(ErrCodeSerializationFailed)
	ErrMalformedMessage     = Code(ErrCodeMalformedMessage)
	ErrUnhandledMessage     = Code(ErrCodeUnhandledMessage)
	ErrListenFailed         = Code(ErrCodeListenFailed)
	ErrConfigurationInvalid = Code(ErrCodeConfigurationInvalid)
)
