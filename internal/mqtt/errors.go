package mqtt

import "codeberg.org/mutker/fridgebench/internal/errors"

var (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidBroker = errors.RegisterKind("mqtt_invalid_broker", errors.ErrValidation)
	ErrInvalidTopic  = errors.RegisterKind("mqtt_invalid_topic", errors.ErrValidation)

	ErrNotConnected   = errors.RegisterKind("mqtt_not_connected", errors.ErrConnection)
	ErrPublishFailed  = errors.RegisterKind("mqtt_publish_failed", errors.ErrConnection)
	ErrPublishTimeout = errors.RegisterKind("mqtt_publish_timeout", errors.ErrConnection)
	ErrEncodePayload  = errors.RegisterKind("mqtt_encode_payload_failed", errors.ErrInternal)
)
