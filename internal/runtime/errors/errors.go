package errors

import sterrors "errors"

var (
	ErrServiceRequired    = sterrors.New("traitflow: dispatcher service is required")
	ErrHandlerRequired    = sterrors.New("traitflow: handler function is required")
	ErrSchemaRequired     = sterrors.New("traitflow: trait schema is required")
	ErrTraitNotRegistered = sterrors.New("traitflow: trait is not registered")
	ErrUnknownCommand     = sterrors.New("traitflow: command is not declared by the trait")
	ErrUnknownEvent       = sterrors.New("traitflow: event is not declared by the trait")
	ErrPublisherRequired  = sterrors.New("traitflow: publisher is required")
	ErrTimeoutRequired    = sterrors.New("traitflow: dispatch timeout is required")
	ErrPayloadRequired    = sterrors.New("traitflow: payload is required")
	ErrConfigRequired     = sterrors.New("traitflow: config is required")
	ErrLoggerRequired     = sterrors.New("traitflow: logger is required")
	ErrCommandIDRequired  = sterrors.New("traitflow: command id is required")
	ErrTraitRegistered    = sterrors.New("traitflow: trait already registered for this identity")
)
