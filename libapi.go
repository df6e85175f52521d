package traitflow

import (
	runtimepkg "github.com/MShaffar19/traitflow/internal/runtime"
	configpkg "github.com/MShaffar19/traitflow/internal/runtime/config"
	errspkg "github.com/MShaffar19/traitflow/internal/runtime/errors"
	idspkg "github.com/MShaffar19/traitflow/internal/runtime/ids"
	jsoncodec "github.com/MShaffar19/traitflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/MShaffar19/traitflow/internal/runtime/logging"
	metadatapkg "github.com/MShaffar19/traitflow/internal/runtime/metadata"
	schemapkg "github.com/MShaffar19/traitflow/internal/runtime/schema"
	tlvpkg "github.com/MShaffar19/traitflow/internal/runtime/tlv"
	transportpkg "github.com/MShaffar19/traitflow/internal/runtime/transport"
	validatepkg "github.com/MShaffar19/traitflow/internal/runtime/validate"
	versionpkg "github.com/MShaffar19/traitflow/internal/runtime/version"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Transport           = transportpkg.Transport
	TransportFactory    = transportpkg.Factory
	Capabilities        = transportpkg.Capabilities

	// Schema model
	TraitSchema       = schemapkg.TraitSchema
	TraitKey          = schemapkg.Key
	MessageDef        = schemapkg.MessageDef
	PropertyDef       = schemapkg.PropertyDef
	EnumDef           = schemapkg.EnumDef
	EnumItem          = schemapkg.EnumItem
	CommandDef        = schemapkg.CommandDef
	EventDef          = schemapkg.EventDef
	NumberConstraints = schemapkg.NumberConstraints
	StringConstraints = schemapkg.StringConstraints
	PropertyType      = schemapkg.Type
	SchemaError       = schemapkg.SchemaError

	// Schema documents, the JSON authoring form
	Document         = schemapkg.Document
	PropertyDocument = schemapkg.PropertyDocument
	MessageDocument  = schemapkg.MessageDocument
	EnumDocument     = schemapkg.EnumDocument
	EnumItemDocument = schemapkg.EnumItemDocument
	CommandDocument  = schemapkg.CommandDocument
	EventDocument    = schemapkg.EventDocument

	// Runtime values
	Value    = schemapkg.Value
	MapEntry = schemapkg.MapEntry

	// Validation and codec errors
	ConstraintViolation = validatepkg.ConstraintViolation
	ProtocolError       = tlvpkg.ProtocolError

	// Dispatch
	CommandHandlerFunc = runtimepkg.CommandHandlerFunc
	EventHandlerFunc   = runtimepkg.EventHandlerFunc
	DispatchError      = runtimepkg.DispatchError
	DispatchState      = runtimepkg.DispatchState
	DispatchReason     = runtimepkg.DispatchReason
	DispatchStats      = runtimepkg.DispatchStats
	DispatchContext    = runtimepkg.DispatchContext
	DispatchHooks      = runtimepkg.DispatchHooks
	TraitInstance      = runtimepkg.TraitInstance

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	HandlerInfo  = runtimepkg.HandlerInfo
	HandlerStats = runtimepkg.HandlerStats

	// Schema evolution
	CompatibilityReport = versionpkg.Report
	Incompatibility     = versionpkg.Incompatibility
	Verdict             = versionpkg.Verdict

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger
)

var (
	NewService     = runtimepkg.NewService
	ValidateConfig = configpkg.ValidateConfig

	NewTraitInstance = runtimepkg.NewTraitInstance

	// Schema loading
	LoadSchema  = schemapkg.Load
	ParseSchema = schemapkg.Parse

	// Value constructors
	Null        = schemapkg.Null
	Bool        = schemapkg.Bool
	Int         = schemapkg.Int
	Uint        = schemapkg.Uint
	Number      = schemapkg.Number
	String      = schemapkg.String
	Bytes       = schemapkg.Bytes
	Enum        = schemapkg.Enum
	UnknownEnum = schemapkg.UnknownEnum
	Struct      = schemapkg.Struct
	Map         = schemapkg.Map

	// Wire codec
	EncodeMessage = tlvpkg.EncodeMessage
	DecodeMessage = tlvpkg.DecodeMessage

	// Schema evolution
	CheckCompatibility = versionpkg.Check

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RetryMiddleware         = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware   = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	// Dispatch lifecycle hooks
	LoggingHooks = runtimepkg.LoggingHooks
	MetricsHooks = runtimepkg.MetricsHooks

	// Transport capabilities
	GetCapabilities = transportpkg.GetCapabilities

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrServiceRequired    = errspkg.ErrServiceRequired
	ErrHandlerRequired    = errspkg.ErrHandlerRequired
	ErrSchemaRequired     = errspkg.ErrSchemaRequired
	ErrTraitNotRegistered = errspkg.ErrTraitNotRegistered
	ErrTraitRegistered    = errspkg.ErrTraitRegistered
	ErrUnknownCommand     = errspkg.ErrUnknownCommand
	ErrUnknownEvent       = errspkg.ErrUnknownEvent
	ErrPublisherRequired  = errspkg.ErrPublisherRequired
	ErrTimeoutRequired    = errspkg.ErrTimeoutRequired
	ErrConfigRequired     = errspkg.ErrConfigRequired
	ErrLoggerRequired     = errspkg.ErrLoggerRequired

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
)

// Dispatch lifecycle states.
const (
	StateIssued    = runtimepkg.StateIssued
	StateCompleted = runtimepkg.StateCompleted
	StateFailed    = runtimepkg.StateFailed
	StateTimedOut  = runtimepkg.StateTimedOut
	StateCancelled = runtimepkg.StateCancelled
)

// Dispatch failure reasons.
const (
	ReasonTimeout       = runtimepkg.ReasonTimeout
	ReasonCancelled     = runtimepkg.ReasonCancelled
	ReasonNoHandler     = runtimepkg.ReasonNoHandler
	ReasonRemoteFailure = runtimepkg.ReasonRemoteFailure
)

// Compatibility verdicts.
const (
	Compatible           = versionpkg.Compatible
	IncompatibleBreaking = versionpkg.IncompatibleBreaking
)

// Property types, as declared in schema documents.
const (
	TypeBool   = schemapkg.TypeBool
	TypeInt    = schemapkg.TypeInt
	TypeUint   = schemapkg.TypeUint
	TypeNumber = schemapkg.TypeNumber
	TypeString = schemapkg.TypeString
	TypeBytes  = schemapkg.TypeBytes
	TypeEnum   = schemapkg.TypeEnum
	TypeStruct = schemapkg.TypeStruct
	TypeMap    = schemapkg.TypeMap
)

// Transport names understood by the default factory.
const (
	TransportChannel  = transportpkg.NameChannel
	TransportKafka    = transportpkg.NameKafka
	TransportNATS     = transportpkg.NameNATS
	TransportRabbitMQ = transportpkg.NameRabbitMQ
)
