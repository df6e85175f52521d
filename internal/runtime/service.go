package runtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"

	configpkg "github.com/MShaffar19/traitflow/internal/runtime/config"
	errspkg "github.com/MShaffar19/traitflow/internal/runtime/errors"
	loggingpkg "github.com/MShaffar19/traitflow/internal/runtime/logging"
	"github.com/MShaffar19/traitflow/internal/runtime/schema"
	transportpkg "github.com/MShaffar19/traitflow/internal/runtime/transport"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// ServiceDependencies holds the optional collaborators the Service can use.
// Leave fields nil/zero to get the defaults.
type ServiceDependencies struct {
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	TransportFactory          transportpkg.Factory
	Hooks                     DispatchHooks
}

// CommandHandlerFunc serves one trait command. The request arrived decoded
// and validated; the returned value is encoded against the command's
// response definition. A returned error settles the caller's dispatch as a
// remote failure.
type CommandHandlerFunc func(ctx context.Context, request schema.Value) (schema.Value, error)

// EventHandlerFunc consumes one trait event.
type EventHandlerFunc func(ctx context.Context, payload schema.Value) error

// traitRegistration binds a loaded schema to the application handlers that
// serve its commands.
type traitRegistration struct {
	schema *schema.TraitSchema

	mu              sync.RWMutex
	commandHandlers map[uint32]CommandHandlerFunc
}

func (r *traitRegistration) handler(commandID uint32) CommandHandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commandHandlers[commandID]
}

// Service wires a watermill router, publisher, subscriber, and middleware
// chain around the trait registry. Register traits and handlers before
// calling Start.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	traits   map[schema.Key]*traitRegistration
	traitsMu sync.RWMutex

	pending   map[string]*pendingCommand
	pendingMu sync.Mutex

	handlers   []*HandlerInfo
	handlersMu sync.RWMutex

	dispatchStats   map[statKey]*DispatchStats
	dispatchStatsMu sync.Mutex

	hooks DispatchHooks

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex
}

// NewService constructs a Service for the supplied configuration.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	if conf == nil {
		panic(errspkg.ErrConfigRequired)
	}
	if log == nil {
		panic(errspkg.ErrLoggerRequired)
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating trait dispatcher",
		loggingpkg.LogFields{
			"pubsub_system": conf.PubSubSystem,
			"config":        conf,
		})

	s := &Service{
		Conf:          conf,
		Logger:        log,
		traits:        make(map[schema.Key]*traitRegistration),
		pending:       make(map[string]*pendingCommand),
		dispatchStats: make(map[statKey]*DispatchStats),
		hooks:         deps.Hooks,
	}

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		panic(err)
	}

	s.publisher = transport.Publisher
	s.subscriber = transport.Subscriber

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		panic(err)
	}

	s.router = router
	s.router.AddPlugin(plugin.SignalsHandler)

	s.registerConfiguredMiddlewares(deps)

	return s
}

// Start runs the underlying watermill router until the provided context is
// cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.startHTTPServers()
	return routerRun(s.router, ctx)
}

// Running returns a channel closed once the router is running, so tests and
// embedders can wait for handler readiness before dispatching.
func (s *Service) Running() <-chan struct{} {
	return s.router.Running()
}

// RegisterTrait installs a loaded trait schema: the command-serving handler
// on the trait's command topic and the completion consumer feeding local
// dispatches. Commands without a bound handler complete with a no-handler
// status. Register all traits before Start.
func (s *Service) RegisterTrait(ts *schema.TraitSchema) error {
	if ts == nil {
		return errspkg.ErrSchemaRequired
	}
	key := ts.Key()

	s.traitsMu.Lock()
	if _, dup := s.traits[key]; dup {
		s.traitsMu.Unlock()
		return errspkg.ErrTraitRegistered
	}
	reg := &traitRegistration{
		schema:          ts,
		commandHandlers: make(map[uint32]CommandHandlerFunc),
	}
	s.traits[key] = reg
	s.traitsMu.Unlock()

	s.addNoPublisherHandler(
		fmt.Sprintf("%s-command-server", ts.Name),
		commandTopic(key),
		s.serveCommand(reg),
	)
	s.addNoPublisherHandler(
		fmt.Sprintf("%s-completion-consumer", ts.Name),
		completionTopic(key),
		s.handleCompletion,
	)

	return nil
}

// RegisterCommandHandler binds application logic to one command of a
// registered trait.
func (s *Service) RegisterCommandHandler(key schema.Key, commandID uint32, fn CommandHandlerFunc) error {
	if fn == nil {
		return errspkg.ErrHandlerRequired
	}
	reg, ok := s.trait(key)
	if !ok {
		return errspkg.ErrTraitNotRegistered
	}
	if _, ok := reg.schema.Command(commandID); !ok {
		return errspkg.ErrUnknownCommand
	}

	reg.mu.Lock()
	reg.commandHandlers[commandID] = fn
	reg.mu.Unlock()
	return nil
}

// Trait returns the schema registered for the given identity.
func (s *Service) Trait(key schema.Key) (*schema.TraitSchema, bool) {
	reg, ok := s.trait(key)
	if !ok {
		return nil, false
	}
	return reg.schema, true
}

func (s *Service) trait(key schema.Key) (*traitRegistration, bool) {
	s.traitsMu.RLock()
	defer s.traitsMu.RUnlock()
	reg, ok := s.traits[key]
	return reg, ok
}

func (s *Service) addNoPublisherHandler(name, topic string, fn message.NoPublishHandlerFunc) {
	info := &HandlerInfo{Name: name, ConsumeTopic: topic, Stats: newHandlerStats()}
	s.handlersMu.Lock()
	s.handlers = append(s.handlers, info)
	s.handlersMu.Unlock()

	s.router.AddNoPublisherHandler(
		name,
		topic,
		s.subscriber,
		wrapHandlerWithStats(fn, info.Stats),
	)
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares(s.Conf)
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			panic(fmt.Sprintf("failed to register middleware %s: %v", name, err))
		}
	}
}

func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		addr := fmt.Sprintf(":%d", port)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}
