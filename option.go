package gavel

import (
	"github.com/viant/afs/storage"

	"github.com/gavelflow/gavel/llm"
	"github.com/gavelflow/gavel/model/types"
	"github.com/gavelflow/gavel/runtime/execution"
	"github.com/gavelflow/gavel/runtime/runner"
	"github.com/gavelflow/gavel/service/dao"
	"github.com/gavelflow/gavel/service/dao/team"
	"github.com/gavelflow/gavel/service/event"
	"github.com/gavelflow/gavel/service/invoker"
	"github.com/gavelflow/gavel/tracing"
	"github.com/viant/x"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the gavel service
type Option func(s *Service)

// WithExtensionTypes sets the extension types
func WithExtensionTypes(types ...*x.Type) Option {
	return func(s *Service) {
		s.extensionTypes = types
	}
}

// WithExtensionServices registers additional tool services
func WithExtensionServices(services ...types.Service) Option {
	return func(s *Service) {
		s.extensionServices = services
	}
}

// WithModels sets the model registry
func WithModels(models *llm.Registry) Option {
	return func(s *Service) {
		s.models = models
	}
}

// WithModel registers a model client under the given name
func WithModel(name string, model llm.Model) Option {
	return func(s *Service) {
		if s.namedModels == nil {
			s.namedModels = map[string]llm.Model{}
		}
		s.namedModels[name] = model
	}
}

// WithModelConfigs registers model clients built from configurations
func WithModelConfigs(configs ...*llm.Config) Option {
	return func(s *Service) {
		s.modelConfigs = append(s.modelConfigs, configs...)
	}
}

func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.eventService = service
	}
}

// WithInvokerOptions lets the caller supply additional options passed to
// invoker.New (e.g. an invocation listener).
func WithInvokerOptions(opts ...invoker.Option) Option {
	return func(s *Service) {
		s.invokerOptions = append(s.invokerOptions, opts...)
	}
}

// WithTeamDAO sets the team DAO
func WithTeamDAO(dao *team.Service) Option {
	return func(s *Service) {
		s.teamDAO = dao
	}
}

// WithRunDAO sets the run DAO
func WithRunDAO(dao dao.Service[string, execution.Run]) Option {
	return func(s *Service) {
		s.runtime.runDAO = dao
	}
}

// WithTeamBaseURL sets the base URL relative team locations resolve against
func WithTeamBaseURL(url string) Option {
	return func(s *Service) {
		s.teamBaseURL = url
	}
}

// WithTeamFsOptions sets team file system options
func WithTeamFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.teamFsOptions = options
	}
}

// WithStorageBaseURL sets the base URL relative report locations resolve
// against.
func WithStorageBaseURL(url string) Option {
	return func(s *Service) {
		s.storageBaseURL = url
	}
}

// WithAppendOnlyKeys overrides the session keys the state tool refuses to
// overwrite.
func WithAppendOnlyKeys(keys ...string) Option {
	return func(s *Service) {
		s.appendOnlyKeys = keys
	}
}

// WithRunnerConfig sets the runner configuration
func WithRunnerConfig(config runner.Config) Option {
	return func(s *Service) {
		s.runnerConfig = config
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The function is
// safe to call multiple times - the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter. This enables
// integrations with exporters other than the built-in stdout exporter, for example OTLP, Jaeger or
// Zipkin. The function is safe to call multiple times - the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
