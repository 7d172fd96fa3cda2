package gavel

import (
	"github.com/viant/afs/storage"

	"github.com/gavelflow/gavel/extension"
	"github.com/gavelflow/gavel/llm"
	"github.com/gavelflow/gavel/llm/gemini"
	"github.com/gavelflow/gavel/model/types"
	"github.com/gavelflow/gavel/runtime/execution"
	"github.com/gavelflow/gavel/runtime/runner"
	"github.com/gavelflow/gavel/service/dao"
	rmemory "github.com/gavelflow/gavel/service/dao/run/memory"
	"github.com/gavelflow/gavel/service/dao/team"
	"github.com/gavelflow/gavel/service/event"
	"github.com/gavelflow/gavel/service/invoker"
	"github.com/gavelflow/gavel/service/tool/control"
	"github.com/gavelflow/gavel/service/tool/research"
	"github.com/gavelflow/gavel/service/tool/state"
	tstorage "github.com/gavelflow/gavel/service/tool/storage"

	"github.com/viant/x"
)

// defaultAppendOnlyKeys names the session keys that only grow; agents gather
// evidence under them and nothing may overwrite an entry once recorded.
var defaultAppendOnlyKeys = []string{"pos_data", "neg_data"}

type Service struct {
	runtime           *Runtime
	tools             *extension.Tools
	extensionTypes    []*x.Type
	extensionServices []types.Service
	models            *llm.Registry
	namedModels       map[string]llm.Model
	modelConfigs      []*llm.Config
	eventService      *event.Service
	invokerOptions    []invoker.Option
	teamDAO           *team.Service
	teamBaseURL       string
	teamFsOptions     []storage.Option
	storageBaseURL    string
	appendOnlyKeys    []string
	runnerConfig      runner.Config
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()
	s.tools = extension.NewTools(s.extensionTypes...)
	s.tools.Register(state.New(s.appendOnlyKeys...))
	s.tools.Register(control.New())
	s.tools.Register(tstorage.New(s.storageBaseURL))
	s.tools.Register(research.New())
	for _, service := range s.extensionServices {
		s.tools.Register(service)
	}
	for name, model := range s.namedModels {
		s.models.Register(name, model)
	}
	for _, config := range s.modelConfigs {
		_ = s.RegisterModelConfig(config)
	}
	anInvoker := invoker.New(s.tools, s.invokerOptions...)
	s.runtime.tools = s.tools
	s.runtime.events = s.eventService
	s.runtime.teamDAO = s.teamDAO
	s.runtime.runner = runner.New(s.tools, anInvoker, s.models, s.runnerConfig)
}

// RegisterModelConfig builds a model client from the supplied configuration
// and registers it under its model name.
func (s *Service) RegisterModelConfig(config *llm.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	client, err := gemini.New(config)
	if err != nil {
		return err
	}
	s.models.Register(config.Model, client)
	return nil
}

func (s *Service) RegisterExtensionTypes(types ...*x.Type) {
	for i := range types {
		s.tools.Types().Register(types[i])
	}
}

func (s *Service) RegisterExtensionServices(services ...types.Service) {
	for i := range services {
		s.tools.Register(services[i])
	}
}

// Models returns the model registry.
func (s *Service) Models() *llm.Registry {
	return s.models
}

func (s *Service) Runtime() *Runtime {
	return s.runtime
}

func (s *Service) ensureBaseSetup() {
	if s.teamDAO == nil {
		s.teamDAO = team.New(team.WithBaseURL(s.teamBaseURL), team.WithFsOptions(s.teamFsOptions...))
	}
	if s.models == nil {
		s.models = llm.NewRegistry()
	}
	if s.eventService == nil {
		s.eventService, _ = event.New("memory")
	}
	if len(s.appendOnlyKeys) == 0 {
		s.appendOnlyKeys = defaultAppendOnlyKeys
	}
	if s.runtime.runDAO == nil {
		s.runtime.runDAO = rmemory.New()
	}
}

// RunDAO returns the run store.
func (s *Service) RunDAO() dao.Service[string, execution.Run] {
	return s.runtime.runDAO
}

func New(options ...Option) *Service {
	ret := &Service{runtime: &Runtime{}}
	ret.init(options)
	return ret
}
