package team

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gavelflow/gavel/model"
	"github.com/gavelflow/gavel/model/graph"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// Service loads team definitions from YAML documents addressed by afs URLs,
// so definitions can live on the local file system, in an embedded FS or any
// other storage afs supports.
type Service struct {
	fs        afs.Service
	baseURL   string
	fsOptions []storage.Option
}

// Load loads a team definition from YAML at the specified URL. A relative
// URL is resolved against the service base URL and a missing extension
// defaults to .yaml. ${env.KEY} expressions in the document are expanded
// before decoding.
func (s *Service) Load(ctx context.Context, URL string) (*model.Team, error) {
	if ext := filepath.Ext(URL); ext == "" {
		URL += ".yaml"
	}
	if s.baseURL != "" && url.IsRelative(URL) {
		URL = url.Join(s.baseURL, URL)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL, s.fsOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load team from %s: %w", URL, err)
	}
	team, err := s.decode(data, nameFromURL(URL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse team from %s: %w", URL, err)
	}
	team.Source = &model.Source{URL: URL}
	return team, nil
}

// DecodeYAML decodes a team definition from YAML
func (s *Service) DecodeYAML(encoded []byte) (*model.Team, error) {
	return s.decode(encoded, "")
}

func (s *Service) decode(encoded []byte, defaultName string) (*model.Team, error) {
	expanded := expandEnvExpr(string(encoded))
	team := &model.Team{}
	if err := yaml.Unmarshal([]byte(expanded), team); err != nil {
		return nil, err
	}
	if team.Root == nil {
		return nil, fmt.Errorf("team definition has no team node")
	}
	if team.Name == "" {
		if defaultName == "" {
			defaultName = generateAnonymousName()
		}
		team.Name = defaultName
	}
	assignNodeIDs(team.Root, team.Name, "")
	if issues := team.Validate(); len(issues) > 0 {
		return nil, issues[0]
	}
	return team, nil
}

// nameFromURL extracts the team name from a URL (file name without extension)
func nameFromURL(URL string) string {
	base := filepath.Base(URL)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// assignNodeIDs recursively assigns path-based IDs to nodes
func assignNodeIDs(node *graph.Node, teamName, parentID string) {
	if node == nil {
		return
	}
	if node.ID == "" {
		if node.Name != "" {
			node.ID = node.Name
		} else if parentID == "" {
			node.ID = teamName
		}
	}
	if parentID != "" {
		node.ID = parentID + "/" + node.ID
	}
	for _, child := range node.Nodes {
		assignNodeIDs(child, teamName, node.ID)
	}
}

var counter int32

func generateAnonymousName() string {
	return fmt.Sprintf("anonymous-%d", atomic.AddInt32(&counter, 1))
}

// New creates a new team definition service
func New(opts ...Option) *Service {
	ret := &Service{
		fs: afs.New(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
