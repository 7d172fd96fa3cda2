package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/gavelflow/gavel/model/types"
)

const name = "research"

const defaultEndpoint = "https://en.wikipedia.org/w/rest.php/v1/search/page"

// Service answers factual queries against the Wikipedia search REST API.
// It needs no API key, which keeps investigation teams runnable out of the
// box; a custom endpoint supports tests and alternative mirrors.
type Service struct {
	endpoint string
	client   *http.Client
	limit    int
}

// New creates a research service with a modest timeout.
func New() *Service {
	return &Service{
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		limit:    5,
	}
}

// NewWithClient creates a research service using the supplied endpoint and
// HTTP client.
func NewWithClient(endpoint string, client *http.Client) *Service {
	ret := New()
	if endpoint != "" {
		ret.endpoint = endpoint
	}
	if client != nil {
		ret.client = client
	}
	return ret
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "search",
			Description: "Searches an external knowledge source and returns matching article snippets",
			Input:       reflect.TypeOf(&SearchInput{}),
			Output:      reflect.TypeOf(&SearchOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "search":
		return s.search, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

// SearchInput defines parameters for an external knowledge query
type SearchInput struct {
	Query string `json:"query" required:"true" description:"Search query"`
}

// Result is a single search match
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchOutput contains search matches
type SearchOutput struct {
	Query   string    `json:"query"`
	Results []*Result `json:"results,omitempty"`
}

// Search queries the knowledge source, retrying with backoff on 429.
func (s *Service) Search(ctx context.Context, input *SearchInput, output *SearchOutput) error {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return fmt.Errorf("search requires a query")
	}
	output.Query = query

	endpoint := fmt.Sprintf("%s?q=%s&limit=%d", s.endpoint, url.QueryEscape(query), s.limit)

	var resp *http.Response
	delay := 1 * time.Second
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err = s.client.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		// Back off and retry on 429, doubling the delay each time up to 30s.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("research http %d", resp.StatusCode)
	}

	var decoded struct {
		Pages []struct {
			Title   string `json:"title"`
			Excerpt string `json:"excerpt"`
		} `json:"pages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to decode search response: %w", err)
	}
	for _, page := range decoded.Pages {
		output.Results = append(output.Results, &Result{
			Title:   page.Title,
			Snippet: cleanMarkup(page.Excerpt),
		})
		if len(output.Results) >= s.limit {
			break
		}
	}
	return nil
}

// cleanMarkup strips the highlight spans the search API embeds in excerpts.
func cleanMarkup(s string) string {
	s = strings.ReplaceAll(s, `<span class="searchmatch">`, "")
	s = strings.ReplaceAll(s, "</span>", "")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&amp;", "&")
	return strings.TrimSpace(s)
}

func (s *Service) search(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*SearchInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*SearchOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.Search(ctx, input, output)
}
