// Package gemini implements the llm.Model contract over the Google
// Generative Language REST API with function calling.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gavelflow/gavel/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client calls the Gemini generateContent endpoint.
type Client struct {
	config *llm.Config
	client *http.Client
}

// New constructs a Gemini backed model from the declarative config.
func New(config *llm.Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config: config,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// NewWithClient constructs a Gemini model using the supplied HTTP client,
// useful for overriding the default timeout in tests.
func NewWithClient(config *llm.Config, client *http.Client) (*Client, error) {
	ret, err := New(config)
	if err != nil {
		return nil, err
	}
	ret.client = client
	return ret, nil
}

var _ llm.Model = (*Client)(nil)

type part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type functionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type request struct {
	SystemInstruction *content `json:"systemInstruction,omitempty"`
	Contents          []content `json:"contents"`
	Tools             []toolSet `json:"tools,omitempty"`
}

type toolSet struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type response struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate posts the conversation to Gemini and normalises the first
// candidate into an assistant message.
func (c *Client) Generate(ctx context.Context, genRequest *llm.GenerateRequest) (*llm.Message, error) {
	apiKey, err := c.config.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(c.encodeRequest(genRequest))
	if err != nil {
		return nil, err
	}

	baseURL := c.config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	URL := fmt.Sprintf("%s/models/%s:generateContent?key=%s", baseURL, c.config.Model, apiKey)

	var resp *http.Response
	delay := 1 * time.Second
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, URL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		// Back off and retry on 429, doubling the delay each time up to 30s.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		if decoded.Error != nil {
			return nil, fmt.Errorf("gemini http %d: %s", resp.StatusCode, decoded.Error.Message)
		}
		return nil, fmt.Errorf("gemini http %d", resp.StatusCode)
	}
	if len(decoded.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}
	return decodeMessage(decoded.Candidates[0].Content), nil
}

func (c *Client) encodeRequest(genRequest *llm.GenerateRequest) *request {
	ret := &request{}
	for _, message := range genRequest.Messages {
		switch message.Role {
		case llm.RoleSystem:
			ret.SystemInstruction = &content{Parts: []part{{Text: message.Content}}}
		case llm.RoleAssistant:
			item := content{Role: "model"}
			if message.Content != "" {
				item.Parts = append(item.Parts, part{Text: message.Content})
			}
			for _, call := range message.ToolCalls {
				item.Parts = append(item.Parts, part{FunctionCall: &functionCall{
					Name: encodeToolName(call.Name),
					Args: call.Arguments,
				}})
			}
			ret.Contents = append(ret.Contents, item)
		case llm.RoleTool:
			ret.Contents = append(ret.Contents, content{
				Role: "user",
				Parts: []part{{FunctionResponse: &functionResponse{
					Name:     encodeToolName(message.Name),
					Response: map[string]interface{}{"content": message.Content},
				}}},
			})
		default:
			ret.Contents = append(ret.Contents, content{
				Role:  "user",
				Parts: []part{{Text: message.Content}},
			})
		}
	}
	if len(genRequest.Tools) > 0 {
		set := toolSet{}
		for _, tool := range genRequest.Tools {
			set.FunctionDeclarations = append(set.FunctionDeclarations, functionDeclaration{
				Name:        encodeToolName(tool.Name),
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			})
		}
		ret.Tools = []toolSet{set}
	}
	return ret
}

func decodeMessage(item content) *llm.Message {
	message := &llm.Message{Role: llm.RoleAssistant}
	var texts []string
	for _, p := range item.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
		if p.FunctionCall != nil {
			name := decodeToolName(p.FunctionCall.Name)
			message.ToolCalls = append(message.ToolCalls, llm.ToolCall{
				ID:        name,
				Name:      name,
				Arguments: p.FunctionCall.Args,
			})
		}
	}
	message.Content = strings.Join(texts, "\n")
	return message
}

// Gemini function names may not contain dots, so "service.method" travels
// as "service__method".
func encodeToolName(name string) string {
	return strings.ReplaceAll(name, ".", "__")
}

func decodeToolName(name string) string {
	return strings.ReplaceAll(name, "__", ".")
}
