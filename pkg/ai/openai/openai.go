package openai

import (
	"sync"

	"github.com/quarrylabs/graphmill/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

// Client implements ai.Service against an OpenAI-compatible API. Separate
// underlying clients are kept for chat and embedding endpoints so mixed
// deployments (hosted chat, local embeddings) work out of the box.
type Client struct {
	completionModel string
	embeddingModel  string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// ClientParams configures a new Client. ChatURL and EmbeddingURL may be
// empty to use the default OpenAI endpoint.
type ClientParams struct {
	CompletionModel string
	EmbeddingModel  string

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	MaxConcurrentRequests int64
}

// NewClient creates a Client configured with the given parameters.
func NewClient(params ClientParams) *Client {
	concurrency := params.MaxConcurrentRequests
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Client{
		completionModel: params.CompletionModel,
		embeddingModel:  params.EmbeddingModel,

		reqLock: semaphore.NewWeighted(concurrency),

		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
