package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/infrastructure/resilience"
)

const classifyOperation = "ollama.classify_room"

// ErrUnrecognizedAnswer reports a model reply outside the class vocabularies.
var ErrUnrecognizedAnswer = errors.New("unrecognized model answer")

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Model() string {
	return c.model
}

type VisionClassifierOptions struct {
	// ExtendedReasoning asks the model for a longer per-feature justification.
	ExtendedReasoning bool
	Executor          *resilience.Executor
	Now               func() time.Time
}

// VisionClassifier sends a room photo to a multimodal model and maps the
// answer onto the closed size and workload vocabularies.
type VisionClassifier struct {
	client   *Client
	extended bool
	executor *resilience.Executor
	now      func() time.Time
}

func NewVisionClassifier(client *Client, opts VisionClassifierOptions) *VisionClassifier {
	executor := opts.Executor
	if executor == nil {
		executor = resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1, BreakerEnabled: false})
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &VisionClassifier{
		client:   client,
		extended: opts.ExtendedReasoning,
		executor: executor,
		now:      now,
	}
}

type visionAnswer struct {
	SizeClass     string         `json:"size_class"`
	WorkloadClass string         `json:"workload_class"`
	Confidence    float64        `json:"confidence"`
	Reasoning     string         `json:"reasoning"`
	Features      map[string]any `json:"features"`
}

func (v *VisionClassifier) ClassifyRoom(ctx context.Context, image []byte, roomName string) (domain.Classification, error) {
	if len(image) == 0 {
		return domain.Classification{}, domain.InvalidInput(classifyOperation, "image is empty")
	}

	request := map[string]any{
		"model":  v.client.model,
		"prompt": buildRoomPrompt(roomName, v.extended),
		"images": []string{base64.StdEncoding.EncodeToString(image)},
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": 0.3,
		},
	}

	raw, err := resilience.Call(ctx, v.executor, classifyOperation, func(callCtx context.Context) (string, error) {
		return v.client.generate(callCtx, request)
	}, classifyOllamaError)
	if err != nil {
		return domain.Classification{}, wrapTemporaryIfNeeded(classifyOperation, err)
	}

	return v.parseAnswer(raw)
}

func (v *VisionClassifier) parseAnswer(raw string) (domain.Classification, error) {
	var answer visionAnswer
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &answer); err != nil {
		return domain.Classification{}, fmt.Errorf("parse room classification json: %w", err)
	}

	// Parse errors carry ErrInvalidInput, which describes a client mistake.
	// An off-vocabulary answer is a classifier failure instead.
	size, err := domain.ParseSizeClass(answer.SizeClass)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: size_class %q", ErrUnrecognizedAnswer, answer.SizeClass)
	}
	workload, err := domain.ParseWorkloadClass(answer.WorkloadClass)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: workload_class %q", ErrUnrecognizedAnswer, answer.WorkloadClass)
	}

	features := answer.Features
	if features == nil {
		features = map[string]any{}
	}

	return domain.Classification{
		Size:         size,
		Workload:     workload,
		Confidence:   domain.ClampConfidence(answer.Confidence),
		Reasoning:    strings.TrimSpace(answer.Reasoning),
		Features:     features,
		Model:        v.client.model,
		ClassifiedAt: v.now(),
	}, nil
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
