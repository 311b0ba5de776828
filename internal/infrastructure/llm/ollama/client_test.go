package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/infrastructure/resilience"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestClassifier(serverURL string, exec *resilience.Executor) *VisionClassifier {
	return NewVisionClassifier(New(serverURL, "llava:7b", 5*time.Second), VisionClassifierOptions{
		Executor: exec,
		Now:      func() time.Time { return fixedNow },
	})
}

func TestClassifyRoomSendsImageAndParsesAnswer(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		answer := "Sure:\n```json\n{\"size_class\":\"Extra Large\",\"workload_class\":\"heavy\",\"confidence\":1.4," +
			"\"reasoning\":\" packed garage \",\"features\":{\"clutter_density\":8,\"stairs_required\":false}}\n```"
		_ = json.NewEncoder(w).Encode(map[string]string{"response": answer})
	}))
	defer server.Close()

	got, err := newTestClassifier(server.URL, nil).ClassifyRoom(context.Background(), image, "Garage")
	if err != nil {
		t.Fatalf("ClassifyRoom() error = %v", err)
	}

	if got.Size != domain.SizeExtraLarge || got.Workload != domain.WorkloadHeavy {
		t.Fatalf("unexpected classes: %s/%s", got.Size, got.Workload)
	}
	if got.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %v", got.Confidence)
	}
	if got.Reasoning != "packed garage" || got.Model != "llava:7b" || !got.ClassifiedAt.Equal(fixedNow) {
		t.Fatalf("unexpected metadata: %+v", got)
	}
	if got.Features["clutter_density"] != float64(8) {
		t.Fatalf("expected features to be kept, got %v", got.Features)
	}

	if payload["model"] != "llava:7b" || payload["format"] != "json" || payload["stream"] != false {
		t.Fatalf("unexpected request payload: %v", payload)
	}
	images, _ := payload["images"].([]any)
	if len(images) != 1 || images[0] != base64.StdEncoding.EncodeToString(image) {
		t.Fatalf("expected base64 image in payload, got %v", payload["images"])
	}
	prompt, _ := payload["prompt"].(string)
	if !strings.Contains(prompt, `"Garage"`) || !strings.Contains(prompt, "extra_large") {
		t.Fatalf("unexpected prompt: %s", prompt)
	}
}

func TestClassifyRoomRejectsOffVocabularyAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"response": `{"size_class":"huge","workload_class":"light","confidence":0.9}`,
		})
	}))
	defer server.Close()

	_, err := newTestClassifier(server.URL, nil).ClassifyRoom(context.Background(), []byte("img"), "Attic")
	if !errors.Is(err, ErrUnrecognizedAnswer) {
		t.Fatalf("expected ErrUnrecognizedAnswer, got %v", err)
	}
	if domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("model answer must not be reported as client input error: %v", err)
	}
}

func TestClassifyRoomRetriesServerErrorsAndMarksTemporary(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
	})
	_, err := newTestClassifier(server.URL, exec).ClassifyRoom(context.Background(), []byte("img"), "Kitchen")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if !strings.Contains(err.Error(), "model loading") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestClassifyRoomDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model 'llava:7b' not found", http.StatusNotFound)
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
	})
	_, err := newTestClassifier(server.URL, exec).ClassifyRoom(context.Background(), []byte("img"), "Kitchen")
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected HTTPStatusError 404, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("404 must not be temporary: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestBuildRoomPromptExtendedReasoning(t *testing.T) {
	short := buildRoomPrompt("", false)
	long := buildRoomPrompt("Den", true)
	if !strings.Contains(short, "unnamed room") {
		t.Fatalf("expected placeholder name, got %s", short)
	}
	if strings.Contains(short, "justifies each class") || !strings.Contains(long, "justifies each class") {
		t.Fatalf("extended reasoning flag not reflected in prompt")
	}
}
