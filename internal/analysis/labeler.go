package analysis

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/snapsearch/snap-search/internal/pkg/errors"
	"github.com/snapsearch/snap-search/internal/search"
)

// Result is the outcome of labeling a single photo.
type Result struct {
	Labels     search.AILabels
	Confidence float64
}

// Labeler produces AI labels for a photo.
type Labeler interface {
	Label(ctx context.Context, task *Task) (Result, error)
}

// StaticLabeler derives labels from the photo filename. It exists for
// development and tests, where no vision model is reachable.
type StaticLabeler struct{}

// NewStaticLabeler creates a filename-based labeler.
func NewStaticLabeler() *StaticLabeler {
	return &StaticLabeler{}
}

var staticVocab = map[string]struct {
	kind string
	term string
}{
	"beach":    {"scene", "beach"},
	"sunset":   {"scene", "sunset"},
	"mountain": {"scene", "mountain"},
	"forest":   {"scene", "forest"},
	"city":     {"scene", "city"},
	"park":     {"scene", "park"},
	"wedding":  {"scene", "wedding"},
	"party":    {"scene", "party"},
	"dog":      {"object", "dog"},
	"cat":      {"object", "cat"},
	"car":      {"object", "car"},
	"flower":   {"object", "flower"},
	"food":     {"object", "food"},
	"baby":     {"object", "baby"},
	"family":   {"object", "family"},
	"happy":    {"emotion", "happy"},
	"fun":      {"emotion", "fun"},
	"romantic": {"emotion", "romantic"},
}

func (l *StaticLabeler) Label(ctx context.Context, task *Task) (Result, error) {
	base := strings.TrimSuffix(task.PhotoID, filepath.Ext(task.PhotoID))
	if task.ImageURL != "" {
		base = strings.TrimSuffix(filepath.Base(task.ImageURL), filepath.Ext(task.ImageURL))
	}

	tokens := strings.FieldsFunc(strings.ToLower(base), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	var result Result
	seen := make(map[string]bool)
	for _, token := range tokens {
		entry, ok := staticVocab[token]
		if !ok || seen[entry.term] {
			continue
		}
		seen[entry.term] = true

		switch entry.kind {
		case "scene":
			result.Labels.Scenes = append(result.Labels.Scenes, entry.term)
		case "object":
			result.Labels.Objects = append(result.Labels.Objects, entry.term)
		case "emotion":
			result.Labels.Emotions = append(result.Labels.Emotions, entry.term)
		}
	}

	if len(seen) > 0 {
		result.Confidence = 0.5
	}
	return result, nil
}

// OpenAILabeler labels photos with an OpenAI-compatible vision model.
type OpenAILabeler struct {
	client *openai.Client
	model  string
}

// OpenAIConfig holds the vision labeler settings.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewOpenAILabeler creates a vision labeler.
func NewOpenAILabeler(cfg OpenAIConfig) *OpenAILabeler {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAILabeler{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

const labelPrompt = `Analyze this photo and respond with JSON only:
{"scenes": [...], "objects": [...], "emotions": [...], "confidence": 0.0-1.0}
Use single lowercase words. Scenes describe the setting, objects the
visible subjects, emotions the mood. Omit anything you are unsure of.`

// labelResponse mirrors the JSON the model is asked to produce.
type labelResponse struct {
	Scenes     []string `json:"scenes"`
	Objects    []string `json:"objects"`
	Emotions   []string `json:"emotions"`
	Confidence float64  `json:"confidence"`
}

func (l *OpenAILabeler) Label(ctx context.Context, task *Task) (Result, error) {
	if task.ImageURL == "" {
		return Result{}, apperrors.AnalysisError("task has no image URL", nil)
	}

	req := openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: labelPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: task.ImageURL,
						},
					},
				},
			},
		},
	}

	resp, err := l.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Result{}, apperrors.AnalysisError("vision model request failed", err)
	}

	if len(resp.Choices) == 0 {
		return Result{}, apperrors.AnalysisError("empty vision model response", nil)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var parsed labelResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return Result{}, apperrors.AnalysisError("parsing vision model response", err)
	}

	return Result{
		Labels: search.AILabels{
			Scenes:   normalizeLabels(parsed.Scenes),
			Objects:  normalizeLabels(parsed.Objects),
			Emotions: normalizeLabels(parsed.Emotions),
		},
		Confidence: clampConfidence(parsed.Confidence),
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (l *OpenAILabeler) HealthCheck(ctx context.Context) error {
	if _, err := l.client.ListModels(ctx); err != nil {
		return apperrors.AnalysisError("vision model unreachable", err)
	}
	return nil
}

func normalizeLabels(labels []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, label := range labels {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	return out
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
