package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sahwira-ai/sahwira/internal/model"
	"github.com/sahwira-ai/sahwira/pkg/logger"
	"github.com/sahwira-ai/sahwira/pkg/metrics"
)

const (
	// UntitledTask replaces a missing task description.
	UntitledTask = "Untitled Task"
	// FallbackLength is the number of runes kept from unparseable model output.
	FallbackLength = 100
)

const extractionPrompt = `Extract actionable tasks from the following conversation transcript.
Respond with a JSON array only. Each element must be an object with two fields:
"task": a short description of the task,
"priority": one of "High", "Medium" or "Low".

Transcript:
%s`

var fenceMarkers = regexp.MustCompile("```json\\n?|\\n?```")

// ExtractionService turns transcripts into tasks via the LLM gateway.
type ExtractionService struct {
	assistant *AssistantService
	tasks     *TaskService
	logger    *logger.Logger
}

// NewExtractionService creates a new extraction service.
func NewExtractionService(assistant *AssistantService, tasks *TaskService, log *logger.Logger) *ExtractionService {
	return &ExtractionService{
		assistant: assistant,
		tasks:     tasks,
		logger:    log,
	}
}

// ExtractionResult is the outcome of one extraction. Fallback is set when the
// model output could not be parsed and a single task was synthesised from it.
type ExtractionResult struct {
	Tasks    []model.ExtractedTask
	Fallback bool
}

// Extract builds the prompt, calls the LLM and parses its output.
// Malformed output never fails; gateway errors and empty replies do.
func (s *ExtractionService) Extract(ctx context.Context, transcript string) (*ExtractionResult, error) {
	if strings.TrimSpace(transcript) == "" {
		verr := newValidationError("transcript is required")
		verr.add("transcript", "required")
		return nil, verr
	}

	resp, err := s.assistant.Complete(ctx, BuildPrompt(transcript), "")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, &AIGatewayError{Gateway: GatewayLLM, Provider: s.assistant.llmClient.Name(), Err: ErrEmptyCompletion}
	}

	tasks, fallback := ParseTasks(resp.Content)
	if fallback {
		metrics.TasksExtractedTotal.WithLabelValues("fallback").Add(float64(len(tasks)))
		s.logger.Warn("model output was not a JSON array, using fallback task",
			zap.Int("content_length", len(resp.Content)),
		)
	} else {
		metrics.TasksExtractedTotal.WithLabelValues("parsed").Add(float64(len(tasks)))
	}

	return &ExtractionResult{Tasks: tasks, Fallback: fallback}, nil
}

// ExtractAndSave runs Extract and, when save is set, persists the tasks under email.
func (s *ExtractionService) ExtractAndSave(ctx context.Context, email, transcript string, save bool) (*model.ExtractTasksResponse, error) {
	result, err := s.Extract(ctx, transcript)
	if err != nil {
		return nil, err
	}

	resp := &model.ExtractTasksResponse{
		Tasks:    result.Tasks,
		Fallback: result.Fallback,
	}
	if save && len(result.Tasks) > 0 {
		saved, err := s.Save(ctx, email, result.Tasks)
		if err != nil {
			return nil, err
		}
		resp.Saved = saved
	}
	return resp, nil
}

// ExtractFromAudio transcribes audio and extracts tasks from the transcript.
func (s *ExtractionService) ExtractFromAudio(ctx context.Context, email string, audio io.Reader, filename string, save bool) (*model.ExtractTasksResponse, error) {
	transcript, err := s.assistant.Transcribe(ctx, audio, filename)
	if err != nil {
		return nil, err
	}

	resp, err := s.ExtractAndSave(ctx, email, transcript, save)
	if err != nil {
		return nil, err
	}
	resp.Transcript = transcript
	return resp, nil
}

// Save maps extracted tasks to pending records owned by email and submits them as one batch.
func (s *ExtractionService) Save(ctx context.Context, email string, extracted []model.ExtractedTask) ([]model.Task, error) {
	items := make([]model.NewTask, len(extracted))
	for i, t := range extracted {
		items[i] = model.NewTask{
			UserID:   email,
			Task:     t.Task,
			Priority: t.Priority,
			Status:   model.TaskStatusPending,
		}
	}
	return s.tasks.CreateBatch(ctx, email, items)
}

// BuildPrompt embeds transcript in the extraction instructions.
func BuildPrompt(transcript string) string {
	return fmt.Sprintf(extractionPrompt, transcript)
}

// ParseTasks parses model output into tasks. The second result is true when
// the output was not a JSON array and the fallback task was produced instead.
func ParseTasks(content string) ([]model.ExtractedTask, bool) {
	var parsed any
	if err := json.Unmarshal([]byte(sanitize(content)), &parsed); err != nil {
		return fallbackTasks(content), true
	}
	items, ok := parsed.([]any)
	if !ok {
		return fallbackTasks(content), true
	}

	tasks := make([]model.ExtractedTask, 0, len(items))
	for _, item := range items {
		// A null element has no fields to read, so the whole reply is unusable.
		if item == nil {
			return fallbackTasks(content), true
		}
		tasks = append(tasks, normalizeTask(item))
	}
	return tasks, false
}

// sanitize strips code fences and any prose around the outermost JSON value.
func sanitize(content string) string {
	s := fenceMarkers.ReplaceAllString(strings.TrimSpace(content), "")

	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return ""
	}
	s = s[start:]

	end := strings.LastIndexAny(s, "]}")
	if end < 0 {
		return ""
	}
	return s[:end+1]
}

func normalizeTask(item any) model.ExtractedTask {
	obj, _ := item.(map[string]any)

	desc, _ := obj["task"].(string)
	desc = strings.TrimSpace(desc)
	if desc == "" {
		desc = UntitledTask
	}

	raw, _ := obj["priority"].(string)
	priority := model.Priority(raw)
	if !priority.Valid() {
		priority = model.PriorityMedium
	}

	return model.ExtractedTask{Task: desc, Priority: priority}
}

func fallbackTasks(content string) []model.ExtractedTask {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) > FallbackLength {
		runes = runes[:FallbackLength]
	}
	desc := string(runes)
	if desc == "" {
		desc = UntitledTask
	}
	return []model.ExtractedTask{{Task: desc, Priority: model.PriorityMedium}}
}
