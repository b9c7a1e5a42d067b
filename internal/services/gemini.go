package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"careconnect-backend/internal/config"
	"careconnect-backend/internal/models"
)

var ErrMissingAPIKey = errors.New("GEMINI_API_KEY not found or is empty")

// responseStream is the part of *genai.GenerateContentResponseIterator the
// service depends on.
type responseStream interface {
	Next() (*genai.GenerateContentResponse, error)
}

// chatRequest is everything sent to the model for one turn.
type chatRequest struct {
	System  *genai.Content
	History []*genai.Content
	Query   genai.Text
}

type GeminiService struct {
	client      *genai.Client
	modelName   string
	temperature float32
	logger      *zap.Logger

	openStream func(ctx context.Context, req chatRequest) responseStream
}

func NewGeminiService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*GeminiService, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	s := &GeminiService{
		client:      client,
		modelName:   cfg.ModelName,
		temperature: cfg.Temperature,
		logger:      logger.Named("gemini"),
	}
	s.openStream = s.sendMessageStream

	s.logger.Info("LLM service initialized", zap.String("model", cfg.ModelName))
	return s, nil
}

func (s *GeminiService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// sendMessageStream opens one streaming call. A fresh model handle and chat
// session are built per call so the shared client is never mutated.
func (s *GeminiService) sendMessageStream(ctx context.Context, req chatRequest) responseStream {
	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(s.temperature)
	model.SystemInstruction = req.System

	cs := model.StartChat()
	cs.History = req.History
	return cs.SendMessageStream(ctx, req.Query)
}

// Generate streams the model's reply to query as text fragments. The sequence
// can be ranged over once. A provider failure, before or during streaming,
// ends it with a single generation error carrying an apology and the detail.
func (s *GeminiService) Generate(ctx context.Context, query string, history []models.ChatMessage) iter.Seq2[string, error] {
	var used atomic.Bool
	req := buildChatRequest(query, history)

	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			return
		}

		stream := s.openStream(ctx, req)
		chunks := 0
		for {
			resp, err := stream.Next()
			if errors.Is(err, iterator.Done) {
				s.logger.Debug("LLM stream finished", zap.Int("chunks", chunks))
				return
			}
			if err != nil {
				s.logger.Error("Error during LLM response generation", zap.Int("chunks", chunks), zap.Error(err))
				yield("", models.NewChatError(models.ErrGeneration,
					fmt.Errorf("Sorry, I encountered an issue trying to respond: %w", err)))
				return
			}

			text := extractText(resp)
			if text == "" {
				continue
			}
			chunks++
			if !yield(text, nil) {
				return
			}
		}
	}
}

// buildChatRequest maps client history onto Gemini's alternating turns. The
// current query is sent as the final user turn.
func buildChatRequest(query string, history []models.ChatMessage) chatRequest {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		contents = append(contents, &genai.Content{
			Role:  msg.Role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	return chatRequest{
		System:  &genai.Content{Parts: []genai.Part{genai.Text(PersonaPrompt)}},
		History: contents,
		Query:   genai.Text(query),
	}
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
