package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Outbound frame types.
const (
	ResponseContent = "content"
	ResponseError   = "error"
	ResponseInfo    = "info"
)

// ChatMessage is one prior turn supplied by the client.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "model"
	Content string `json:"content"`
}

// UserInput is the inbound frame payload.
type UserInput struct {
	Query   string        `json:"query"`
	History []ChatMessage `json:"history"`
}

// ClientResponse is the outbound frame payload.
type ClientResponse struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func ContentResponse(text string) ClientResponse {
	return ClientResponse{Type: ResponseContent, Data: text}
}

func ErrorResponse(text string) ClientResponse {
	return ClientResponse{Type: ResponseError, Data: text}
}

func InfoResponse(text string) ClientResponse {
	return ClientResponse{Type: ResponseInfo, Data: text}
}

// wire shapes keep required fields distinguishable from zero values
type wireMessage struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
}

type wireInput struct {
	Query   *string       `json:"query"`
	History []wireMessage `json:"history"`
}

// ParseUserInput decodes and validates one inbound frame. Syntax errors are
// reported as ErrMalformedInput, shape violations as ErrValidation.
func ParseUserInput(data []byte) (*UserInput, error) {
	if !json.Valid(data) {
		return nil, NewChatError(ErrMalformedInput, errors.New("invalid JSON"))
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, NewChatError(ErrValidation, errors.New("input should be a JSON object"))
	}

	var w wireInput
	if err := json.Unmarshal(trimmed, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, NewChatError(ErrValidation, fmt.Errorf("%s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value))
		}
		return nil, NewChatError(ErrValidation, err)
	}

	if w.Query == nil {
		return nil, NewChatError(ErrValidation, errors.New("query: field required"))
	}

	in := &UserInput{
		Query:   *w.Query,
		History: make([]ChatMessage, 0, len(w.History)),
	}
	for i, m := range w.History {
		if m.Role == nil {
			return nil, NewChatError(ErrValidation, fmt.Errorf("history[%d].role: field required", i))
		}
		if *m.Role != RoleUser && *m.Role != RoleModel {
			return nil, NewChatError(ErrValidation, fmt.Errorf("history[%d].role: input should be 'user' or 'model', got %q", i, *m.Role))
		}
		if m.Content == nil {
			return nil, NewChatError(ErrValidation, fmt.Errorf("history[%d].content: field required", i))
		}
		in.History = append(in.History, ChatMessage{Role: *m.Role, Content: *m.Content})
	}

	return in, nil
}
