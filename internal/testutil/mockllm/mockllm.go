package mockllm

import (
	"context"
	"iter"
	"sync"

	"github.com/lookatitude/agentcore/llm"
	"github.com/lookatitude/agentcore/schema"
)

// GenerateOption is an alias for llm.GenerateOption so call sites that
// already import this package don't also need to import llm just to pass
// options through.
type GenerateOption = llm.GenerateOption

// MockChatModel is a configurable mock for the llm.ChatModel interface.
// It records all Chat/StreamChat calls and can return preset responses,
// errors, or streaming chunks.
type MockChatModel struct {
	mu sync.Mutex

	response     schema.Message
	err          error
	streamChunks []schema.ChatChunk
	modelID      string

	calls       int
	lastRequest schema.ChatRequest
}

// Option configures a MockChatModel.
type Option func(*MockChatModel)

// New creates a MockChatModel with the given options.
func New(opts ...Option) *MockChatModel {
	m := &MockChatModel{
		modelID:  "mock-model",
		response: schema.Message{Role: schema.RoleAI},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithResponse configures the mock to return the given Message from Chat.
func WithResponse(msg schema.Message) Option {
	return func(m *MockChatModel) {
		m.response = msg
	}
}

// WithError configures the mock to return the given error from Chat and StreamChat.
func WithError(err error) Option {
	return func(m *MockChatModel) {
		m.err = err
	}
}

// WithStreamChunks configures the mock to yield the given chunks from StreamChat.
func WithStreamChunks(chunks []schema.ChatChunk) Option {
	return func(m *MockChatModel) {
		m.streamChunks = chunks
	}
}

// WithModelID sets the model identifier returned by ModelID.
func WithModelID(id string) Option {
	return func(m *MockChatModel) {
		m.modelID = id
	}
}

// Chat returns the configured response or error. It records the call and
// the request for later inspection.
func (m *MockChatModel) Chat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) (schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.lastRequest = request

	if m.err != nil {
		return schema.Message{}, m.err
	}
	return m.response, nil
}

// StreamChat returns an iter.Seq2 that yields the configured stream chunks.
// If an error is configured, the first yield returns that error.
func (m *MockChatModel) StreamChat(ctx context.Context, request schema.ChatRequest, opts ...GenerateOption) iter.Seq2[schema.ChatChunk, error] {
	m.mu.Lock()
	m.calls++
	m.lastRequest = request
	chunks := m.streamChunks
	streamErr := m.err
	m.mu.Unlock()

	return func(yield func(schema.ChatChunk, error) bool) {
		if streamErr != nil {
			yield(schema.ChatChunk{}, streamErr)
			return
		}
		for _, chunk := range chunks {
			if ctx.Err() != nil {
				yield(schema.ChatChunk{}, ctx.Err())
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// ModelID returns the configured model identifier.
func (m *MockChatModel) ModelID() string {
	return m.modelID
}

// Calls returns the number of times Chat or StreamChat has been called.
func (m *MockChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the request passed to the most recent Chat or
// StreamChat call.
func (m *MockChatModel) LastRequest() schema.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// SetResponse updates the canned response for subsequent calls.
func (m *MockChatModel) SetResponse(msg schema.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = msg
	m.err = nil
}

// SetError updates the error for subsequent calls.
func (m *MockChatModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Reset clears all recorded calls and configuration.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.lastRequest = schema.ChatRequest{}
	m.response = schema.Message{Role: schema.RoleAI}
	m.err = nil
	m.streamChunks = nil
}
