// Package openaicompat provides a shared ChatModel implementation for providers
// that use OpenAI-compatible APIs. This includes OpenAI itself, as well as providers
// like Groq, Together, Fireworks, xAI, DeepSeek, Ollama, and others that expose the
// same REST endpoint format.
//
// This is an internal package and is not part of the public API. It is the shared
// foundation used by the thin wrapper LLM provider packages, eliminating duplicated
// conversion and streaming logic.
//
// # Model
//
// The [Model] type implements the llm.ChatModel interface using the openai-go SDK.
// Providers create a Model by calling [New] or [NewWithOptions] with their specific
// base URL and API key, then register it in the llm registry:
//
//	func init() {
//	    llm.Register("groq", func(cfg config.ProviderConfig) (llm.ChatModel, error) {
//	        cfg.BaseURL = "https://api.groq.com/openai/v1"
//	        return openaicompat.New(cfg)
//	    })
//	}
//
// # Message Conversion
//
// [ConvertMessages] translates schema.Message values (by Role: system, human,
// AI, and tool results carried as a human message wrapping a ToolResultPart)
// into OpenAI API format. It supports multimodal content including text and
// image parts.
//
// [ConvertResponse] translates OpenAI ChatCompletion responses back into a
// schema.Message, stashing token usage and cache statistics in Metadata.
//
// # Tool Conversion
//
// [ConvertTools] translates schema.ToolDefinition slices into OpenAI tool
// parameters for function calling.
//
// # Streaming
//
// [StreamToSeq] converts an openai-go SSE stream into an
// iter.Seq2[schema.ChatChunk, error] iterator, one chunk per SSE event with
// its text delta and tool-call fragments; fragments are not merged.
package openaicompat
