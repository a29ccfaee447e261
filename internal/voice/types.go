package voice

// Provider identifiers are fixed by the hosted platform plan; the rest of the
// codebase only ever chooses language, voice id, temperature, and prompts.
const (
	modelProvider       = "openai"
	modelName           = "gpt-3.5-turbo"
	transcriberProvider = "deepgram"
	transcriberModel    = "nova-2"
	voiceProvider       = "playht"
)

// AssistantRequest is the control-plane creation payload.
type AssistantRequest struct {
	Name         string            `json:"name"`
	FirstMessage string            `json:"firstMessage"`
	Model        ModelConfig       `json:"model"`
	Transcriber  TranscriberConfig `json:"transcriber"`
	Voice        VoiceConfig       `json:"voice"`
}

type ModelConfig struct {
	Provider    string         `json:"provider"`
	Model       string         `json:"model"`
	Temperature float64        `json:"temperature"`
	Messages    []PromptMessage `json:"messages"`
}

type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TranscriberConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

type VoiceConfig struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

// AssistantParams is what callers actually vary per assistant.
type AssistantParams struct {
	Name         string
	FirstMessage string
	SystemPrompt string
	Language     string
	VoiceID      string
	Temperature  float64
}

// NewAssistantRequest fills in the fixed providers around the caller's params.
func NewAssistantRequest(p AssistantParams) AssistantRequest {
	return AssistantRequest{
		Name:         p.Name,
		FirstMessage: p.FirstMessage,
		Model: ModelConfig{
			Provider:    modelProvider,
			Model:       modelName,
			Temperature: p.Temperature,
			Messages: []PromptMessage{
				{Role: "system", Content: p.SystemPrompt},
			},
		},
		Transcriber: TranscriberConfig{
			Provider: transcriberProvider,
			Model:    transcriberModel,
			Language: p.Language,
		},
		Voice: VoiceConfig{
			Provider: voiceProvider,
			VoiceID:  p.VoiceID,
		},
	}
}

// DefaultInlineConfig is the assistant used for web calls when the user has
// not created one of their own yet.
func DefaultInlineConfig() AssistantRequest {
	return NewAssistantRequest(AssistantParams{
		Name:         "AI Assistant",
		FirstMessage: "Hello! I'm your AI assistant. How can I help you today?",
		SystemPrompt: "You are a helpful and friendly AI assistant.",
		Language:     "en-US",
		VoiceID:      "jennifer",
		Temperature:  0.7,
	})
}

// CreatedAssistant is the subset of the creation response we keep.
type CreatedAssistant struct {
	ID string `json:"id"`
}
