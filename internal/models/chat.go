package models

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "human" | "user" | "assistant"
	Content string `json:"content"`
}

// ChatRequest is the payload sent to the document chat endpoint.
type ChatRequest struct {
	Messages            []ChatMessage `json:"messages"`
	CustomPrompt        string        `json:"customPrompt"`
	EnableCaching       bool          `json:"enableCaching"`
	SimilarityThreshold int           `json:"similarityThreshold"`
	IgnoreCache         bool          `json:"ignoreCache"`
	SelectedSources     []string      `json:"selectedSources"`
}

// Question returns the content of the last message.
func (r *ChatRequest) Question() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

// BooksChatRequest is the payload of the book chat assistant.
type BooksChatRequest struct {
	Query   string   `json:"query"`
	History []string `json:"history"`
}

type BooksChatResponse struct {
	Response string `json:"response"`
}

// ChatRecord is the shape persisted to the chats index.
type ChatRecord struct {
	ChatID    string            `json:"chat_id"`
	UserID    string            `json:"user_id,omitempty"`
	Messages  []ChatRecordEntry `json:"messages"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

type ChatRecordEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Conversation is one regulations chat connection's history. When older
// turns have been compacted, the first message has role "system" and holds
// their summary.
type Conversation struct {
	Messages []ChatMessage
}

// RegulationsQuestion is a message received on the regulations chat socket.
type RegulationsQuestion struct {
	Message string `json:"message"`
}

const (
	ReplyFullResponse = "full_response"
	ReplyError        = "error_message"
)

// RegulationsReply is a message sent on the regulations chat socket.
type RegulationsReply struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
