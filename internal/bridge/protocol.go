package bridge

import "encoding/json"

// Wire message types. The daemon ignores unknown types and so do we.
const (
	msgChatSend  = "chat.send"
	msgChatAbort = "chat.abort"
	msgAuthOK    = "auth_ok"
	msgAuthError = "auth_error"
	msgChatAck   = "chat.ack"
	msgChunk     = "chunk"
	msgChatDone  = "chat.done"
	msgChatError = "chat.error"
	msgPong      = "pong"
)

// Identity is the authenticated user the daemon reports in auth_ok.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Message is one entry of a chat.send message list.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SendContext is caller-supplied request metadata forwarded to the daemon.
type SendContext struct {
	CurrentPage    string `json:"currentPage,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// envelope is the single wire shape for both directions, keyed by Type.
// Loose JSON frames decode into it and irrelevant fields stay zero.
type envelope struct {
	Type string `json:"type"`

	// chat.send / chat.ack
	ID       string       `json:"id,omitempty"`
	Trigger  string       `json:"trigger,omitempty"`
	Messages []Message    `json:"messages,omitempty"`
	Model    string       `json:"model,omitempty"`
	Context  *SendContext `json:"context,omitempty"`

	// run correlation
	RunID string `json:"runId,omitempty"`

	// auth_ok / auth_error
	User    *Identity `json:"user,omitempty"`
	Message string    `json:"message,omitempty"`

	// chunk / chat.error
	Chunk json.RawMessage `json:"chunk,omitempty"`
	Error string          `json:"error,omitempty"`
}
