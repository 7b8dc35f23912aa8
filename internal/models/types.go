package models

// Product is a catalog entry. The engine never mutates it.
type Product struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	Category      string  `json:"category" yaml:"category"`
	Price         float64 `json:"price" yaml:"price"`
	OriginalPrice float64 `json:"originalPrice,omitempty" yaml:"original_price"`
	Rating        float64 `json:"rating" yaml:"rating"`   // 0-5
	Reviews       int     `json:"reviews" yaml:"reviews"` // review count
	Image         string  `json:"image" yaml:"image"`
	Badge         string  `json:"badge,omitempty" yaml:"badge"`
	Description   string  `json:"description,omitempty" yaml:"description"`
	Stock         int     `json:"stock" yaml:"stock"`
}

// Role of a chat message author
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageKind tells the client how to render a message
type MessageKind string

const (
	KindPlain    MessageKind = "plain"
	KindProducts MessageKind = "products"
)

// Rating is the thumbs up/down a user leaves on an assistant reply
type Rating string

const (
	RatingNone Rating = ""
	RatingUp   Rating = "up"
	RatingDown Rating = "down"
)

// Message is one entry of the conversation history
type Message struct {
	Role     Role        `json:"role"`
	Text     string      `json:"text"`
	Kind     MessageKind `json:"kind"`
	Products []Product   `json:"products,omitempty"`
	Feedback Rating      `json:"feedback,omitempty"`
}

// Verdict is a per-product personalization signal. Neutral is represented
// by the absence of an entry.
type Verdict string

const (
	VerdictLike    Verdict = "like"
	VerdictDislike Verdict = "dislike"
)

// Valid reports whether v is one of the two stored verdicts
func (v Verdict) Valid() bool {
	return v == VerdictLike || v == VerdictDislike
}

// Snapshot is everything a client needs to render the assistant
type Snapshot struct {
	SessionID          string             `json:"session_id"`
	Locale             string             `json:"locale"`
	Messages           []Message          `json:"messages"`
	RecommendationPool []Product          `json:"recommendation_pool"`
	IsAwaiting         bool               `json:"is_awaiting"`
	LastError          *string            `json:"last_error"`
	Feedback           map[string]Verdict `json:"feedback"`
}

// AssistantRequest is the transport envelope for all session operations
type AssistantRequest struct {
	SessionID    string  `json:"session_id"`
	Text         string  `json:"text,omitempty"`
	Locale       string  `json:"locale,omitempty"`
	ProductID    string  `json:"product_id,omitempty"`
	Verdict      Verdict `json:"verdict,omitempty"`
	ProductName  string  `json:"product_name,omitempty"`
	MessageIndex int     `json:"message_index,omitempty"`
	Rating       Rating  `json:"rating,omitempty"`
}

// AssistantResponse is returned for every AssistantRequest
type AssistantResponse struct {
	Status       string    `json:"status"` // "OK", "BUSY", "IGNORED", "ERROR"
	Snapshot     *Snapshot `json:"snapshot,omitempty"`
	Products     []Product `json:"products,omitempty"`
	ErrorCode    *string   `json:"error_code,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
}

// Status constants
const (
	StatusOK      = "OK"
	StatusBusy    = "BUSY"
	StatusIgnored = "IGNORED"
	StatusError   = "ERROR"
)

// Error codes
const (
	ErrorInvalidInput = "INVALID_INPUT"
	ErrorBusy         = "SESSION_BUSY"
	ErrorNotFound     = "NOT_FOUND"
	ErrorInternal     = "INTERNAL_ERROR"
	ErrorParseError   = "PARSE_ERROR"
)

// MaxInputChars caps a single submission. Enforced at the surface.
const MaxInputChars = 500
