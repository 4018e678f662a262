package models

import (
	"errors"
	"time"
)

// ErrCaseNotFound is returned when an auction case is not found.
var ErrCaseNotFound = errors.New("auction case not found")

// ChatTurn is one message in a conversation. The relay holds no session
// state; callers resend the full ordered history on every request.
type ChatTurn struct {
	Role    string `json:"role"` // user, assistant or system
	Content string `json:"content"`
}

// Usage reports token accounting from the text-generation collaborator.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Recommendation values for an auction case.
const (
	RecommendationBid    = "BID"
	RecommendationReview = "REVIEW"
	RecommendationSkip   = "SKIP"
)

// AuctionCase is one foreclosure case on the auction calendar.
type AuctionCase struct {
	CaseNumber     string                 `json:"case_number"`
	Address        string                 `json:"address"`
	City           string                 `json:"city"`
	JudgmentAmount float64                `json:"judgment_amount"`
	MaxBid         float64                `json:"max_bid"`
	Recommendation string                 `json:"recommendation"`
	Score          float64                `json:"score"` // third-party sale probability
	Plaintiff      string                 `json:"plaintiff"`
	AuctionDate    string                 `json:"auction_date"` // YYYY-MM-DD
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at,omitempty"`
	UpdatedAt      time.Time              `json:"updated_at,omitempty"`
}

// Lien document types as recorded by the county clerk.
const (
	LienTypeMortgage = "MTG"
	LienTypeLien     = "LIEN"
	LienTypeJudgment = "JUDG"
)

// Lien is one recorded encumbrance against a property.
type Lien struct {
	Type             string    `json:"type"`
	InstrumentNumber string    `json:"instrument_number"`
	Book             string    `json:"book"`
	Page             string    `json:"page"`
	Grantor          string    `json:"grantor"` // creditor
	Grantee          string    `json:"grantee"` // debtor
	RecordedDate     time.Time `json:"recorded_date"`
	Amount           float64   `json:"amount"`
	IsHOA            bool      `json:"is_hoa"`
	Position         int       `json:"position,omitempty"`
	Warning          string    `json:"warning,omitempty"`
}

// ConversationEntry is one persisted turn in the append-only conversation
// log, ordered by creation time within a session.
type ConversationEntry struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CaseEmbedding is a stored semantic vector for one case, used for
// nearest-neighbor similarity lookup.
type CaseEmbedding struct {
	CaseNumber string                 `json:"case_number"`
	Vector     []float32              `json:"-"`
	Summary    string                 `json:"summary"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at,omitempty"`
}

// SimilarCase is one nearest-neighbor hit from the embedding table.
type SimilarCase struct {
	CaseNumber string                 `json:"case_number"`
	Summary    string                 `json:"summary"`
	Distance   float64                `json:"distance"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
