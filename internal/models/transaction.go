package models

import "gorm.io/datatypes"

// TransactionMetadata records why a balance changed and who changed it.
type TransactionMetadata struct {
	Reason  string `json:"reason,omitempty"`
	ActorID string `json:"actorId,omitempty"`
}

// Transaction is an immutable audit record written once per balance mutation.
type Transaction struct {
	Base
	UserID    string                                  `gorm:"type:uuid;index;not null" json:"user"`
	TokenType string                                  `gorm:"not null;default:credits" json:"tokenType"`
	Context   string                                  `gorm:"index;not null" json:"context"`
	RawAmount float64                                 `gorm:"not null" json:"rawAmount"`
	Metadata  datatypes.JSONType[TransactionMetadata] `gorm:"type:jsonb" json:"metadata"`
}

// NewTransaction builds a credits transaction for userID.
func NewTransaction(userID, context string, rawAmount float64, reason, actorID string) *Transaction {
	return &Transaction{
		UserID:    userID,
		TokenType: TokenTypeCredits,
		Context:   context,
		RawAmount: rawAmount,
		Metadata: datatypes.NewJSONType(TransactionMetadata{
			Reason:  reason,
			ActorID: actorID,
		}),
	}
}
