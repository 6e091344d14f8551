package domain

import (
	"encoding/json"
	"fmt"
)

// Envelope is the self-describing output of a single encryption call.
//
// Every field is standard base64 text so the envelope can live in a text
// column. Envelopes are never shared between fields or rows.
type Envelope struct {
	Algorithm  Algorithm `json:"alg,omitempty"`
	Ciphertext string    `json:"ciphertext"`
	Nonce      string    `json:"nonce"`
	AuthTag    string    `json:"authTag"`
}

// Marshal serializes the envelope into the text stored in a ciphertext column.
func (e *Envelope) Marshal() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	return string(b), nil
}

// ParseEnvelope deserializes a ciphertext column value.
func ParseEnvelope(s string) (*Envelope, error) {
	if s == "" {
		return nil, ErrMalformedEnvelope
	}
	var env Envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Ciphertext == "" || env.Nonce == "" || env.AuthTag == "" {
		return nil, ErrMalformedEnvelope
	}
	return &env, nil
}
