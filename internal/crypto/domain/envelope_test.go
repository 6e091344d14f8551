package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_MarshalParse(t *testing.T) {
	t.Run("Success_RoundTrip", func(t *testing.T) {
		env := &Envelope{
			Algorithm:  AESGCM,
			Ciphertext: "Y2lwaGVy",
			Nonce:      "bm9uY2U=",
			AuthTag:    "dGFn",
		}

		s, err := env.Marshal()
		require.NoError(t, err)
		assert.Contains(t, s, `"authTag":"dGFn"`)

		parsed, err := ParseEnvelope(s)
		require.NoError(t, err)
		assert.Equal(t, env, parsed)
	})

	t.Run("Error_Empty", func(t *testing.T) {
		_, err := ParseEnvelope("")
		assert.ErrorIs(t, err, ErrMalformedEnvelope)
		assert.ErrorIs(t, err, ErrDecryption)
	})

	t.Run("Error_NotJSON", func(t *testing.T) {
		_, err := ParseEnvelope("not-json")
		assert.ErrorIs(t, err, ErrMalformedEnvelope)
	})

	t.Run("Error_MissingTag", func(t *testing.T) {
		_, err := ParseEnvelope(`{"ciphertext":"YQ==","nonce":"YQ=="}`)
		assert.ErrorIs(t, err, ErrMalformedEnvelope)
	})
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{in: "", want: AESGCM},
		{in: "aes-gcm", want: AESGCM},
		{in: "aes-256-gcm", want: AESGCM},
		{in: "chacha20-poly1305", want: ChaCha20},
		{in: "rot13", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
