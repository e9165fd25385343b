package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGameCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: "AB2S-B4D2"},
		{name: "all digits", input: "2345-6789"},
		{name: "too short", input: "AB2S-B4D", wantErr: true},
		{name: "too long", input: "AB2S-B4D22", wantErr: true},
		{name: "no separator", input: "AB2SB4D2", wantErr: true},
		{name: "separator in wrong place", input: "AB2-SB4D2", wantErr: true},
		{name: "wrong separator", input: "AB2S_B4D2", wantErr: true},
		{name: "lowercase", input: "ab2s-b4d2", wantErr: true},
		{name: "ambiguous zero", input: "AB0S-B4D2", wantErr: true},
		{name: "ambiguous letter O", input: "ABOS-B4D2", wantErr: true},
		{name: "ambiguous one", input: "AB1S-B4D2", wantErr: true},
		{name: "ambiguous letter I", input: "ABIS-B4D2", wantErr: true},
		{name: "two separators", input: "AB2S--4D2", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "multibyte", input: "AB2S-B4DÄ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := ParseGameCode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidGameCode)
				assert.True(t, code.IsZero(), "rejected input must not yield a partial code")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, code.String())
		})
	}
}

func TestGameCodeRoundTrip(t *testing.T) {
	// every alphabet character in every position
	for i := 0; i < len(GameCodeAlphabet); i++ {
		chars := make([]byte, GameCodeLength)
		for j := range chars {
			chars[j] = GameCodeAlphabet[(i+j)%len(GameCodeAlphabet)]
		}
		code, err := NewGameCode(string(chars))
		require.NoError(t, err)

		parsed, err := ParseGameCode(code.String())
		require.NoError(t, err)
		assert.Equal(t, code, parsed)
	}
}

func TestGameCodeJSON(t *testing.T) {
	code, err := ParseGameCode("HJKL-MN23")
	require.NoError(t, err)

	data, err := json.Marshal(map[string]GameCode{"code": code})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"HJKL-MN23"}`, string(data))

	var decoded map[string]GameCode
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, code, decoded["code"])

	assert.Error(t, json.Unmarshal([]byte(`{"code":"nope"}`), &decoded))
}

func TestNewGameCodeRejectsWrongLength(t *testing.T) {
	_, err := NewGameCode("ABC")
	assert.ErrorIs(t, err, ErrInvalidGameCode)
}
