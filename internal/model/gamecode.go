package model

import "strings"

const (
	// GameCodeLength is the number of significant characters in a game code
	GameCodeLength = 8
	// GameCodeAlphabet is the characters used in game codes (avoid confusing chars)
	GameCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// GameCodeSeparator splits the rendered code into two halves
	GameCodeSeparator = '-'

	separatorIndex = GameCodeLength / 2
	renderedLength = GameCodeLength + 1
)

// GameCode is a human-typable identifier for joining a session.
// The zero value is not a valid code.
type GameCode [GameCodeLength]byte

// NewGameCode builds a code from exactly GameCodeLength alphabet characters
func NewGameCode(chars string) (GameCode, error) {
	var code GameCode
	if len(chars) != GameCodeLength {
		return code, ErrInvalidGameCode
	}
	for i := 0; i < GameCodeLength; i++ {
		if !inAlphabet(chars[i]) {
			return GameCode{}, ErrInvalidGameCode
		}
		code[i] = chars[i]
	}
	return code, nil
}

// ParseGameCode parses the rendered form, e.g. "AB2S-B4D2".
// Anything other than an exact match of the rendered form is rejected.
func ParseGameCode(s string) (GameCode, error) {
	if len(s) != renderedLength || s[separatorIndex] != GameCodeSeparator {
		return GameCode{}, ErrInvalidGameCode
	}
	return NewGameCode(s[:separatorIndex] + s[separatorIndex+1:])
}

// String renders the code with the separator in the middle
func (c GameCode) String() string {
	var b strings.Builder
	b.Grow(renderedLength)
	b.Write(c[:separatorIndex])
	b.WriteByte(GameCodeSeparator)
	b.Write(c[separatorIndex:])
	return b.String()
}

// IsZero reports whether the code was never set
func (c GameCode) IsZero() bool {
	return c == GameCode{}
}

// MarshalText implements encoding.TextMarshaler
func (c GameCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *GameCode) UnmarshalText(text []byte) error {
	parsed, err := ParseGameCode(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func inAlphabet(ch byte) bool {
	return strings.IndexByte(GameCodeAlphabet, ch) >= 0
}
