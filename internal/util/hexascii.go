package util

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// DecodeHex decodes hex that may contain spaces, as operators paste it.
func DecodeHex(s string) ([]byte, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// Payload picks the bytes of a request field given either as text or as
// hex. Hex wins when both are set.
func Payload(text, hexStr string) ([]byte, error) {
	if strings.TrimSpace(hexStr) != "" {
		return DecodeHex(hexStr)
	}
	if text == "" {
		return nil, nil
	}
	return []byte(text), nil
}

// HexOrNil encodes b, leaving empty input empty.
func HexOrNil(b []byte) string {
	if b == nil {
		return ""
	}
	return hex.EncodeToString(b)
}
