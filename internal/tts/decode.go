package tts

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrEmptyAudio = errors.New("speech api returned no audio")

// DecodeAudio decodes the audio field of a speech response. The payload is
// hex when it starts with the hex form of "ID3" or uses only hex digits,
// and base64 otherwise.
func DecodeAudio(payload string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, payload)
	if clean == "" {
		return nil, ErrEmptyAudio
	}
	if strings.HasPrefix(clean, "494433") || isHex(clean) {
		b, err := hex.DecodeString(clean)
		if err != nil {
			return nil, fmt.Errorf("decode hex audio: %w", err)
		}
		return b, nil
	}
	b, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(clean, "=")); rawErr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	return b, nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

var frameSyncs = [][]byte{{0xff, 0xfb}, {0xff, 0xf3}, {0xff, 0xf2}}

// Container names the recognized MP3 header of b, or "" when unknown.
func Container(b []byte) string {
	if bytes.HasPrefix(b, []byte("ID3")) {
		return "id3"
	}
	for _, sync := range frameSyncs {
		if bytes.HasPrefix(b, sync) {
			return "mpeg"
		}
	}
	return ""
}
