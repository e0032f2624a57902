package tts

import (
	"regexp"
	"strings"
)

type language int

const (
	langPrimary language = iota
	langSecondary
)

var (
	englishPattern = regexp.MustCompile(`^[a-zA-Z\s\-']+$`)
	cjkPattern     = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]`)
)

// IPA symbols that mark a phonetic transcription.
const ipaSymbols = "æɪʊəɛɔʌɑːθðʃʒŋɜɒ"

// detectLanguage routes English words and IPA to the primary voice and CJK
// text to the secondary voice. Anything else goes to the primary voice.
func detectLanguage(text string) language {
	if englishPattern.MatchString(text) || strings.ContainsAny(text, ipaSymbols) {
		return langPrimary
	}
	if cjkPattern.MatchString(text) {
		return langSecondary
	}
	return langPrimary
}

func (l language) tag() string {
	if l == langSecondary {
		return "zh-CN"
	}
	return "en-US"
}

// preprocess strips one leading and one trailing "/" used around phonetic
// notation, e.g. "/æ/" becomes "æ".
func preprocess(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "/")
	text = strings.TrimSuffix(text, "/")
	return text
}
