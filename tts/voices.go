package tts

import (
	"strings"

	"github.com/d1nch8g/phonics/synth"
)

type voicePreference struct {
	exact  []string
	prefix string
}

var (
	primaryPreference   = voicePreference{exact: []string{"en-US", "en-GB"}, prefix: "en"}
	secondaryPreference = voicePreference{exact: []string{"zh-CN", "zh-TW"}, prefix: "zh"}
)

// pickVoice returns the first exact regional match, then any voice of the
// language, then the first voice at all. It returns nil for an empty catalog.
func pickVoice(voices []synth.Voice, pref voicePreference) *synth.Voice {
	if len(voices) == 0 {
		return nil
	}
	for _, lang := range pref.exact {
		for i := range voices {
			if synth.NormalizeLang(voices[i].Lang) == lang {
				return &voices[i]
			}
		}
	}
	for i := range voices {
		tag := synth.NormalizeLang(voices[i].Lang)
		if tag == pref.prefix || strings.HasPrefix(tag, pref.prefix+"-") {
			return &voices[i]
		}
	}
	return &voices[0]
}
