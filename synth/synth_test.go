package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLang(t *testing.T) {
	cases := map[string]string{
		"en_US":   "en-US",
		"en-us":   "en-US",
		"EN-gb":   "en-GB",
		"zh":      "zh",
		"zh-hans": "zh-Hans",
		" fr_FR ": "fr-FR",
		"":        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeLang(in), in)
	}
}

func TestParseSayVoices(t *testing.T) {
	out := []byte(`Alex                en_US    # Most people recognize me by my voice.
Bad News            en_US    # The light you see at the end of the tunnel is the headlamp of a fast approaching train.
Daniel              en_GB    # Hello, my name is Daniel. I am a British-English voice.
Ting-Ting           zh_CN    # 你好，我叫婷婷。我讲中文普通话。

`)
	voices := parseSayVoices(out)
	assert.Equal(t, []Voice{
		{Name: "Alex", Lang: "en-US", ID: "Alex"},
		{Name: "Bad News", Lang: "en-US", ID: "Bad News"},
		{Name: "Daniel", Lang: "en-GB", ID: "Daniel"},
		{Name: "Ting-Ting", Lang: "zh-CN", ID: "Ting-Ting"},
	}, voices)
}

func TestParseEspeakVoices(t *testing.T) {
	out := []byte(`Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 2  en-gb           --/M      English_(Great_Britain) gmw/en
 2  en-us           --/M      English_(America)  gmw/en-US
 5  cmn             --/M      Chinese_(Mandarin,latin_as_English) sit/cmn       (zh-cmn 5)(zh 5)
`)
	voices := parseEspeakVoices(out)
	assert.Len(t, voices, 4)
	assert.Equal(t, Voice{Name: "English (America)", Lang: "en-US", ID: "en-us"}, voices[2])
	assert.Equal(t, "cmn", voices[3].Lang)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "start", EventStart.String())
	assert.Equal(t, "end", EventEnd.String())
	assert.Equal(t, "error", EventError.String())
}
