package tts

import (
	"strings"
	"unicode"

	"readcast/internal/models"
)

const (
	LangZH = "zh"
	LangEN = "en"
)

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// Voice is the voice_setting block sent with every speech request.
type Voice struct {
	ID      string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
	Vol     float64 `json:"vol"`
	Pitch   int     `json:"pitch"`
	Emotion string  `json:"emotion"`
}

func neutral(id string) Voice {
	return Voice{ID: id, Speed: 1, Vol: 1, Emotion: "neutral"}
}

// Both languages currently share the same multilingual voices.
var profiles = map[string]Voice{
	LangZH + "-" + string(Male):   neutral("male-qn-qingse"),
	LangZH + "-" + string(Female): neutral("female-shaonv"),
	LangEN + "-" + string(Male):   neutral("male-qn-qingse"),
	LangEN + "-" + string(Female): neutral("female-shaonv"),
}

// ProfileFor falls back to the Chinese male voice for unknown combinations.
func ProfileFor(lang string, g Gender) Voice {
	if v, ok := profiles[lang+"-"+string(g)]; ok {
		return v
	}
	return profiles[LangZH+"-"+string(Male)]
}

// DetectLanguage reports zh when text contains any Han character.
func DetectLanguage(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return LangZH
		}
	}
	return LangEN
}

// VoiceResolver picks the voice gender for one script segment.
type VoiceResolver interface {
	Resolve(mode models.PodcastMode, speaker string) Gender
}

// MarkerResolver gives the Primary gender to dialogue speakers whose label
// carries one of the markers and Secondary to everyone else.
type MarkerResolver struct {
	Primary   Gender
	Secondary Gender
	// Tokens are compared case-insensitively against whole ASCII words of the label.
	Tokens []string
	// Substrings match anywhere in the label; used for CJK role names.
	Substrings []string
}

func DefaultResolver() MarkerResolver {
	return MarkerResolver{
		Primary:    Male,
		Secondary:  Female,
		Tokens:     []string{"a", "1", "teacher", "host", "speaker1"},
		Substrings: []string{"主持人", "老师"},
	}
}

func (r MarkerResolver) Resolve(mode models.PodcastMode, speaker string) Gender {
	if mode != models.PodcastDialogue || strings.TrimSpace(speaker) == "" {
		return r.Secondary
	}
	for _, s := range r.Substrings {
		if s != "" && strings.Contains(speaker, s) {
			return r.Primary
		}
	}
	words := strings.FieldsFunc(speaker, func(c rune) bool {
		return !(c < unicode.MaxASCII && (unicode.IsLetter(c) || unicode.IsDigit(c)))
	})
	for _, w := range words {
		for _, t := range r.Tokens {
			if strings.EqualFold(w, t) {
				return r.Primary
			}
		}
	}
	return r.Secondary
}

// Step is one speech call of a script: the intro, a segment, or the outro.
type Step struct {
	Kind     string `json:"kind"`
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Language string `json:"language"`
	Gender   Gender `json:"gender"`
}

const (
	StepIntro   = "intro"
	StepSegment = "segment"
	StepOutro   = "outro"
)

// Steps flattens a script into playback order, skipping blank text.
func Steps(script models.PodcastScript, r VoiceResolver) []Step {
	if r == nil {
		r = DefaultResolver()
	}
	var out []Step
	if t := strings.TrimSpace(script.Intro); t != "" {
		out = append(out, Step{Kind: StepIntro, Text: t, Language: DetectLanguage(t), Gender: Female})
	}
	for i, seg := range script.Segments {
		t := strings.TrimSpace(seg.Content)
		if t == "" {
			continue
		}
		lang := seg.Language
		if lang != LangZH && lang != LangEN {
			lang = DetectLanguage(t)
		}
		out = append(out, Step{
			Kind:     StepSegment,
			Index:    i,
			Text:     t,
			Language: lang,
			Gender:   r.Resolve(script.Mode, seg.Speaker),
		})
	}
	if t := strings.TrimSpace(script.Outro); t != "" {
		out = append(out, Step{Kind: StepOutro, Text: t, Language: DetectLanguage(t), Gender: Female})
	}
	return out
}
