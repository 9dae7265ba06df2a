package audio

import "strings"

// canonicalEmotions is the closed set of labels EmotionEvent.emotion may
// carry.
var canonicalEmotions = map[string]bool{
	"neutral": true, "calm": true, "happy": true, "sad": true,
	"angry": true, "fearful": true, "disgusted": true, "surprised": true,
}

// emotionSynonyms maps known classifier vocabulary variants onto the
// canonical set.
var emotionSynonyms = map[string]string{
	"disgust":   "disgusted",
	"surprise":  "surprised",
	"fear":      "fearful",
	"happiness": "happy",
	"sadness":   "sad",
	"anger":     "angry",
	"0":         "neutral",
	"1":         "calm",
	"2":         "happy",
	"3":         "sad",
	"4":         "angry",
	"5":         "fearful",
	"6":         "disgusted",
	"7":         "surprised",
}

// NormalizeLabel maps a raw classifier label to the canonical emotion set.
// Canonical labels round-trip unchanged; known synonyms map to their
// canonical form; unrecognized labels return ("", false).
func NormalizeLabel(raw string) (string, bool) {
	l := strings.ToLower(strings.TrimSpace(raw))
	if canonicalEmotions[l] {
		return l, true
	}
	if canon, ok := emotionSynonyms[l]; ok {
		return canon, true
	}
	return "", false
}
