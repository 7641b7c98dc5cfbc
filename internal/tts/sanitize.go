package tts

import "strings"

// decorative glyphs the console output and LLM replies tend to carry.
// Every backend stumbles on at least some of them (SAPI reads "asterisk
// asterisk", espeak spells out emoji names), so they are stripped uniformly
// before any backend sees text.
const strippedGlyphs = "🎤🤖👤✅⚠️🔊🧠📝📸🔄❌*_`#"

// Sanitize prepares text for synthesis: decorative glyphs and markdown
// emphasis characters are removed and surrounding whitespace trimmed.
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(strippedGlyphs, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
