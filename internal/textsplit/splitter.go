// Package textsplit breaks long text into vendor-sized chunks without
// cutting words. Both the condenser and the speech synthesizers feed
// their per-request budgets through it.
package textsplit

import (
	"strings"
	"unicode"
)

// Split breaks text into chunks of at most limit runes each.
//
// Boundaries are chosen in order of preference: paragraph breaks, then
// sentence ends, then word gaps. A single word longer than the limit is
// hard-cut at the limit. Returned chunks are trimmed and non-blank;
// whitespace-only input yields nil.
func Split(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 || runeLen(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		curLen = 0
	}
	add := func(piece, sep string) {
		n := runeLen(piece)
		if curLen > 0 && curLen+runeLen(sep)+n > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteString(sep)
			curLen += runeLen(sep)
		}
		cur.WriteString(piece)
		curLen += n
	}

	for _, para := range splitParagraphs(text) {
		if runeLen(para) <= limit {
			add(para, "\n\n")
			continue
		}
		for _, sent := range splitSentences(para) {
			if runeLen(sent) <= limit {
				add(sent, " ")
				continue
			}
			for _, piece := range splitWords(sent, limit) {
				add(piece, " ")
			}
		}
	}
	flush()
	return chunks
}

// Truncate cuts text to at most max runes. The cut backs off to the last
// word gap inside the kept prefix when one exists, so the result never
// ends mid-word unless the prefix is a single unbroken word.
func Truncate(text string, max int) string {
	if max <= 0 || runeLen(text) <= max {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:max])
	if !unicode.IsSpace(runes[max]) {
		if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRightFunc(cut, unicode.IsSpace)
}

func runeLen(s string) int {
	return len([]rune(s))
}

// splitParagraphs splits on blank lines. Single newlines stay inside
// their paragraph.
func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// splitSentences splits a paragraph at sentence-ending punctuation,
// keeping the punctuation (and any closing quote) with its sentence.
func splitSentences(para string) []string {
	var sents []string
	runes := []rune(para)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		j := i
		for j+1 < len(runes) && isClosing(runes[j+1]) {
			j++
		}
		if j+1 < len(runes) && !unicode.IsSpace(runes[j+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : j+1])); s != "" {
			sents = append(sents, s)
		}
		start = j + 1
		i = j
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sents = append(sents, s)
	}
	return sents
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

// splitWords packs words greedily up to limit runes per piece. A word
// longer than the limit is hard-cut.
func splitWords(sent string, limit int) []string {
	var pieces []string
	var cur strings.Builder
	curLen := 0
	for _, word := range strings.Fields(sent) {
		n := runeLen(word)
		if n > limit {
			if curLen > 0 {
				pieces = append(pieces, cur.String())
				cur.Reset()
				curLen = 0
			}
			runes := []rune(word)
			for len(runes) > limit {
				pieces = append(pieces, string(runes[:limit]))
				runes = runes[limit:]
			}
			if len(runes) > 0 {
				cur.WriteString(string(runes))
				curLen = len(runes)
			}
			continue
		}
		if curLen > 0 && curLen+1+n > limit {
			pieces = append(pieces, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += n
	}
	if curLen > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}
