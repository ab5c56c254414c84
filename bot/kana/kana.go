// Package kana converts between Japanese kana and Hepburn romaji and
// renders small integers as kanji numerals. It backs the kana-reading and
// numerals quiz games.
package kana

import (
	"strings"
)

// hiragana digraphs first so the two-rune forms win over single syllables.
var digraphs = map[string]string{
	"きゃ": "kya", "きゅ": "kyu", "きょ": "kyo",
	"しゃ": "sha", "しゅ": "shu", "しょ": "sho",
	"ちゃ": "cha", "ちゅ": "chu", "ちょ": "cho",
	"にゃ": "nya", "にゅ": "nyu", "にょ": "nyo",
	"ひゃ": "hya", "ひゅ": "hyu", "ひょ": "hyo",
	"みゃ": "mya", "みゅ": "myu", "みょ": "myo",
	"りゃ": "rya", "りゅ": "ryu", "りょ": "ryo",
	"ぎゃ": "gya", "ぎゅ": "gyu", "ぎょ": "gyo",
	"じゃ": "ja", "じゅ": "ju", "じょ": "jo",
	"びゃ": "bya", "びゅ": "byu", "びょ": "byo",
	"ぴゃ": "pya", "ぴゅ": "pyu", "ぴょ": "pyo",
}

var monographs = map[string]string{
	"あ": "a", "い": "i", "う": "u", "え": "e", "お": "o",
	"か": "ka", "き": "ki", "く": "ku", "け": "ke", "こ": "ko",
	"さ": "sa", "し": "shi", "す": "su", "せ": "se", "そ": "so",
	"た": "ta", "ち": "chi", "つ": "tsu", "て": "te", "と": "to",
	"な": "na", "に": "ni", "ぬ": "nu", "ね": "ne", "の": "no",
	"は": "ha", "ひ": "hi", "ふ": "fu", "へ": "he", "ほ": "ho",
	"ま": "ma", "み": "mi", "む": "mu", "め": "me", "も": "mo",
	"や": "ya", "ゆ": "yu", "よ": "yo",
	"ら": "ra", "り": "ri", "る": "ru", "れ": "re", "ろ": "ro",
	"わ": "wa", "を": "wo", "ん": "n",
	"が": "ga", "ぎ": "gi", "ぐ": "gu", "げ": "ge", "ご": "go",
	"ざ": "za", "じ": "ji", "ず": "zu", "ぜ": "ze", "ぞ": "zo",
	"だ": "da", "ぢ": "ji", "づ": "zu", "で": "de", "ど": "do",
	"ば": "ba", "び": "bi", "ぶ": "bu", "べ": "be", "ぼ": "bo",
	"ぱ": "pa", "ぴ": "pi", "ぷ": "pu", "ぺ": "pe", "ぽ": "po",
	"ー": "-",
}

const (
	hiraganaStart = 0x3041
	hiraganaEnd   = 0x3096
	katakanaStart = 0x30A1
	katakanaEnd   = 0x30F6
	sokuon        = 'っ'
)

// toHiraganaRune maps a katakana rune onto its hiragana counterpart.
func toHiraganaRune(r rune) rune {
	if r >= katakanaStart && r <= katakanaEnd {
		return r - katakanaStart + hiraganaStart
	}
	return r
}

// IsKana reports whether every rune of s is hiragana, katakana, or the
// prolonged sound mark.
func IsKana(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == 'ー' {
			continue
		}
		if r >= hiraganaStart && r <= hiraganaEnd {
			continue
		}
		if r >= katakanaStart && r <= katakanaEnd {
			continue
		}
		return false
	}
	return true
}

// ToKatakana converts hiragana runes to their katakana counterparts,
// leaving everything else untouched.
func ToKatakana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= hiraganaStart && r <= hiraganaEnd {
			runes[i] = r - hiraganaStart + katakanaStart
		}
	}
	return string(runes)
}

// ToRomaji converts kana input to Hepburn romaji. Runes with no kana mapping
// pass through untouched, so mixed input degrades gracefully.
func ToRomaji(input string) string {
	runes := []rune(input)
	for i := range runes {
		runes[i] = toHiraganaRune(runes[i])
	}

	var b strings.Builder
	doubleNext := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == sokuon {
			doubleNext = true
			continue
		}
		var syl string
		if i+1 < len(runes) {
			if d, ok := digraphs[string(runes[i:i+2])]; ok {
				syl = d
				i++
			}
		}
		if syl == "" {
			if m, ok := monographs[string(r)]; ok {
				syl = m
			} else {
				syl = string(r)
			}
		}
		if doubleNext && len(syl) > 0 {
			first := syl[0]
			if first == 'c' {
				// っち romanizes as tchi
				b.WriteByte('t')
			} else {
				b.WriteByte(first)
			}
			doubleNext = false
		}
		b.WriteString(syl)
	}
	return b.String()
}

// Syllables returns the base hiragana syllable inventory used to build
// random kana-reading prompts.
func Syllables() []string {
	out := make([]string, 0, len(monographs))
	for k := range monographs {
		if k == "ー" || k == "ん" || k == "を" {
			continue
		}
		out = append(out, k)
	}
	return out
}
