package kana

import "strings"

var kanjiDigits = []string{"", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

// NumberToKanji renders 0..99999 in kanji numerals using the keypad symbol
// set (一..十, 百, 千, 万, 零). Out-of-range values return the empty string.
func NumberToKanji(n int) string {
	if n < 0 || n > 99999 {
		return ""
	}
	if n == 0 {
		return "零"
	}

	var b strings.Builder
	appendRank := func(digit int, rank string) {
		if digit == 0 {
			return
		}
		// 十/百/千 omit the leading 一 (e.g. 100 is 百, not 一百).
		if digit > 1 || rank == "" || rank == "万" {
			b.WriteString(kanjiDigits[digit])
		}
		b.WriteString(rank)
	}

	appendRank(n/10000, "万")
	n %= 10000
	appendRank(n/1000, "千")
	n %= 1000
	appendRank(n/100, "百")
	n %= 100
	appendRank(n/10, "十")
	n %= 10
	appendRank(n, "")

	return b.String()
}

// KanjiToNumber parses a kanji numeral built from the keypad symbols back to
// an integer. It accepts the same forms NumberToKanji emits plus raw digit
// sequences such as 一二三 typed without rank marks. ok is false for input
// containing non-keypad runes.
func KanjiToNumber(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if s == "零" {
		return 0, true
	}

	total := 0
	current := 0
	for _, r := range s {
		switch r {
		case '万':
			if current == 0 {
				current = 1
			}
			total = (total + current) * 10000
			current = 0
		case '千':
			if current == 0 {
				current = 1
			}
			total += current * 1000
			current = 0
		case '百':
			if current == 0 {
				current = 1
			}
			total += current * 100
			current = 0
		case '十':
			if current == 0 {
				current = 1
			}
			total += current * 10
			current = 0
		case '零':
			current = current * 10
		default:
			d := digitValue(r)
			if d < 0 {
				return 0, false
			}
			if current > 0 {
				// Raw digit run without rank marks.
				current = current*10 + d
			} else {
				current = d
			}
		}
	}
	return total + current, true
}

func digitValue(r rune) int {
	for i, d := range kanjiDigits {
		if d != "" && []rune(d)[0] == r {
			return i
		}
	}
	return -1
}
