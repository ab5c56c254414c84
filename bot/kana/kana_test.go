package kana

import "testing"

func TestToRomaji(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ひらがな", "hiragana"},
		{"きょう", "kyou"},
		{"しゃしん", "shashin"},
		{"ちょっと", "chotto"},
		{"がっこう", "gakkou"},
		{"まっちゃ", "matcha"},
		{"カタカナ", "katakana"},
		{"ニッポン", "nippon"},
		{"ん", "n"},
	}
	for _, c := range cases {
		if got := ToRomaji(c.in); got != c.want {
			t.Errorf("ToRomaji(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToRomajiPassthrough(t *testing.T) {
	if got := ToRomaji("abc"); got != "abc" {
		t.Errorf("non-kana input changed: %q", got)
	}
}

func TestIsKana(t *testing.T) {
	if !IsKana("ひらがな") || !IsKana("カタカナ") || !IsKana("コーヒー") {
		t.Error("kana strings not recognized")
	}
	if IsKana("漢字") || IsKana("abc") || IsKana("") {
		t.Error("non-kana accepted")
	}
}

func TestNumberToKanji(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{0, "零"},
		{1, "一"},
		{7, "七"},
		{10, "十"},
		{11, "十一"},
		{20, "二十"},
		{42, "四十二"},
		{100, "百"},
		{105, "百五"},
		{999, "九百九十九"},
		{1000, "千"},
		{4321, "四千三百二十一"},
		{10000, "一万"},
		{99999, "九万九千九百九十九"},
	}
	for _, c := range cases {
		if got := NumberToKanji(c.n); got != c.want {
			t.Errorf("NumberToKanji(%d) = %q, want %q", c.n, got, c.want)
		}
	}
	if NumberToKanji(-1) != "" || NumberToKanji(100000) != "" {
		t.Error("out-of-range values must return empty")
	}
}

func TestKanjiToNumberRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 7, 10, 11, 42, 100, 105, 999, 1000, 4321, 10000, 99999} {
		got, ok := KanjiToNumber(NumberToKanji(n))
		if !ok || got != n {
			t.Errorf("round trip %d -> %q -> %d (ok=%v)", n, NumberToKanji(n), got, ok)
		}
	}
}

func TestKanjiToNumberDigitRun(t *testing.T) {
	got, ok := KanjiToNumber("一二三")
	if !ok || got != 123 {
		t.Errorf("digit run: got %d (ok=%v), want 123", got, ok)
	}
	if _, ok := KanjiToNumber("一x"); ok {
		t.Error("foreign rune accepted")
	}
}
