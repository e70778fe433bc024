package simhash

import (
	"testing"
)

func TestFingerprint_IdenticalTexts(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	fp1 := Fingerprint(text)
	fp2 := Fingerprint(text)

	if fp1 != fp2 {
		t.Errorf("identical texts produced different fingerprints: %064b vs %064b", fp1, fp2)
	}
}

func TestFingerprint_SimilarTexts(t *testing.T) {
	text1 := "the quick brown fox jumps over the lazy dog"
	text2 := "the quick brown fox leaps over the lazy dog"

	fp1 := Fingerprint(text1)
	fp2 := Fingerprint(text2)

	dist := Distance(fp1, fp2)
	if dist > 10 {
		t.Errorf("similar texts have too large distance: %d (fingerprints: %064b, %064b)", dist, fp1, fp2)
	}
}

func TestFingerprint_DifferentTexts(t *testing.T) {
	text1 := "the quick brown fox jumps over the lazy dog"
	text2 := "completely unrelated content about quantum physics and mathematics"

	fp1 := Fingerprint(text1)
	fp2 := Fingerprint(text2)

	dist := Distance(fp1, fp2)
	if dist < 5 {
		t.Errorf("very different texts have too small distance: %d", dist)
	}
}

func TestFingerprint_EmptyInput(t *testing.T) {
	fp := Fingerprint("")
	if fp != 0 {
		t.Errorf("empty input should produce fingerprint 0, got: %064b", fp)
	}
}

func TestFingerprint_WhitespaceOnly(t *testing.T) {
	fp := Fingerprint("   \t\n  ")
	if fp != 0 {
		t.Errorf("whitespace-only input should produce fingerprint 0, got: %064b", fp)
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xFF, 0xFF, 0},
		{"all different", 0, ^uint64(0), 64},
		{"one bit", 0, 1, 1},
		{"two bits", 0, 3, 2},
		{"zero zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("Distance(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilar(t *testing.T) {
	fp1 := Fingerprint("the quick brown fox")
	fp2 := Fingerprint("the quick brown fox")

	if !Similar(fp1, fp2, 0) {
		t.Error("identical fingerprints should be similar at threshold 0")
	}

	fp3 := Fingerprint("a completely different text about nothing related")
	dist := Distance(fp1, fp3)

	if Similar(fp1, fp3, dist-1) {
		t.Errorf("different texts should not be similar at threshold %d (distance is %d)", dist-1, dist)
	}
	if !Similar(fp1, fp3, dist) {
		t.Errorf("should be similar at threshold equal to distance (%d)", dist)
	}
}

func TestFingerprintPage_Deterministic(t *testing.T) {
	page := `<html><body><div class="gallery"><img src="/a.jpg"><img src="/b.jpg"></div></body></html>`

	fp1 := FingerprintPage(page)
	fp2 := FingerprintPage(page)

	if fp1 != fp2 {
		t.Errorf("identical pages produced different fingerprints: %064b vs %064b", fp1, fp2)
	}
}

func TestFingerprintPage_IgnoresUnwatchedAttributes(t *testing.T) {
	page1 := `<html><body><div class="gallery"><img src="/a.jpg" alt="one"></div></body></html>`
	page2 := `<html><body><div class="gallery active" id="g1"><img src="/a.jpg" alt="two"></div></body></html>`

	fp1 := FingerprintPage(page1)
	fp2 := FingerprintPage(page2)

	if fp1 != fp2 {
		t.Errorf("class/id/alt churn should not move the fingerprint, distance: %d", Distance(fp1, fp2))
	}
}

func TestFingerprintPage_DetectsNewImageSources(t *testing.T) {
	page1 := `<html><body><div><img src="/a.jpg"></div></body></html>`
	page2 := `<html><body><div><img src="/a.jpg"><img src="/b.jpg"><img src="/c.jpg"><img data-src="/d.jpg"></div></body></html>`

	fp1 := FingerprintPage(page1)
	fp2 := FingerprintPage(page2)

	if fp1 == fp2 {
		t.Error("added image sources should change the fingerprint")
	}
}

func TestFingerprintPage_EmptyInput(t *testing.T) {
	if fp := FingerprintPage(""); fp != 0 {
		t.Errorf("empty input should produce fingerprint 0, got: %064b", fp)
	}
}

func TestFingerprintPage_SingleTag(t *testing.T) {
	if fp := FingerprintPage("<br/>"); fp == 0 {
		t.Error("single self-closing tag should produce non-zero fingerprint")
	}
}

func TestExtractPageTokens(t *testing.T) {
	page := `<div style="background:url(/bg.jpg)"><img src="/a.jpg" alt="chair">Oak chair</div>`
	tokens := extractPageTokens(page)

	expected := []string{"div", "background:url(/bg.jpg)", "img", "/a.jpg", "Oak", "chair"}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i, tok := range tokens {
		if tok != expected[i] {
			t.Errorf("token[%d] = %q, want %q", i, tok, expected[i])
		}
	}
}

func TestMakeShingles(t *testing.T) {
	tokens := []string{"a", "b", "c", "d"}

	shingles := makeShingles(tokens, 3)
	expected := []string{"a_b_c", "b_c_d"}

	if len(shingles) != len(expected) {
		t.Fatalf("expected %d shingles, got %d: %v", len(expected), len(shingles), shingles)
	}

	for i, s := range shingles {
		if s != expected[i] {
			t.Errorf("shingle[%d] = %q, want %q", i, s, expected[i])
		}
	}
}

func TestMakeShingles_TooFewTokens(t *testing.T) {
	shingles := makeShingles([]string{"a", "b"}, 3)
	if shingles != nil {
		t.Errorf("expected nil for fewer tokens than n, got: %v", shingles)
	}
}
