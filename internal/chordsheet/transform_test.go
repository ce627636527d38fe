package chordsheet

import (
	"testing"

	"bandstand/internal/musickey"
)

func TestTransposeBodyChordLinesOnly(t *testing.T) {
	raw := "|C   G\n You  and I\nIntro x2\n"

	got := TransposeBody(raw, musickey.Parse("C"), musickey.Parse("D"))
	want := "|D   A\n You  and I\nIntro x2\n"
	if got != want {
		t.Errorf("TransposeBody = %q, want %q", got, want)
	}
}

func TestTransposeBodyZeroStepsReturnsInputUnchanged(t *testing.T) {
	raw := "|C   G\n lyric\n"
	if got := TransposeBody(raw, musickey.Parse("C"), musickey.Parse("C")); got != raw {
		t.Errorf("same-key transpose should be identity, got %q", got)
	}
	// Unparseable keys degrade to identity as well.
	if got := TransposeBody(raw, musickey.Parse("?"), musickey.Parse("D")); got != raw {
		t.Errorf("unparseable origin should be identity, got %q", got)
	}
}

func TestTransposeBodyKeepsChordQuality(t *testing.T) {
	raw := "|Am7  Dsus4  Bb"
	got := TransposeBody(raw, musickey.Parse("A"), musickey.Parse("B"))
	want := "|Bm7  Esus4  C"
	if got != want {
		t.Errorf("TransposeBody = %q, want %q", got, want)
	}
}

func TestTransposeBodyFlatSpellingFollowsInput(t *testing.T) {
	raw := "|Eb  Ab"
	got := TransposeBody(raw, musickey.Parse("Eb"), musickey.Parse("F"))
	want := "|F  Bb"
	if got != want {
		t.Errorf("TransposeBody = %q, want %q", got, want)
	}
}

func TestNormalizeIndentIdempotent(t *testing.T) {
	raw := "|C   G\n You  and I\nplain\n"
	once := NormalizeIndent(raw)
	twice := NormalizeIndent(once)

	want := "|C   G\nYou  and I\nplain\n"
	if once != want {
		t.Errorf("NormalizeIndent = %q, want %q", once, want)
	}
	if twice != once {
		t.Errorf("NormalizeIndent not idempotent: %q != %q", twice, once)
	}
}

func TestNormalizeIndentStripsExactlyOneSpace(t *testing.T) {
	got := NormalizeIndent("  double indent")
	if got != " double indent" {
		t.Errorf("should strip exactly one space, got %q", got)
	}
}

func TestStripMarkers(t *testing.T) {
	raw := "|C   G\nYou  and I\n|F\n"
	got := StripMarkers(raw)
	want := "C   G\nYou  and I\nF\n"
	if got != want {
		t.Errorf("StripMarkers = %q, want %q", got, want)
	}
}

func TestRenderDisplayTextEndToEnd(t *testing.T) {
	raw := "|C   G\n You  and I\n"

	got := RenderDisplayText(raw, musickey.Parse("C"), musickey.Parse("D"))
	want := "D   A\nYou  and I\n"
	if got != want {
		t.Errorf("RenderDisplayText = %q, want %q", got, want)
	}
}

func TestRenderDisplayTextSameKeyEqualsNormalizeAndStrip(t *testing.T) {
	raws := []string{
		"|C   G\n You  and I\n",
		"Verse 1\n|Am  F\n so far away\n",
		"",
		"no markers at all",
	}
	k := musickey.Parse("G")
	for _, raw := range raws {
		got := RenderDisplayText(raw, k, k)
		want := StripMarkers(NormalizeIndent(raw))
		if got != want {
			t.Errorf("RenderDisplayText(%q, G, G) = %q, want %q", raw, got, want)
		}
	}
}

func TestRenderDisplayTextPlainLinesVerbatim(t *testing.T) {
	raw := "Chorus (x2)\n|G  D/F#\n lean on me\n"
	got := RenderDisplayText(raw, musickey.Parse("G"), musickey.Parse("A"))
	want := "Chorus (x2)\nA  E/G#\nlean on me\n"
	if got != want {
		t.Errorf("RenderDisplayText = %q, want %q", got, want)
	}
}
