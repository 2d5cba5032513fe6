package emotion

import "testing"

func TestExtractFirstTagWins(t *testing.T) {
	emotionKey, clean := Extract("[happy] hi there [happy]")
	if emotionKey != "happy" {
		t.Fatalf("expected happy emotion, got %s", emotionKey)
	}
	if clean != "hi there" {
		t.Fatalf("expected stripped text, got %q", clean)
	}
}

func TestExtractRemovesAllTags(t *testing.T) {
	emotionKey, clean := Extract("[sad]你好[angry]世界[neutral]")
	if emotionKey != "sad" {
		t.Fatalf("expected sad emotion, got %s", emotionKey)
	}
	if clean != "你好世界" {
		t.Fatalf("expected all tags stripped, got %q", clean)
	}
}

func TestExtractNoTagDefaultsNeutral(t *testing.T) {
	emotionKey, clean := Extract("plain reply without tags")
	if emotionKey != Neutral {
		t.Fatalf("expected neutral emotion, got %s", emotionKey)
	}
	if clean != "plain reply without tags" {
		t.Fatalf("unexpected clean text %q", clean)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	emotionKey, clean := Extract("")
	if emotionKey != Neutral {
		t.Fatalf("expected neutral emotion, got %s", emotionKey)
	}
	if clean != Placeholder {
		t.Fatalf("expected placeholder text, got %q", clean)
	}
}

func TestExtractTagOnlyInputFallsBack(t *testing.T) {
	emotionKey, clean := Extract("[happy]   ")
	if emotionKey != Neutral {
		t.Fatalf("expected neutral emotion for empty clean text, got %s", emotionKey)
	}
	if clean != Placeholder {
		t.Fatalf("expected placeholder text, got %q", clean)
	}
}
