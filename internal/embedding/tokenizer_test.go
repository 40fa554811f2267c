package embedding

import (
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("hello world", 10)
	if len(ids) != 10 {
		t.Errorf("len(ids)=%d", len(ids))
	}
	if ids[0] != tokenCLS {
		t.Errorf("expected CLS 101, got %d", ids[0])
	}
	if ids[3] != tokenSEP {
		t.Errorf("expected SEP after two words, got %d", ids[3])
	}
	if attn[0] != 1 || attn[4] != 0 {
		t.Errorf("unexpected attention mask %v", attn)
	}
	upper, _, _ := tok.Tokenize("HELLO", 4)
	lower, _, _ := tok.Tokenize("hello", 4)
	if upper[1] != lower[1] {
		t.Error("tokenizer should be case-insensitive")
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  a  b\tc\n")
	if len(words) != 3 {
		t.Errorf("expected 3 words, got %v", words)
	}
	if SplitWords("") != nil {
		t.Error("empty string should return nil")
	}
}

func TestWordWindows(t *testing.T) {
	got := WordWindows("one two three four five", 2)
	want := []string{"one two", "three four", "five"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("window %d = %q, want %q", i, got[i], want[i])
		}
	}
	if WordWindows("   ", 3) != nil {
		t.Error("blank text should give no windows")
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}
