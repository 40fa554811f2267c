package embedding

import (
	"math"
	"testing"
)

func TestMaskedMeanPool(t *testing.T) {
	hidden := []float32{
		3, 0, // token 0
		1, 4, // token 1
		100, 100, // padding
	}
	got := maskedMeanPool(hidden, []int64{1, 1, 0}, 2)
	// mean (2, 2) normalised
	want := float32(1 / math.Sqrt2)
	for i, v := range got {
		if math.Abs(float64(v-want)) > 1e-6 {
			t.Errorf("got[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestMaskedMeanPool_emptyMask(t *testing.T) {
	got := maskedMeanPool([]float32{1, 2, 3, 4}, []int64{0, 0}, 2)
	if len(got) != 2 || got[0] != 0 || got[1] != 0 {
		t.Errorf("got %v, want zero vector", got)
	}
}

func TestMaskedMeanPool_shortHidden(t *testing.T) {
	got := maskedMeanPool([]float32{0, 5}, []int64{1, 1, 1}, 2)
	if got[0] != 0 || got[1] != 1 {
		t.Errorf("got %v, want only the first token pooled", got)
	}
}

func TestONNXOptions_pooled(t *testing.T) {
	if (ONNXOptions{OutputName: OutputTokens}).pooled() {
		t.Error("token output must be mean pooled")
	}
	if !(ONNXOptions{OutputName: OutputSentence}).pooled() {
		t.Error("sentence output is already pooled")
	}
}
