package embedding

import "github.com/hyperjump/wraith/pkg/utils"

// Output names of sentence-transformer ONNX exports.
const (
	// OutputTokens is the per-token hidden state, shape [1, tokens, dims].
	OutputTokens = "last_hidden_state"
	// OutputSentence is an already pooled embedding, shape [1, dims].
	OutputSentence = "sentence_embedding"
)

// ONNXOptions configures an ONNXEmbedder.
type ONNXOptions struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
	// OutputName selects the model output; OutputTokens is mean pooled.
	OutputName string
}

func (o ONNXOptions) pooled() bool { return o.OutputName == OutputSentence }

// maskedMeanPool averages the token vectors whose attention mask is set and
// returns the unit-length result. hidden is row-major [tokens][dims].
func maskedMeanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	if dims <= 0 {
		return out
	}
	var n float32
	for t, m := range mask {
		if m == 0 || (t+1)*dims > len(hidden) {
			continue
		}
		row := hidden[t*dims : (t+1)*dims]
		for i, v := range row {
			out[i] += v
		}
		n++
	}
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] /= n
	}
	utils.NormalizeL2(out)
	return out
}
