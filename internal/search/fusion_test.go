package search

import (
	"testing"

	"github.com/hyperjump/wraith/internal/models"
)

func hit(id, thread string, raw float64, kind models.ScoreKind) *models.SearchResult {
	return &models.SearchResult{
		Chunk:     &models.Chunk{ID: id, ThreadID: thread},
		Score:     raw,
		RawScore:  raw,
		ScoreKind: kind,
	}
}

func TestNormalizeMinMax(t *testing.T) {
	in := []*models.SearchResult{
		hit("a", "t1", 12, models.ScoreKindText),
		hit("b", "t2", 7, models.ScoreKindText),
		hit("c", "t3", 2, models.ScoreKindText),
	}
	out := NormalizeMinMax(in)
	want := []float64{1, 0.5, 0}
	for i, w := range want {
		if out[i].Score != w {
			t.Errorf("out[%d].Score = %f, want %f", i, out[i].Score, w)
		}
		if out[i].RawScore != in[i].RawScore {
			t.Errorf("raw score changed for %d", i)
		}
	}
	if in[0].Score != 12 {
		t.Error("input must not be mutated")
	}
}

func TestNormalizeMinMax_equalScores(t *testing.T) {
	out := NormalizeMinMax([]*models.SearchResult{hit("a", "t1", 0.3, models.ScoreKindVector), hit("b", "t2", 0.3, models.ScoreKindVector)})
	for _, r := range out {
		if r.Score != 1 {
			t.Errorf("equal raw scores should normalise to 1, got %f", r.Score)
		}
	}
	if NormalizeMinMax(nil) != nil {
		t.Error("empty input should give nil")
	}
}

func TestMergeByThread_onePerThreadBestScore(t *testing.T) {
	dense := []*models.SearchResult{
		hit("d1", "t1", 0.9, models.ScoreKindVector),
		hit("d2", "t1", 0.4, models.ScoreKindVector),
		hit("d3", "t2", 0.2, models.ScoreKindVector),
	}
	sparse := []*models.SearchResult{
		hit("s1", "t2", 0.8, models.ScoreKindText),
		hit("s2", "t3", 0.5, models.ScoreKindText),
	}
	merged := MergeByThread(dense, sparse)
	if len(merged) != 3 {
		t.Fatalf("len = %d, want 3", len(merged))
	}
	seen := map[string]bool{}
	for _, r := range merged {
		if seen[r.Chunk.ThreadID] {
			t.Errorf("duplicate thread %s", r.Chunk.ThreadID)
		}
		seen[r.Chunk.ThreadID] = true
	}
	if merged[0].Chunk.ID != "d1" || merged[1].Chunk.ID != "s1" || merged[2].Chunk.ID != "s2" {
		t.Errorf("order = %s %s %s", merged[0].Chunk.ID, merged[1].Chunk.ID, merged[2].Chunk.ID)
	}
}

func TestMergeByThread_tieKeepsDenseAndOrdersByThread(t *testing.T) {
	dense := []*models.SearchResult{hit("d1", "t9", 1, models.ScoreKindVector)}
	sparse := []*models.SearchResult{
		hit("s1", "t9", 1, models.ScoreKindText),
		hit("s2", "t1", 1, models.ScoreKindText),
	}
	merged := MergeByThread(dense, sparse)
	if len(merged) != 2 {
		t.Fatalf("len = %d", len(merged))
	}
	if merged[0].Chunk.ThreadID != "t1" {
		t.Errorf("equal scores should sort by thread id, got %s first", merged[0].Chunk.ThreadID)
	}
	if merged[1].Chunk.ID != "d1" {
		t.Errorf("dense result should win the tie, got %s", merged[1].Chunk.ID)
	}
}
