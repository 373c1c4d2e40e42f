package utils

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		vec1    []float32
		vec2    []float32
		want    float32
		wantErr bool
	}{
		{
			name: "identical vectors",
			vec1: []float32{1, 2, 3},
			vec2: []float32{1, 2, 3},
			want: 1,
		},
		{
			name: "orthogonal vectors",
			vec1: []float32{1, 0},
			vec2: []float32{0, 1},
			want: 0,
		},
		{
			name: "opposite vectors",
			vec1: []float32{1, 0},
			vec2: []float32{-1, 0},
			want: -1,
		},
		{
			name: "zero magnitude",
			vec1: []float32{0, 0},
			vec2: []float32{1, 1},
			want: 0,
		},
		{
			name:    "dimension mismatch",
			vec1:    []float32{1, 2},
			vec2:    []float32{1, 2, 3},
			wantErr: true,
		},
		{
			name:    "empty vector",
			vec1:    nil,
			vec2:    []float32{1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.vec1, tt.vec2)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("similarity = %v, want %v", got, tt.want)
			}
		})
	}
}
