package repository

import "testing"

func TestPageOffset(t *testing.T) {
	tests := []struct {
		name string
		page int
		size int
		want int
	}{
		{"first page", 1, 10, 0},
		{"second page", 2, 10, 10},
		{"fifth page", 5, 25, 100},
		{"zero clamped", 0, 10, 0},
		{"negative clamped", -3, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pageOffset(tt.page, tt.size); got != tt.want {
				t.Fatalf("pageOffset(%d, %d) = %d, want %d", tt.page, tt.size, got, tt.want)
			}
		})
	}
}
