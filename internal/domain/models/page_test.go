package models

import "testing"

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, perPage         int
		wantPage, wantPerPage int
	}{
		{0, 0, 0, DefaultPerPage},
		{-3, 10, 0, 10},
		{2, 500, 2, MaxPerPage},
		{5, 100, 5, 100},
		{1, -1, 1, DefaultPerPage},
	}

	for _, tt := range tests {
		p, pp := NormalizePage(tt.page, tt.perPage)
		if p != tt.wantPage || pp != tt.wantPerPage {
			t.Errorf("NormalizePage(%d, %d) = (%d, %d), want (%d, %d)",
				tt.page, tt.perPage, p, pp, tt.wantPage, tt.wantPerPage)
		}
	}
}
