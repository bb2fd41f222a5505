package paging

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		page, size              int
		wantPage, wantSize, off int
	}{
		{0, 0, 1, 20, 0},
		{3, 10, 3, 10, 20},
		{2, 500, 2, 100, 100},
	}
	for _, tc := range cases {
		page, size, off := Normalize(tc.page, tc.size)
		if page != tc.wantPage || size != tc.wantSize || off != tc.off {
			t.Fatalf("Normalize(%d,%d) = %d,%d,%d", tc.page, tc.size, page, size, off)
		}
	}
}

func TestNew_ComputesTotalPages(t *testing.T) {
	p := New[int](nil, 41, 1, 20)
	if p.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", p.TotalPages)
	}
	if p.Items == nil {
		t.Fatalf("expected empty slice, not nil")
	}
}
