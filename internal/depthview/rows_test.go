package depthview

import "testing"

func TestMapRow(t *testing.T) {
	for depth := 1; depth <= 12; depth++ {
		for i := 0; i < depth; i++ {
			if row, ok := MapRow(Bid, i, depth); !ok || row != i {
				t.Fatalf("MapRow(bid, %d, %d) = %d, %v", i, depth, row, ok)
			}

			row, ok := MapRow(Ask, i, depth)
			if !ok || row != depth-1-i {
				t.Fatalf("MapRow(ask, %d, %d) = %d, %v", i, depth, row, ok)
			}

			back, _ := MapRow(Ask, row, depth)
			if back != i {
				t.Fatalf("ask mapping is not an involution: %d -> %d -> %d", i, row, back)
			}
		}
	}
}

func TestMapRowOutOfRange(t *testing.T) {
	cases := []struct {
		side         Side
		index, depth int
	}{
		{Bid, 5, 5},
		{Ask, 5, 5},
		{Bid, -1, 5},
		{Ask, 0, 0},
		{Side(0), 0, 5},
	}

	for _, tc := range cases {
		if _, ok := MapRow(tc.side, tc.index, tc.depth); ok {
			t.Fatalf("MapRow(%v, %d, %d) should not map", tc.side, tc.index, tc.depth)
		}
	}
}
