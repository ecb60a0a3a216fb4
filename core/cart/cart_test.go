package cart

import (
	"testing"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name       string
		items      []LineItem
		wantItems  int
		wantAmount int64
	}{
		{name: "empty", items: nil, wantItems: 0, wantAmount: 0},
		{
			name: "single",
			items: []LineItem{
				{ProductID: "a", UnitPrice: 1250, Quantity: 3},
			},
			wantItems:  3,
			wantAmount: 3750,
		},
		{
			name: "mixed",
			items: []LineItem{
				{ProductID: "a", UnitPrice: 1250, Quantity: 2},
				{ProductID: "b", UnitPrice: 999, Quantity: 1},
				{ProductID: "c", UnitPrice: 50, Quantity: 10},
			},
			wantItems:  13,
			wantAmount: 3999,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Build(tt.items)
			if c.TotalItems != tt.wantItems {
				t.Errorf("TotalItems = %d, want %d", c.TotalItems, tt.wantItems)
			}
			if c.TotalAmount != tt.wantAmount {
				t.Errorf("TotalAmount = %d, want %d", c.TotalAmount, tt.wantAmount)
			}
		})
	}
}
