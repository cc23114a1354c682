package service

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
)

func TestSplitInputs(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateTransactionRequest
		want    []ledger.SplitInput
		wantErr bool
	}{
		{
			name: "exact splits pass through",
			req: CreateTransactionRequest{
				TotalAmount: m("10.00"),
				Splits:      []SplitRequest{{ContactID: "ann", Amount: m("4.00"), CategoryID: "food"}},
			},
			want: []ledger.SplitInput{{ContactID: "ann", Amount: m("4.00"), CategoryID: "food"}},
		},
		{
			name: "personal expense",
			req:  CreateTransactionRequest{TotalAmount: m("10.00")},
			want: []ledger.SplitInput{},
		},
		{
			name: "equal with remainder",
			req: CreateTransactionRequest{
				TotalAmount: m("10.00"),
				Equal:       &EqualSplitRequest{ContactIDs: []string{"ann", "bob"}, IncludeSelf: true, CategoryID: "food"},
			},
			want: []ledger.SplitInput{
				{ContactID: "ann", Amount: m("3.34"), CategoryID: "food"},
				{ContactID: "bob", Amount: m("3.33"), CategoryID: "food"},
			},
		},
		{
			name: "itemized collects participants",
			req: CreateTransactionRequest{
				TotalAmount: m("12.00"),
				Itemized: &ItemizedSplitRequest{Items: []ItemRequest{
					{Amount: m("6.00"), AssignedTo: []string{"ann"}},
					{Amount: m("4.00"), AssignedTo: []string{calculator.Self, "bob"}},
				}},
			},
			want: []ledger.SplitInput{
				{ContactID: "ann", Amount: m("7.20")},
				{ContactID: "bob", Amount: m("2.40")},
			},
		},
		{
			name: "contact paid records own share against payer",
			req: CreateTransactionRequest{
				PayerContactID: "ann",
				TotalAmount:    m("9.00"),
				Equal:          &EqualSplitRequest{ContactIDs: []string{"ann", "bob"}, IncludeSelf: true},
			},
			want: []ledger.SplitInput{{ContactID: "ann", Amount: m("-3.00")}},
		},
		{
			name: "contact paid without own share",
			req: CreateTransactionRequest{
				PayerContactID: "ann",
				TotalAmount:    m("9.00"),
				Equal:          &EqualSplitRequest{ContactIDs: []string{"ann", "bob"}},
			},
			want: nil,
		},
		{
			name: "two modes",
			req: CreateTransactionRequest{
				TotalAmount: m("9.00"),
				Splits:      []SplitRequest{{ContactID: "ann", Amount: m("1.00")}},
				Itemized:    &ItemizedSplitRequest{},
			},
			wantErr: true,
		},
		{
			name: "itemized without items",
			req: CreateTransactionRequest{
				TotalAmount: m("9.00"),
				Itemized:    &ItemizedSplitRequest{},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitInputs(&tt.req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
