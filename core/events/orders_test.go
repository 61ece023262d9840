package events_test

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"testing"

	"payprotector/core/events"
	"payprotector/core/types"
)

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func TestOrderEventsHaveDeterministicPayloads(t *testing.T) {
	buyer := testAddr(0xAA)
	seller := testAddr(0xBB)
	insurer := testAddr(0xCC)

	cases := []struct {
		name  string
		event events.Event
		typ   string
		attrs map[string]string
	}{
		{
			name:  "order created",
			event: events.OrderCreated{ID: 4, Buyer: buyer, Seller: seller, Amount: big.NewInt(300)},
			typ:   events.TypeOrderCreated,
			attrs: map[string]string{
				"id":     "4",
				"buyer":  hex.EncodeToString(buyer[:]),
				"seller": hex.EncodeToString(seller[:]),
				"amount": "300",
			},
		},
		{
			name:  "auction created",
			event: events.DutchAuctionCreated{ID: 4, StartTimestamp: 1_700_000_123, Timespan: 10, LowestAmount: big.NewInt(200)},
			typ:   events.TypeDutchAuctionCreated,
			attrs: map[string]string{
				"id":             "4",
				"startTimestamp": "1700000123",
				"timespan":       "10",
				"lowestAmount":   "200",
			},
		},
		{
			name:  "order cancelled",
			event: events.OrderCancelled{ID: 4},
			typ:   events.TypeOrderCancelled,
			attrs: map[string]string{"id": "4"},
		},
		{
			name:  "order insured",
			event: events.OrderInsured{ID: 4, Insurer: insurer, Amount: big.NewInt(212)},
			typ:   events.TypeOrderInsured,
			attrs: map[string]string{
				"id":      "4",
				"insurer": hex.EncodeToString(insurer[:]),
				"amount":  "212",
			},
		},
		{
			name:  "order resolved",
			event: events.OrderResolved{ID: 4, Claimed: true},
			typ:   events.TypeOrderResolved,
			attrs: map[string]string{"id": "4", "claimed": "true"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.event.EventType(); got != tc.typ {
				t.Fatalf("event type %q, want %q", got, tc.typ)
			}
			payload := tc.event.(interface{ Event() *types.Event }).Event()
			if payload.Type != tc.typ {
				t.Fatalf("payload type %q, want %q", payload.Type, tc.typ)
			}
			if !reflect.DeepEqual(payload.Attributes, tc.attrs) {
				t.Fatalf("attributes %v, want %v", payload.Attributes, tc.attrs)
			}
		})
	}
}

func TestRecorderRetainsMostRecent(t *testing.T) {
	rec := events.NewRecorder(2)
	for i := uint64(0); i < 5; i++ {
		rec.Emit(events.OrderCancelled{ID: i})
	}
	got := rec.Events()
	if len(got) != 2 {
		t.Fatalf("recorder kept %d events, want 2", len(got))
	}
	want := []events.Event{events.OrderCancelled{ID: 3}, events.OrderCancelled{ID: 4}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("recorder kept %v, want %v", got, want)
	}
}

func TestRecorderIgnoresNil(t *testing.T) {
	rec := events.NewRecorder(4)
	rec.Emit(nil)
	if len(rec.Events()) != 0 {
		t.Fatalf("nil event recorded")
	}
}

func ExampleOrderCreated() {
	evt := events.OrderCreated{ID: 1, Amount: big.NewInt(300)}
	fmt.Println(evt.EventType())
	// Output: order.created
}
