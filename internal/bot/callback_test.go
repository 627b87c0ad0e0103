package bot

import "testing"

func TestActionRoundTrip(t *testing.T) {
	actions := []Action{
		{Kind: ActionShowMenu},
		{Kind: ActionShowOrders},
		{Kind: ActionShowOrders, Page: 3},
		{Kind: ActionViewOrder, OrderID: "ord-1"},
		{Kind: ActionViewOrder, OrderID: "ORD_2024_001"},
		{Kind: ActionConfirmOrder, OrderID: "a_b_c"},
		{Kind: ActionCancelOrder, OrderID: "ord-2"},
		{Kind: ActionShowStats},
		{Kind: ActionShowHelp},
		{Kind: ActionShowLink},
		{Kind: ActionShowLogin},
	}

	for _, want := range actions {
		data := want.Encode()
		got, ok := DecodeAction(data)
		if !ok {
			t.Errorf("DecodeAction(%q) failed", data)
			continue
		}
		if got != want {
			t.Errorf("DecodeAction(%q) = %+v, want %+v", data, got, want)
		}
	}
}

func TestDecodeActionRejectsGarbage(t *testing.T) {
	payloads := []string{
		"",
		"_",
		"menu",
		"menu_bogus",
		"orders_page_abc",
		"orders_page_-1",
		"orders_bogus_1",
		"order_view",
		"confirm",
		"unknown_thing",
	}
	for _, data := range payloads {
		if action, ok := DecodeAction(data); ok {
			t.Errorf("DecodeAction(%q) = %+v, expected rejection", data, action)
		}
	}
}

func TestEncodeOrdersPage(t *testing.T) {
	if got := (Action{Kind: ActionShowOrders, Page: 2}).Encode(); got != "orders_page_2" {
		t.Fatalf("encode = %q", got)
	}
}
