package bot

import (
	"strings"
	"testing"

	"kycut-bot/internal/model"
	"kycut-bot/internal/service"
)

func TestOrdersKeyboardNavigation(t *testing.T) {
	orders := []model.Order{{ID: "ord-1"}, {ID: "ord-2"}}

	tests := []struct {
		name         string
		page         int
		totalPages   int
		wantPrevious bool
		wantNext     bool
	}{
		{"single page", 0, 1, false, false},
		{"first of three", 0, 3, false, true},
		{"middle", 1, 3, true, true},
		{"last", 2, 3, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := ordersKeyboard(orders, tt.page, tt.totalPages)

			var hasPrevious, hasNext bool
			for _, row := range kb.InlineKeyboard {
				for _, btn := range row {
					if strings.Contains(btn.Text, "Previous") {
						hasPrevious = true
					}
					if strings.Contains(btn.Text, "Next") {
						hasNext = true
					}
				}
			}
			if hasPrevious != tt.wantPrevious || hasNext != tt.wantNext {
				t.Fatalf("previous=%t next=%t, want previous=%t next=%t",
					hasPrevious, hasNext, tt.wantPrevious, tt.wantNext)
			}
		})
	}
}

func TestOrdersKeyboardRowPerOrder(t *testing.T) {
	orders := []model.Order{{ID: "ord-1"}, {OrderNumber: "ORD-2024-002"}}
	kb := ordersKeyboard(orders, 0, 1)

	// Two order rows plus the footer row; no nav row on a single page.
	if len(kb.InlineKeyboard) != 3 {
		t.Fatalf("got %d rows", len(kb.InlineKeyboard))
	}

	confirm := kb.InlineKeyboard[1][1]
	if confirm.CallbackData == nil || *confirm.CallbackData != "confirm_ORD-2024-002" {
		t.Fatalf("confirm payload = %v", confirm.CallbackData)
	}
}

func TestOrdersListTextNumbersAcrossPages(t *testing.T) {
	pageOrders := []model.Order{{ID: "ord-6", Status: "pending", TotalAmount: 12.5}}
	sum := service.Summary{Count: 6, TotalSpent: 75, Pending: 6}

	text := ordersListText(pageOrders, sum, 1, 2)
	if !strings.Contains(text, "Page 2/2") {
		t.Errorf("missing page header: %q", text)
	}
	if !strings.Contains(text, "6. <b>ord-6</b>") {
		t.Errorf("expected global numbering to continue: %q", text)
	}
}

func TestMaskToken(t *testing.T) {
	if got := maskToken("short"); got != "..." {
		t.Errorf("short token = %q", got)
	}
	if got := maskToken("abcdef0123456789"); got != "abcdef...6789" {
		t.Errorf("masked = %q", got)
	}
}

func TestFormatOrderDate(t *testing.T) {
	if got := formatOrderDate("2024-03-05T10:00:00Z"); got != "03/05/2024" {
		t.Errorf("date = %q", got)
	}
	if got := formatOrderDate("not a date"); got != "Unknown" {
		t.Errorf("bad input = %q", got)
	}
	if got := formatOrderDate(""); got != "Unknown" {
		t.Errorf("empty input = %q", got)
	}
}

func TestWelcomeTextEscapesName(t *testing.T) {
	text := welcomeText("<Mallory>")
	if strings.Contains(text, "<Mallory>") {
		t.Fatal("name not escaped")
	}
	if !strings.Contains(text, "&lt;Mallory&gt;") {
		t.Fatalf("escaped name missing: %q", text)
	}
}
