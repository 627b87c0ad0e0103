package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind enumerates the closed set of inline-button actions.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionShowMenu
	ActionShowOrders
	ActionViewOrder
	ActionConfirmOrder
	ActionCancelOrder
	ActionShowStats
	ActionShowHelp
	ActionShowLink
	ActionShowLogin
)

// Action is a decoded callback payload. Every inline button carries one
// of these; Encode and DecodeAction are the only places the wire format
// lives.
type Action struct {
	Kind    ActionKind
	Page    int
	OrderID string
}

// Encode renders the action into its callback-data string. The format
// stays compatible with the payloads earlier bot revisions emitted:
// an underscore-delimited namespace followed by arguments.
func (a Action) Encode() string {
	switch a.Kind {
	case ActionShowMenu:
		return "menu_main"
	case ActionShowOrders:
		return fmt.Sprintf("orders_page_%d", a.Page)
	case ActionViewOrder:
		return "order_view_" + a.OrderID
	case ActionConfirmOrder:
		return "confirm_" + a.OrderID
	case ActionCancelOrder:
		return "cancel_" + a.OrderID
	case ActionShowStats:
		return "menu_stats"
	case ActionShowHelp:
		return "menu_help"
	case ActionShowLink:
		return "menu_link"
	case ActionShowLogin:
		return "menu_login"
	default:
		return ""
	}
}

// DecodeAction parses callback data back into an Action. Order id
// tokens are rejoined from all remaining parts, so ids containing
// underscores survive the round trip.
func DecodeAction(data string) (Action, bool) {
	parts := strings.Split(data, "_")
	if len(parts) == 0 || parts[0] == "" {
		return Action{}, false
	}

	switch parts[0] {
	case "menu":
		if len(parts) < 2 {
			return Action{}, false
		}
		switch parts[1] {
		case "main":
			return Action{Kind: ActionShowMenu}, true
		case "orders":
			return Action{Kind: ActionShowOrders}, true
		case "stats":
			return Action{Kind: ActionShowStats}, true
		case "help":
			return Action{Kind: ActionShowHelp}, true
		case "link":
			return Action{Kind: ActionShowLink}, true
		case "login":
			return Action{Kind: ActionShowLogin}, true
		}
		return Action{}, false
	case "orders":
		if len(parts) == 3 && parts[1] == "page" {
			page, err := strconv.Atoi(parts[2])
			if err != nil || page < 0 {
				return Action{}, false
			}
			return Action{Kind: ActionShowOrders, Page: page}, true
		}
		return Action{}, false
	case "order":
		if len(parts) >= 3 && parts[1] == "view" {
			return Action{Kind: ActionViewOrder, OrderID: strings.Join(parts[2:], "_")}, true
		}
		return Action{}, false
	case "confirm":
		if len(parts) >= 2 {
			return Action{Kind: ActionConfirmOrder, OrderID: strings.Join(parts[1:], "_")}, true
		}
		return Action{}, false
	case "cancel":
		if len(parts) >= 2 {
			return Action{Kind: ActionCancelOrder, OrderID: strings.Join(parts[1:], "_")}, true
		}
		return Action{}, false
	}

	return Action{}, false
}
