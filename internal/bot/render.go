package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kycut-bot/internal/model"
	"kycut-bot/internal/service"
)

func escape(s string) string {
	return html.EscapeString(s)
}

func statusEmoji(status string) string {
	switch strings.ToUpper(status) {
	case "PENDING":
		return "⏳"
	case "CONFIRMED":
		return "✅"
	case "PROCESSING":
		return "🔄"
	case "SHIPPED":
		return "🚚"
	case "DELIVERED":
		return "📦"
	case "CANCELLED":
		return "❌"
	default:
		return "❓"
	}
}

func formatOrderDate(raw string) string {
	if raw == "" {
		return "Unknown"
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "Unknown"
	}
	return t.Format("01/02/2006")
}

func welcomeText(firstName string) string {
	if firstName == "" {
		firstName = "there"
	}
	return fmt.Sprintf(
		"🎉 <b>Welcome to KYCut, %s!</b>\n\n"+
			"I'm your assistant for orders from the KYCut shop.\n\n"+
			"<b>🔗 Get started:</b>\n"+
			"• /link CODE — connect your account with an 8-character code\n"+
			"• /login EMAIL PASSWORD — sign in with your credentials\n"+
			"• /menu — all options\n\n"+
			"<b>📦 What I can do:</b>\n"+
			"• Show your orders and order history\n"+
			"• Confirm or cancel pending orders\n"+
			"• Provide order statistics\n\n"+
			"Use /help for the full command list.",
		escape(firstName),
	)
}

func helpText() string {
	return "🤖 <b>KYCut Bot Help</b>\n\n" +
		"• /menu — main menu\n" +
		"• /link CODE — link your account with an 8-character code\n" +
		"• /login EMAIL_OR_USERNAME PASSWORD — sign in to the website\n" +
		"• /orders — list your orders\n" +
		"• /order ID — view a specific order\n" +
		"• /stats — your order statistics\n" +
		"• /auth — show your auth status\n" +
		"• /status — website system status\n" +
		"• /ping — test the bot\n" +
		"• /logout — sign out from the bot"
}

func authRequiredText() string {
	return "❌ <b>Authentication Required</b>\n\n" +
		"Please link your account first:\n" +
		"• Use /link CODE with your 8-character code\n" +
		"• Or use /login EMAIL PASSWORD\n\n" +
		"Get your linking code from the website account page."
}

func menuText(sess model.Session, authed bool) string {
	if !authed {
		return "🏠 <b>Main Menu</b>\n\n" +
			"Welcome to KYCut Bot! To get started, link your website account or log in.\n\n" +
			"<b>🔗 Account linking</b> — use /link CODE or /login EMAIL PASSWORD.\n\n" +
			"Use /help for the full command list."
	}
	name := sess.UserData.Name
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf(
		"🏠 <b>Main Menu — %s</b>\n\n"+
			"Welcome to your KYCut dashboard. Choose an option below:\n\n"+
			"<b>📋 Orders</b> — view and manage your orders from Telegram.\n"+
			"<b>📊 Stats</b> — your order statistics.\n\n"+
			"Use the buttons below to navigate.",
		escape(name),
	)
}

func linkMenuText() string {
	return "🔗 <b>Account Linking</b>\n\n" +
		"You can link your account with a linking code or by logging in.\n\n" +
		"<b>Linking code:</b>\n" +
		"1. Get your 8-character code from the website account page\n" +
		"2. Use <code>/link YOUR_CODE</code>\n\n" +
		"<b>Login credentials:</b>\n" +
		"Use <code>/login EMAIL PASSWORD</code>."
}

func loginMenuText() string {
	return "🔐 <b>Login</b>\n\n" +
		"Usage:\n<code>/login EMAIL_OR_USERNAME PASSWORD</code>\n\n" +
		"Example:\n<code>/login user@mail.com StrongPass123</code>\n\n" +
		"For better security prefer /link CODE."
}

func ordersListText(pageOrders []model.Order, sum service.Summary, page, totalPages int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>Your Orders</b> (Page %d/%d)\n\n", page+1, max(totalPages, 1)))
	b.WriteString("<b>📊 Quick Stats:</b>\n")
	b.WriteString(fmt.Sprintf("• Total Orders: %d\n", sum.Count))
	b.WriteString(fmt.Sprintf("• Total Spent: $%.2f\n", sum.TotalSpent))
	b.WriteString(fmt.Sprintf("• Pending: %d | Completed: %d\n\n", sum.Pending, sum.Completed))
	b.WriteString("<b>📦 Orders:</b>\n")

	offset := page * service.OrdersPerPage
	for i, order := range pageOrders {
		status := strings.ToUpper(order.Status)
		if status == "" {
			status = "PENDING"
		}
		b.WriteString(fmt.Sprintf(
			"\n%d. <b>%s</b> %s\n   $%.2f • %s • %s\n",
			offset+i+1,
			escape(order.DisplayID()),
			statusEmoji(status),
			order.TotalAmount,
			formatOrderDate(order.CreatedAt),
			status,
		))
	}
	return strings.TrimSpace(b.String())
}

func noOrdersText() string {
	return "📋 <b>No Orders Found</b>\n\nYou don't have any orders yet."
}

func orderDetailsText(order model.Order) string {
	var b strings.Builder
	b.WriteString("📋 <b>Order Details</b>\n\n")
	b.WriteString(fmt.Sprintf("<b>Order ID:</b> <code>%s</code>\n", escape(order.DisplayID())))
	b.WriteString(fmt.Sprintf("<b>Status:</b> %s %s\n", statusEmoji(order.Status), strings.ToUpper(order.Status)))
	b.WriteString(fmt.Sprintf("<b>Total:</b> $%.2f\n", order.TotalAmount))

	if len(order.Items) > 0 {
		b.WriteString("\n<b>Items:</b>\n")
		for _, item := range order.Items {
			b.WriteString(fmt.Sprintf("• %s x%d — $%.2f\n", escape(item.Name), item.Quantity, item.Price))
		}
	}

	b.WriteString("\n<b>Customer:</b>\n")
	b.WriteString(fmt.Sprintf("• Name: %s\n", escape(orDefault(order.CustomerName, "N/A"))))
	b.WriteString(fmt.Sprintf("• Email: %s", escape(orDefault(order.CustomerEmail, "N/A"))))
	return b.String()
}

func statsText(stats model.OrderStats) string {
	return fmt.Sprintf(
		"📊 <b>Your Order Statistics</b>\n\n"+
			"<b>📦 Orders Overview:</b>\n"+
			"• Total Orders: %d\n"+
			"• Total Value: $%.2f\n"+
			"• Pending Orders: %d\n"+
			"• Completed Orders: %d\n\n"+
			"<b>📈 Recent Activity:</b>\n"+
			"• Orders (Last 7 Days): %d",
		stats.TotalOrders, stats.TotalValue, stats.PendingOrders, stats.CompletedOrders, stats.RecentOrders,
	)
}

func systemStatusText(status model.SystemStatus) string {
	return fmt.Sprintf(
		"🤖 <b>Bot System Status</b>\n\n"+
			"<b>🔧 System Health:</b>\n"+
			"• Database: %s\n"+
			"• API Server: %s\n"+
			"• Redis Cache: %s\n\n"+
			"<b>📊 Statistics:</b>\n"+
			"• Active Users: %d\n"+
			"• Total Sessions: %d\n"+
			"• Commands Today: %d\n\n"+
			"<b>⏰ Uptime:</b> %s",
		healthMark(status.Database), healthMark(status.APIServer), healthMark(status.Redis),
		status.ActiveUsers, status.TotalSessions, status.CommandsToday,
		orDefault(status.Uptime, "Unknown"),
	)
}

func pingText(rtt time.Duration, online, authed bool, userID int64) string {
	emoji, text := "🔴", "Offline"
	if online {
		emoji, text = "🟢", "Online"
	}
	authMark := "❌"
	if authed {
		authMark = "✅"
	}
	return fmt.Sprintf(
		"%s <b>Bot Status: %s</b>\n\n"+
			"<b>Response Time:</b> %dms\n\n"+
			"<b>Your Session:</b>\n"+
			"• Authenticated: %s\n"+
			"• User ID: <code>%d</code>",
		emoji, text, rtt.Milliseconds(), authMark, userID,
	)
}

func authStatusText(sess model.Session, authed bool) string {
	via := sess.LinkedVia
	if via == "" {
		via = model.LinkedViaUnknown
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔐 Authenticated: %t\nVia: %s", authed, via))
	if sess.BotToken != "" {
		b.WriteString(fmt.Sprintf("\nToken: <code>%s</code>", maskToken(sess.BotToken)))
	}
	if sess.TokenExpires != nil {
		b.WriteString(fmt.Sprintf("\nExpires: %s", sess.TokenExpires.Format("2006-01-02 15:04")))
	}
	return b.String()
}

func adminOrderText(order model.Order, telegramUsername string) string {
	var items strings.Builder
	for _, item := range order.Items {
		items.WriteString(fmt.Sprintf("• %s x%d — $%.2f\n", escape(item.Name), item.Quantity, item.Price))
	}
	return fmt.Sprintf(
		"🔔 <b>NEW ORDER CONFIRMED</b>\n\n"+
			"<b>Order ID:</b> <code>%s</code>\n"+
			"<b>Total:</b> $%.2f\n"+
			"<b>Confirmed:</b> %s\n\n"+
			"<b>Items:</b>\n%s\n"+
			"<b>Customer:</b>\n"+
			"• Name: %s\n"+
			"• Email: %s\n"+
			"• Telegram: @%s\n\n"+
			"Please process this order and contact the customer.",
		escape(order.DisplayID()),
		order.TotalAmount,
		time.Now().Format("2006-01-02 15:04:05"),
		items.String(),
		escape(orDefault(order.CustomerName, "N/A")),
		escape(orDefault(order.CustomerEmail, "N/A")),
		escape(orDefault(telegramUsername, "N/A")),
	)
}

func maskToken(token string) string {
	if len(token) <= 10 {
		return "..."
	}
	return token[:6] + "..." + token[len(token)-4:]
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func startKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔗 Link Account", Action{Kind: ActionShowLink}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📦 View Orders", Action{Kind: ActionShowOrders}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("📊 Order Stats", Action{Kind: ActionShowStats}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Help", Action{Kind: ActionShowHelp}.Encode()),
		),
	)
}

func menuKeyboard(authed bool) tgbotapi.InlineKeyboardMarkup {
	if !authed {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔗 Link Account", Action{Kind: ActionShowLink}.Encode()),
				tgbotapi.NewInlineKeyboardButtonData("🔐 Login", Action{Kind: ActionShowLogin}.Encode()),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("ℹ️ Help", Action{Kind: ActionShowHelp}.Encode()),
			),
		)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 My Orders", Action{Kind: ActionShowOrders}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Order Stats", Action{Kind: ActionShowStats}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Help", Action{Kind: ActionShowHelp}.Encode()),
		),
	)
}

// ordersKeyboard builds one row per listed order plus navigation that
// only offers pages that actually exist.
func ordersKeyboard(pageOrders []model.Order, page, totalPages int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, order := range pageOrders {
		id := order.DisplayID()
		display := id
		if len(display) > 12 {
			display = display[:12]
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 "+display, Action{Kind: ActionViewOrder, OrderID: id}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", Action{Kind: ActionConfirmOrder, OrderID: id}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", Action{Kind: ActionCancelOrder, OrderID: id}.Encode()),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Previous", Action{Kind: ActionShowOrders, Page: page - 1}.Encode()))
	}
	if page < totalPages-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", Action{Kind: ActionShowOrders, Page: page + 1}.Encode()))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📊 Statistics", Action{Kind: ActionShowStats}.Encode()),
		tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", Action{Kind: ActionShowMenu}.Encode()),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func orderDetailsKeyboard(orderID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm Order", Action{Kind: ActionConfirmOrder, OrderID: orderID}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel Order", Action{Kind: ActionCancelOrder, OrderID: orderID}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", Action{Kind: ActionShowMenu}.Encode()),
		),
	)
}

func backToMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", Action{Kind: ActionShowMenu}.Encode()),
		),
	)
}

func healthMark(ok bool) string {
	if ok {
		return "✅ Connected"
	}
	return "❌ Disconnected"
}
