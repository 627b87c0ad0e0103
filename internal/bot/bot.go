package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kycut-bot/internal/config"
	"kycut-bot/internal/model"
	"kycut-bot/internal/service"
)

// Bot aggregates the Telegram API with the session and order services.
type Bot struct {
	api      *tgbotapi.BotAPI
	sessions *service.SessionService
	orders   *service.OrderService
	status   *service.StatusService
	config   *config.Config
}

func New(token string, sessions *service.SessionService, orders *service.OrderService, status *service.StatusService, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:      api,
		sessions: sessions,
		orders:   orders,
		status:   status,
		config:   cfg,
	}, nil
}

// Start begins polling updates until ctx is cancelled. No handler
// error escapes the loop: unexpected failures are logged, reported to
// the admin chat, and answered with a generic apology.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			cb := update.CallbackQuery
			if cb.From == nil || cb.Message == nil {
				continue
			}
			if err := b.handleCallback(ctx, cb); err != nil {
				b.reportError(ctx, cb.From.ID, cb.Message.Chat.ID, cb.Data, err)
			}
		case update.Message != nil:
			msg := update.Message
			if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, msg); err != nil {
				b.reportError(ctx, msg.From.ID, msg.Chat.ID, commandOf(msg), err)
			}
		}
	}

	return nil
}

func commandOf(msg *tgbotapi.Message) string {
	if msg.IsCommand() {
		return msg.Command()
	}
	return "message"
}

// target addresses one outbound reply: a new message, or an in-place
// edit when messageID is set (callback replies).
type target struct {
	chatID    int64
	messageID int
}

func (b *Bot) render(t target, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	if t.messageID != 0 {
		edit := tgbotapi.NewEditMessageText(t.chatID, t.messageID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		edit.ReplyMarkup = markup
		if _, err := b.api.Send(edit); err == nil {
			return nil
		}
		// Message may be too old to edit; fall through to a new message.
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		err := b.handleCommand(ctx, msg)
		b.sessions.LogCommand(ctx, msg.From.ID, msg.Command(), err == nil)
		return err
	}

	// Free-text fallback.
	switch strings.ToLower(strings.TrimSpace(msg.Text)) {
	case "menu", "start", "help":
		return b.showMenu(ctx, target{chatID: msg.Chat.ID}, msg.From.ID)
	default:
		return b.render(target{chatID: msg.Chat.ID},
			"I didn't understand that. Try /menu, /orders, /link CODE or /login EMAIL PASSWORD.", nil)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	t := target{chatID: msg.Chat.ID}
	userID := msg.From.ID

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.render(t, helpText(), nil)
	case "menu":
		return b.showMenu(ctx, t, userID)
	case "link":
		return b.handleLink(ctx, msg)
	case "login":
		return b.handleLogin(ctx, msg)
	case "logout":
		return b.handleLogout(ctx, msg)
	case "auth":
		return b.handleAuth(ctx, msg)
	case "orders":
		page := 0
		if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
			if n, err := strconv.Atoi(arg); err == nil && n > 0 {
				page = n - 1
			}
		}
		return b.showOrders(ctx, t, userID, page)
	case "order":
		return b.handleOrder(ctx, msg)
	case "ping":
		return b.handlePing(ctx, msg)
	case "stats":
		return b.showStats(ctx, t, userID)
	case "status":
		return b.handleStatus(ctx, msg)
	default:
		return b.render(t, "Unknown command. See /help for the command list.", nil)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	// Activity heartbeat is best effort; a down website must not break /start.
	if err := b.status.UpdateActivity(ctx, msg.From.ID); err != nil {
		log.Printf("[warn] activity update for %d: %v", msg.From.ID, err)
	}

	kb := startKeyboard()
	return b.render(target{chatID: msg.Chat.ID}, welcomeText(msg.From.FirstName), &kb)
}

func (b *Bot) showMenu(ctx context.Context, t target, userID int64) error {
	authed := b.sessions.IsAuthenticated(ctx, userID)
	sess, _ := b.sessions.Session(ctx, userID)
	kb := menuKeyboard(authed)
	return b.render(t, menuText(sess, authed), &kb)
}

func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) error {
	t := target{chatID: msg.Chat.ID}
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return b.render(t,
			"🔗 <b>Account Linking</b>\n\n"+
				"Please provide your 8-character linking code:\n"+
				"<code>/link YOUR_CODE</code>\n\n"+
				"Example: <code>/link ABC12345</code>\n\n"+
				"Get your code from the account page on the website.", nil)
	}

	_, err := b.sessions.Link(ctx, msg.From.ID, msg.From.UserName, args[0])
	if errors.Is(err, service.ErrInvalidCode) {
		return b.render(t,
			"❌ <b>Invalid Code Format</b>\n\n"+
				"Linking codes must be exactly 8 characters.\n"+
				"Example: <code>ABC12345</code>\n\n"+
				"Please check your code and try again.", nil)
	}
	if err != nil {
		return b.render(t, fmt.Sprintf(
			"❌ <b>Linking Failed</b>\n\n"+
				"Error: %s\n\n"+
				"<b>Troubleshooting:</b>\n"+
				"• Check if the code is correct (8 characters)\n"+
				"• Make sure the code hasn't expired (10 minutes)\n"+
				"• Generate a new code from the website", escape(err.Error())), nil)
	}

	if err := b.render(t,
		"✅ <b>Account Linked Successfully!</b>\n\n"+
			"Your Telegram account is now connected to KYCut.\n\n"+
			"<b>What's next?</b>\n"+
			"• Use /orders to view your orders\n"+
			"• Use /menu for the main navigation\n"+
			"• You'll receive notifications for new orders", nil); err != nil {
		return err
	}
	return b.showMenu(ctx, t, msg.From.ID)
}

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message) error {
	t := target{chatID: msg.Chat.ID}
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		return b.render(t, loginMenuText(), nil)
	}
	emailOrUsername := args[0]
	password := strings.Join(args[1:], " ")

	_, err := b.sessions.Login(ctx, msg.From.ID, msg.From.UserName, emailOrUsername, password)
	if err != nil {
		return b.render(t, fmt.Sprintf("❌ Login failed: %s", escape(err.Error())), nil)
	}

	if err := b.render(t, "✅ Logged in! Use /orders to view your orders or /menu.", nil); err != nil {
		return err
	}
	return b.showMenu(ctx, t, msg.From.ID)
}

func (b *Bot) handleLogout(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.sessions.Logout(ctx, msg.From.ID); err != nil {
		return err
	}
	return b.render(target{chatID: msg.Chat.ID},
		"🚪 Logged out. Use /login or /link to connect again.", nil)
}

func (b *Bot) handleAuth(ctx context.Context, msg *tgbotapi.Message) error {
	sess, _ := b.sessions.Session(ctx, msg.From.ID)
	authed := b.sessions.IsAuthenticated(ctx, msg.From.ID)
	return b.render(target{chatID: msg.Chat.ID}, authStatusText(sess, authed), nil)
}

func (b *Bot) showOrders(ctx context.Context, t target, userID int64, page int) error {
	if !b.sessions.IsAuthenticated(ctx, userID) {
		return b.render(t, authRequiredText(), nil)
	}
	sess, _ := b.sessions.Session(ctx, userID)

	orders, err := b.orders.List(ctx, sess)
	if err != nil {
		return b.render(t, fmt.Sprintf("❌ <b>Failed to Load Orders</b>\n\nError: %s", escape(err.Error())), nil)
	}
	if len(orders) == 0 {
		kb := backToMenuKeyboard()
		return b.render(t, noOrdersText(), &kb)
	}

	pageOrders, page, totalPages := service.Paginate(orders, page)
	kb := ordersKeyboard(pageOrders, page, totalPages)
	return b.render(t, ordersListText(pageOrders, service.Summarize(orders), page, totalPages), &kb)
}

func (b *Bot) handleOrder(ctx context.Context, msg *tgbotapi.Message) error {
	t := target{chatID: msg.Chat.ID}
	orderID := strings.TrimSpace(msg.CommandArguments())
	if orderID == "" {
		return b.render(t, "Usage: <code>/order ORDER_ID</code>", nil)
	}
	return b.showOrderDetails(ctx, t, msg.From.ID, orderID)
}

func (b *Bot) showOrderDetails(ctx context.Context, t target, userID int64, orderID string) error {
	if !b.sessions.IsAuthenticated(ctx, userID) {
		return b.render(t, authRequiredText(), nil)
	}
	sess, _ := b.sessions.Session(ctx, userID)

	order, err := b.orders.Find(ctx, sess, orderID)
	if err != nil {
		return b.render(t, fmt.Sprintf(
			"❌ <b>Order Not Found</b>\n\n"+
				"Order ID: <code>%s</code>\n"+
				"Error: %s\n\n"+
				"Please check the order ID and try again.",
			escape(orderID), escape(err.Error())), nil)
	}

	kb := orderDetailsKeyboard(order.DisplayID())
	return b.render(t, orderDetailsText(order), &kb)
}

func (b *Bot) handlePing(ctx context.Context, msg *tgbotapi.Message) error {
	rtt, online := b.status.Ping(ctx)
	authed := b.sessions.IsAuthenticated(ctx, msg.From.ID)
	return b.render(target{chatID: msg.Chat.ID}, pingText(rtt, online, authed, msg.From.ID), nil)
}

func (b *Bot) showStats(ctx context.Context, t target, userID int64) error {
	if !b.sessions.IsAuthenticated(ctx, userID) {
		return b.render(t, authRequiredText(), nil)
	}
	sess, _ := b.sessions.Session(ctx, userID)

	stats, err := b.orders.RemoteStats(ctx, sess)
	if err != nil {
		// The stats endpoint is optional on older deployments; compute
		// the summary locally from the order list instead.
		orders, listErr := b.orders.List(ctx, sess)
		if listErr != nil {
			return b.render(t, fmt.Sprintf("❌ Failed to get statistics: %s", escape(listErr.Error())), nil)
		}
		sum := service.Summarize(orders)
		stats = model.OrderStats{
			TotalOrders:     sum.Count,
			TotalValue:      sum.TotalSpent,
			PendingOrders:   sum.Pending,
			CompletedOrders: sum.Completed,
		}
	}

	kb := backToMenuKeyboard()
	return b.render(t, statsText(stats), &kb)
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) error {
	t := target{chatID: msg.Chat.ID}
	status, err := b.status.SystemStatus(ctx)
	if err != nil {
		return b.render(t, fmt.Sprintf("❌ Failed to get bot status: %s", escape(err.Error())), nil)
	}
	return b.render(t, systemStatusText(status), nil)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("[warn] callback ack: %v", err)
	}

	action, ok := DecodeAction(cb.Data)
	if !ok {
		log.Printf("[warn] unknown callback payload from %d: %q", cb.From.ID, cb.Data)
		return nil
	}

	t := target{chatID: cb.Message.Chat.ID, messageID: cb.Message.MessageID}
	userID := cb.From.ID

	switch action.Kind {
	case ActionShowMenu:
		return b.showMenu(ctx, t, userID)
	case ActionShowOrders:
		return b.showOrders(ctx, t, userID, action.Page)
	case ActionViewOrder:
		return b.showOrderDetails(ctx, t, userID, action.OrderID)
	case ActionConfirmOrder:
		return b.confirmOrder(ctx, t, userID, action.OrderID)
	case ActionCancelOrder:
		return b.cancelOrder(ctx, t, userID, action.OrderID)
	case ActionShowStats:
		return b.showStats(ctx, t, userID)
	case ActionShowHelp:
		return b.render(t, helpText(), nil)
	case ActionShowLink:
		return b.render(t, linkMenuText(), nil)
	case ActionShowLogin:
		return b.render(t, loginMenuText(), nil)
	default:
		return nil
	}
}

func (b *Bot) confirmOrder(ctx context.Context, t target, userID int64, orderID string) error {
	if !b.sessions.IsAuthenticated(ctx, userID) {
		return b.render(t, authRequiredText(), nil)
	}
	sess, _ := b.sessions.Session(ctx, userID)

	order, err := b.orders.UpdateStatus(ctx, sess, orderID, service.StatusConfirmed)
	if err != nil {
		return b.render(t, fmt.Sprintf(
			"❌ <b>Confirmation Failed</b>\n\n"+
				"Error: %s\n\n"+
				"Please try again or contact support.", escape(err.Error())), nil)
	}

	if err := b.render(t, fmt.Sprintf(
		"✅ <b>Order Confirmed!</b>\n\n"+
			"Order ID: <code>%s</code>\n"+
			"Status: CONFIRMED\n\n"+
			"The admin has been notified and will process your order shortly.",
		escape(order.DisplayID())), nil); err != nil {
		return err
	}

	b.notifyAdmin(order, sess.UserData.TelegramUsername)
	return nil
}

func (b *Bot) cancelOrder(ctx context.Context, t target, userID int64, orderID string) error {
	if !b.sessions.IsAuthenticated(ctx, userID) {
		return b.render(t, authRequiredText(), nil)
	}
	sess, _ := b.sessions.Session(ctx, userID)

	order, err := b.orders.UpdateStatus(ctx, sess, orderID, service.StatusCancelled)
	if err != nil {
		return b.render(t, fmt.Sprintf(
			"❌ <b>Cancellation Failed</b>\n\n"+
				"Error: %s\n\n"+
				"Please try again or contact support.", escape(err.Error())), nil)
	}

	return b.render(t, fmt.Sprintf(
		"❌ <b>Order Cancelled</b>\n\n"+
			"Order ID: <code>%s</code>\n"+
			"Status: CANCELLED\n\n"+
			"The order has been cancelled successfully.",
		escape(order.DisplayID())), nil)
}

// notifyAdmin sends the confirmed-order summary to the admin chat.
// It is a best-effort side channel and never fails the user reply.
func (b *Bot) notifyAdmin(order model.Order, telegramUsername string) {
	if b.config.AdminChatID == 0 {
		log.Println("[warn] ADMIN_CHAT_ID not set, skipping admin notification")
		return
	}
	msg := tgbotapi.NewMessage(b.config.AdminChatID, adminOrderText(order, telegramUsername))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[warn] admin notification: %v", err)
	}
}

// reportError is the last line of defense for handler failures: the
// user gets a generic apology, the admin gets the details.
func (b *Bot) reportError(ctx context.Context, userID, chatID int64, command string, err error) {
	log.Printf("[error] handler failed for user %d (%s): %v", userID, command, err)

	if sendErr := b.render(target{chatID: chatID},
		"😓 Something went wrong on our side. Please try again in a moment.", nil); sendErr != nil {
		log.Printf("[warn] apology to %d: %v", chatID, sendErr)
	}

	if b.config.AdminChatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(b.config.AdminChatID,
		fmt.Sprintf("🚨 Bot error for user %d (%s): %v", userID, command, err))
	if _, sendErr := b.api.Send(msg); sendErr != nil {
		log.Printf("[warn] admin error report: %v", sendErr)
	}
}
