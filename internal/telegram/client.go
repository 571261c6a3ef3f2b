// Package telegram provides the bot client: it parses user commands into
// structured calls and delivers notifications via the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/minhtri/stockalert/internal/commands"
	"github.com/minhtri/stockalert/internal/logger"
	"github.com/minhtri/stockalert/internal/market"
	"github.com/minhtri/stockalert/internal/models"
	"github.com/minhtri/stockalert/internal/store"
)

const historyLimit = 10

// Client handles Telegram commands and notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	svc            *commands.Service
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken string, svc *commands.Service, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		svc:            svc,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and
// handles bot commands. It returns immediately; the goroutine stops when ctx
// is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(ctx, update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	owner := msg.From.ID
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		c.reply(chatID, usageText)
	case "alert":
		c.handleCreate(ctx, owner, chatID, args)
	case "list":
		c.handleList(ctx, owner, chatID)
	case "delete":
		c.handleDelete(owner, chatID, args)
	case "price":
		c.handlePrice(ctx, chatID, args)
	case "history":
		c.handleHistory(owner, chatID)
	}
}

const usageText = `🤖 *Stock Alert Bot VN*

/alert MaCK Gia : tạo cảnh báo giá
/list : xem danh sách cảnh báo
/delete SoThuTu : xóa cảnh báo
/price MaCK : xem giá hiện tại
/history : xem các thông báo gần đây
/help : xem hướng dẫn

💡 Bot kiểm tra giá mỗi 5 phút và báo khi đạt mục tiêu`

func (c *Client) handleCreate(ctx context.Context, owner, chatID int64, args []string) {
	if len(args) < 2 {
		c.reply(chatID, "❌ Sai cú pháp, dùng: /alert MaCK Gia")
		return
	}
	target, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		c.reply(chatID, "❌ Giá không hợp lệ, vui lòng nhập số")
		return
	}

	res, err := c.svc.CreateAlert(ctx, owner, args[0], target)
	if err != nil {
		c.replyCommandError(chatID, args[0], err)
		return
	}

	var eventLine string
	if res.Alert.Event.HasEvent {
		eventLine = fmt.Sprintf("⚠️ *GDKHQ:* %s, bot sẽ nhắc khi còn 1 tháng", escapeMarkdownV2(res.Alert.Event.Date))
	} else {
		eventLine = "✅ *GDKHQ:* không có sự kiện trong 3 tháng tới"
	}

	c.reply(chatID, fmt.Sprintf(`✅ *Đã tạo cảnh báo*

📊 Mã: %s
💰 Giá hiện tại: %s
🎯 Giá mục tiêu: %s
📈 Thay đổi: %s
%s`,
		escapeMarkdownV2(res.Alert.Symbol),
		formatPrice(res.Quote.Price),
		formatPrice(res.Alert.TargetPrice),
		formatPercent(res.Quote.ChangePercent),
		eventLine,
	))
}

func (c *Client) handleList(ctx context.Context, owner, chatID int64) {
	alerts := c.svc.ListAlerts(ctx, owner)
	if len(alerts) == 0 {
		c.reply(chatID, "📭 Bạn chưa có cảnh báo nào")
		return
	}

	var b strings.Builder
	b.WriteString("📋 *Danh sách cảnh báo*\n")
	for i, a := range alerts {
		status := "✅ GDKHQ: SAFE"
		if a.Event.HasEvent {
			status = "⚠️ GDKHQ: " + escapeMarkdownV2(a.Event.Date)
		}
		fmt.Fprintf(&b, "\n%d\\. *%s*\n   Giá hiện tại: %s\n   Mục tiêu: %s\n   %s\n",
			i+1,
			escapeMarkdownV2(a.Symbol),
			formatPrice(a.LastKnownPrice),
			formatPrice(a.TargetPrice),
			status,
		)
	}
	b.WriteString("\n💡 Dùng /delete SoThuTu để xóa cảnh báo")
	c.reply(chatID, b.String())
}

func (c *Client) handleDelete(owner, chatID int64, args []string) {
	if len(args) < 1 {
		c.reply(chatID, "❌ Sai cú pháp, dùng: /delete SoThuTu")
		return
	}
	pos, err := strconv.Atoi(args[0])
	if err != nil {
		c.reply(chatID, "❌ Số thứ tự không hợp lệ")
		return
	}
	removed, err := c.svc.DeleteAlert(owner, pos)
	if err != nil {
		c.reply(chatID, "❌ Không tìm thấy cảnh báo này")
		return
	}
	c.reply(chatID, fmt.Sprintf("✅ Đã xóa cảnh báo %s", escapeMarkdownV2(removed.Symbol)))
}

func (c *Client) handlePrice(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		c.reply(chatID, "❌ Sai cú pháp, dùng: /price MaCK")
		return
	}
	q, err := c.svc.GetPrice(ctx, args[0])
	if err != nil {
		c.replyCommandError(chatID, args[0], err)
		return
	}
	c.reply(chatID, fmt.Sprintf(`📊 *%s*

💰 Giá: %s
📈 Thay đổi: %s \(%s\)`,
		escapeMarkdownV2(strings.ToUpper(args[0])),
		formatPrice(q.Price),
		formatPrice(q.Change),
		formatPercent(q.ChangePercent),
	))
}

func (c *Client) handleHistory(owner, chatID int64) {
	recs, err := c.svc.History(owner, historyLimit)
	if err != nil {
		logger.Error("history lookup for owner %d failed: %v", owner, err)
		c.reply(chatID, "❌ Không đọc được lịch sử thông báo")
		return
	}
	if len(recs) == 0 {
		c.reply(chatID, "📭 Chưa có thông báo nào")
		return
	}

	var b strings.Builder
	b.WriteString("🗒 *Thông báo gần đây*\n")
	for _, n := range recs {
		icon := "🎯"
		if n.Kind == models.NotificationEvent {
			icon = "⚠️"
		}
		fmt.Fprintf(&b, "\n%s %s %s", icon,
			escapeMarkdownV2(n.SentAt.Format("02/01 15:04")),
			escapeMarkdownV2(n.Symbol),
		)
	}
	c.reply(chatID, b.String())
}

// replyCommandError maps lookup failures to short, specific reasons.
func (c *Client) replyCommandError(chatID int64, symbol string, err error) {
	sym := escapeMarkdownV2(strings.ToUpper(symbol))
	switch {
	case errors.Is(err, market.ErrSymbolNotFound):
		c.reply(chatID, fmt.Sprintf("❌ Không tìm thấy mã %s, vui lòng kiểm tra lại", sym))
	case errors.Is(err, market.ErrProviderUnavailable):
		c.reply(chatID, "❌ Nguồn dữ liệu đang gián đoạn, vui lòng thử lại sau")
	case errors.Is(err, commands.ErrInvalidPrice), errors.Is(err, commands.ErrInvalidSymbol):
		c.reply(chatID, "❌ Tham số không hợp lệ")
	case errors.Is(err, store.ErrIndexOutOfRange):
		c.reply(chatID, "❌ Không tìm thấy cảnh báo này")
	default:
		logger.Error("command failed: %v", err)
		c.reply(chatID, "❌ Có lỗi xảy ra, vui lòng thử lại")
	}
}

// SendTargetReached notifies the owner that the target price was hit.
// Part of the engine's notification sink.
func (c *Client) SendTargetReached(owner int64, alert models.Alert, quote models.Quote) error {
	return c.sendMarkdownV2(owner, fmt.Sprintf(`🎯 *CẢNH BÁO GIÁ ĐẠT MỤC TIÊU*

📊 Mã: %s
💰 Giá hiện tại: %s
🎯 Giá mục tiêu: %s
✅ Đã đạt mục tiêu`,
		escapeMarkdownV2(alert.Symbol),
		formatPrice(quote.Price),
		formatPrice(alert.TargetPrice),
	))
}

// SendEventReminder notifies the owner about an upcoming ex-rights date.
func (c *Client) SendEventReminder(owner int64, alert models.Alert, daysLeft int) error {
	return c.sendMarkdownV2(owner, fmt.Sprintf(`⚠️ *NHẮC NHỞ GDKHQ*

📊 Mã: %s
📅 Ngày GDKHQ: %s
⏰ Còn %d ngày nữa`,
		escapeMarkdownV2(alert.Symbol),
		escapeMarkdownV2(alert.Event.Date),
		daysLeft,
	))
}

// reply sends a command response; failures are logged, not surfaced, since
// there is nobody left to tell.
func (c *Client) reply(chatID int64, text string) {
	if err := c.sendMarkdownV2(chatID, text); err != nil {
		logger.Warn("failed to reply to chat %d: %v", chatID, err)
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// formatPrice renders a price with thousands separators, escaped for
// MarkdownV2.
func formatPrice(v float64) string {
	return escapeMarkdownV2(groupThousands(v))
}

// formatPercent renders a change percentage, escaped for MarkdownV2.
func formatPercent(v float64) string {
	return escapeMarkdownV2(fmt.Sprintf("%.2f%%", v))
}

// groupThousands formats a value as a whole number with comma separators
// (prices on the local exchanges are quoted in whole dong).
func groupThousands(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
