package bot

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"spyton-bot/internal/features/metrics"
	"spyton-bot/internal/features/tg_charts"
	"spyton-bot/internal/infra/log"
	"spyton-bot/internal/leaderboard"
	"spyton-bot/internal/notify"
	"spyton-bot/internal/storage"
)

// CommandHandler serves group setup commands and the owner's moderation
// commands.
type CommandHandler struct {
	api         *tgbotapi.BotAPI
	store       *storage.Store
	metrics     *metrics.Cache
	engine      *leaderboard.Engine
	board       *LeaderboardMonitor
	ownerID     int64
	defaultMin  float64
	chartOutDir string
}

func NewCommandHandler(
	api *tgbotapi.BotAPI,
	store *storage.Store,
	cache *metrics.Cache,
	engine *leaderboard.Engine,
	board *LeaderboardMonitor,
	ownerID int64,
	defaultMinBuy float64,
) *CommandHandler {
	return &CommandHandler{
		api:         api,
		store:       store,
		metrics:     cache,
		engine:      engine,
		board:       board,
		ownerID:     ownerID,
		defaultMin:  defaultMinBuy,
		chartOutDir: os.TempDir(),
	}
}

// Run consumes Telegram updates until the context is cancelled.
func (h *CommandHandler) Run(ctx context.Context) {
	if h.api == nil {
		log.LogWarn("Bot is nil, command handler not started")
		return
	}

	log.LogInfo("Starting command handler", zap.Int64("owner_id", h.ownerID))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := h.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		h.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil {
			continue
		}
		if len(update.Message.NewChatMembers) > 0 {
			h.handleAddedToGroup(update.Message)
			continue
		}
		if !update.Message.IsCommand() {
			continue
		}
		h.dispatch(ctx, update.Message)
	}
	log.LogInfo("Command handler stopped")
}

func (h *CommandHandler) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}
	log.LogDebug("Received command",
		zap.String("command", command),
		zap.String("args", args),
		zap.Int64("chatID", msg.Chat.ID),
		zap.String("username", username))

	switch command {
	case "start":
		h.handleStart(msg, args)
	case "groupid":
		h.reply(msg, fmt.Sprintf("This chat id: <code>%d</code>", msg.Chat.ID))

	case "addtoken":
		h.handleAddToken(ctx, msg, args)
	case "autopools":
		h.handleAutoPools(ctx, msg)
	case "setpool":
		h.handleSetPool(msg, args)
	case "minbuy":
		h.handleMinBuy(msg, args)
	case "on":
		h.handleToggle(msg, true)
	case "off":
		h.handleToggle(msg, false)
	case "status":
		h.handleStatus(msg)

	case "approve":
		h.handleApproval(msg, args, true)
	case "revoke":
		h.handleApproval(msg, args, false)
	case "pinleaderboard":
		h.handlePinLeaderboard(ctx, msg)
	case "leaderboardnow":
		h.handleLeaderboardNow(ctx, msg)
	case "chart":
		h.handleChart(msg)
	}
}

// /addtoken [SYMBOL] <JETTON>. With one argument the symbol is filled in
// from on-chain metadata.
func (h *CommandHandler) handleAddToken(ctx context.Context, msg *tgbotapi.Message, args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 || len(parts) > 2 {
		h.reply(msg, "Usage: /addtoken [SYMBOL] {jetton address}\n\nExample: /addtoken SPY EQC4...vQ2s")
		return
	}

	var symbol, jetton string
	if len(parts) == 2 {
		symbol = notify.SafeSymbol(parts[0])
		jetton = parts[1]
	} else {
		jetton = parts[0]
	}

	group, err := h.store.EnsureGroup(msg.Chat.ID, h.defaultMin)
	if err != nil {
		h.replyError(msg, "Failed to register this chat", err)
		return
	}

	tm := h.metrics.Fetch(ctx, jetton)
	if symbol == "" {
		symbol = notify.SafeSymbol(tm.Symbol)
	}

	if err := h.store.SetToken(group.GroupID, symbol, jetton); err != nil {
		h.replyError(msg, "Failed to save token", err)
		return
	}

	text := fmt.Sprintf("Token set: <b>$%s</b>\n<code>%s</code>", symbol, jetton)
	if tm.StonfiPool != "" || tm.DedustPool != "" {
		if err := h.store.SetPools(group.GroupID, tm.StonfiPool, tm.DedustPool); err != nil {
			log.LogError("failed to save auto-discovered pools", zap.Error(err))
		} else {
			text += "\n\nPools discovered automatically. Use /on to start notifications."
		}
	} else {
		text += "\n\nNo pools found yet. Use /autopools later or /setpool to add one manually."
	}

	log.LogSuccess("token registered",
		zap.Int64("group_id", group.GroupID),
		zap.String("symbol", symbol))
	h.reply(msg, text)
}

// /autopools rediscovers the deepest STON.fi and DeDust pools for the
// group's token.
func (h *CommandHandler) handleAutoPools(ctx context.Context, msg *tgbotapi.Message) {
	group, err := h.store.GetGroup(msg.Chat.ID)
	if err != nil {
		h.replyError(msg, "Failed to load this chat's settings", err)
		return
	}
	if group == nil || group.JettonAddress == "" {
		h.reply(msg, "Set a token first: /addtoken [SYMBOL] {jetton address}")
		return
	}

	tm := h.metrics.Fetch(ctx, group.JettonAddress)
	if tm.StonfiPool == "" && tm.DedustPool == "" {
		h.reply(msg, "No STON.fi or DeDust pools found for this token.")
		return
	}

	if err := h.store.SetPools(group.GroupID, tm.StonfiPool, tm.DedustPool); err != nil {
		h.replyError(msg, "Failed to save pools", err)
		return
	}

	var lines []string
	lines = append(lines, "Pools updated:")
	if tm.StonfiPool != "" {
		lines = append(lines, fmt.Sprintf("STON.fi: <code>%s</code>", tm.StonfiPool))
	}
	if tm.DedustPool != "" {
		lines = append(lines, fmt.Sprintf("DeDust: <code>%s</code>", tm.DedustPool))
	}
	h.reply(msg, strings.Join(lines, "\n"))
}

// /setpool stonfi|dedust <address> pins one pool by hand.
func (h *CommandHandler) handleSetPool(msg *tgbotapi.Message, args string) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		h.reply(msg, "Usage: /setpool stonfi|dedust {pool address}")
		return
	}
	dex := strings.ToLower(parts[0])
	addr := parts[1]
	dexLabel := map[string]string{"stonfi": "STON.fi", "dedust": "DeDust"}[dex]
	if dexLabel == "" {
		h.reply(msg, "Usage: /setpool stonfi|dedust {pool address}")
		return
	}

	group, err := h.store.EnsureGroup(msg.Chat.ID, h.defaultMin)
	if err != nil {
		h.replyError(msg, "Failed to register this chat", err)
		return
	}

	stonfi, dedust := group.StonfiPool, group.DedustPool
	if dex == "stonfi" {
		stonfi = addr
	} else {
		dedust = addr
	}
	if err := h.store.SetPools(group.GroupID, stonfi, dedust); err != nil {
		h.replyError(msg, "Failed to save pool", err)
		return
	}
	h.reply(msg, fmt.Sprintf("%s pool set: <code>%s</code>", dexLabel, addr))
}

// /minbuy <TON> sets the notification threshold.
func (h *CommandHandler) handleMinBuy(msg *tgbotapi.Message, args string) {
	value, err := strconv.ParseFloat(args, 64)
	if err != nil || value < 0 {
		h.reply(msg, "Usage: /minbuy {TON amount}\n\nExample: /minbuy 5")
		return
	}

	if _, err := h.store.EnsureGroup(msg.Chat.ID, h.defaultMin); err != nil {
		h.replyError(msg, "Failed to register this chat", err)
		return
	}
	if err := h.store.SetMinBuy(msg.Chat.ID, value); err != nil {
		h.replyError(msg, "Failed to save minimum", err)
		return
	}
	h.reply(msg, fmt.Sprintf("Minimum buy set to <b>%.2f TON</b>. Smaller buys are ignored.", value))
}

// /on and /off. Enabling requires owner approval.
func (h *CommandHandler) handleToggle(msg *tgbotapi.Message, enable bool) {
	group, err := h.store.EnsureGroup(msg.Chat.ID, h.defaultMin)
	if err != nil {
		h.replyError(msg, "Failed to register this chat", err)
		return
	}

	if enable {
		if !group.Approved {
			h.reply(msg, fmt.Sprintf("This chat is not approved yet.\nAsk the operator to run /approve %d", msg.Chat.ID))
			return
		}
		if group.JettonAddress == "" {
			h.reply(msg, "Set a token first: /addtoken [SYMBOL] {jetton address}")
			return
		}
		if group.StonfiPool == "" && group.DedustPool == "" {
			h.reply(msg, "No pools configured. Use /autopools or /setpool first.")
			return
		}
	}

	if err := h.store.SetEnabled(msg.Chat.ID, enable); err != nil {
		h.replyError(msg, "Failed to update state", err)
		return
	}
	if enable {
		h.reply(msg, "Buy notifications are <b>ON</b>.")
	} else {
		h.reply(msg, "Buy notifications are <b>OFF</b>.")
	}
}

// /status prints the group's full configuration.
func (h *CommandHandler) handleStatus(msg *tgbotapi.Message) {
	group, err := h.store.GetGroup(msg.Chat.ID)
	if err != nil {
		h.replyError(msg, "Failed to load this chat's settings", err)
		return
	}
	if group == nil {
		h.reply(msg, "This chat is not set up. Start with /addtoken.")
		return
	}
	h.reply(msg, statusText(group))
}

func statusText(group *storage.Group) string {
	onOff := func(v bool) string {
		if v {
			return "yes"
		}
		return "no"
	}
	orDash := func(v string) string {
		if v == "" {
			return "-"
		}
		return v
	}

	var b strings.Builder
	b.WriteString("<b>SpyTON status</b>\n\n")
	fmt.Fprintf(&b, "Enabled: %s\n", onOff(group.Enabled))
	fmt.Fprintf(&b, "Approved: %s\n", onOff(group.Approved))
	fmt.Fprintf(&b, "Token: %s\n", orDash(group.TokenSymbol))
	fmt.Fprintf(&b, "Jetton: <code>%s</code>\n", orDash(group.JettonAddress))
	fmt.Fprintf(&b, "STON.fi pool: <code>%s</code>\n", orDash(group.StonfiPool))
	fmt.Fprintf(&b, "DeDust pool: <code>%s</code>\n", orDash(group.DedustPool))
	fmt.Fprintf(&b, "Min buy: %.2f TON", group.MinBuyTON)
	return b.String()
}

// /start in a private chat. A cfg_ deep-link payload carries the group id
// the user came from, so their group's settings open right away.
func (h *CommandHandler) handleStart(msg *tgbotapi.Message, args string) {
	if !msg.Chat.IsPrivate() {
		return
	}

	if strings.HasPrefix(args, "cfg_") {
		if gid, err := decodeGroupPayload(strings.TrimPrefix(args, "cfg_")); err == nil {
			group, err := h.store.GetGroup(gid)
			if err == nil && group != nil {
				h.reply(msg, statusText(group)+
					"\n\nRun /addtoken, /minbuy and /on inside the group to change these.")
				return
			}
		}
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, startWelcomeText())
	out.ParseMode = tgbotapi.ModeHTML
	out.DisableWebPagePreview = true
	if username := h.api.Self.UserName; username != "" {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("➕ Add me to your group",
					fmt.Sprintf("https://t.me/%s?startgroup=1", username)),
			),
		)
	}
	if _, err := h.api.Send(out); err != nil {
		log.LogError("failed to send start message", zap.Error(err))
	}
}

func startWelcomeText() string {
	return strings.Join([]string{
		"<b>SpyTON BuyBot</b>",
		"",
		"I post jetton buys from STON.fi and DeDust into your group.",
		"",
		"Setup:",
		"1. Add me to your group",
		"2. /addtoken [SYMBOL] {jetton address}",
		"3. /minbuy {TON} to filter small buys",
		"4. /on once the operator approves the group",
		"",
		"/status shows the current configuration at any time.",
	}, "\n")
}

// handleAddedToGroup greets a group the bot just joined and registers it
// disabled, with a deep link back to the private setup chat.
func (h *CommandHandler) handleAddedToGroup(msg *tgbotapi.Message) {
	if !msg.Chat.IsGroup() && !msg.Chat.IsSuperGroup() {
		return
	}
	me := h.api.Self.ID
	joined := false
	for _, u := range msg.NewChatMembers {
		if u.ID == me {
			joined = true
			break
		}
	}
	if !joined {
		return
	}

	if _, err := h.store.EnsureGroup(msg.Chat.ID, h.defaultMin); err != nil {
		log.LogError("failed to register joined group",
			zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}

	out := tgbotapi.NewMessage(msg.Chat.ID,
		"SpyTON connected. Use /addtoken [SYMBOL] {jetton address} here, then /on to start buy posts.")
	out.ParseMode = tgbotapi.ModeHTML
	if username := h.api.Self.UserName; username != "" {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("⚙️ Configure BuyBot",
					fmt.Sprintf("https://t.me/%s?start=cfg_%s", username, encodeGroupPayload(msg.Chat.ID))),
			),
		)
	}
	if _, err := h.api.Send(out); err != nil {
		log.LogError("failed to send group greeting",
			zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
	log.LogInfo("joined new group", zap.Int64("chat_id", msg.Chat.ID))
}

func encodeGroupPayload(groupID int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(groupID, 10)))
}

func decodeGroupPayload(payload string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

// /approve and /revoke, owner only. The id argument tolerates the dashes
// iOS substitutes into pasted negative numbers.
func (h *CommandHandler) handleApproval(msg *tgbotapi.Message, args string, approve bool) {
	if !h.isOwner(msg) {
		return
	}
	if args == "" {
		h.reply(msg, "Usage: /approve {chat id} or /revoke {chat id}")
		return
	}

	chatID, err := ParseChatID(args)
	if err != nil {
		h.reply(msg, "That does not look like a chat id.")
		return
	}

	if _, err := h.store.EnsureGroup(chatID, h.defaultMin); err != nil {
		h.replyError(msg, "Failed to register that chat", err)
		return
	}
	if err := h.store.SetApproved(chatID, approve); err != nil {
		h.replyError(msg, "Failed to update approval", err)
		return
	}

	verb := "revoked"
	if approve {
		verb = "approved"
	}
	log.LogSuccess("group approval changed",
		zap.Int64("group_id", chatID),
		zap.Bool("approved", approve))
	h.reply(msg, fmt.Sprintf("Chat <code>%d</code> %s.", chatID, verb))
}

func (h *CommandHandler) handlePinLeaderboard(ctx context.Context, msg *tgbotapi.Message) {
	if !h.isOwner(msg) {
		return
	}
	if err := h.board.Pin(ctx); err != nil {
		h.replyError(msg, "Failed to pin the leaderboard", err)
		return
	}
	h.reply(msg, "Leaderboard pinned.")
}

func (h *CommandHandler) handleLeaderboardNow(ctx context.Context, msg *tgbotapi.Message) {
	if !h.isOwner(msg) {
		return
	}
	h.board.PublishNow(ctx)
	h.reply(msg, "Leaderboard refreshed.")
}

// /chart renders the current board as a bar chart image.
func (h *CommandHandler) handleChart(msg *tgbotapi.Message) {
	entries := h.engine.Snapshot()
	if len(entries) == 0 {
		h.reply(msg, "No buys in the current window yet.")
		return
	}

	chartPath, err := tg_charts.GenerateLeaderboardChart(entries, h.chartOutDir)
	if err != nil {
		h.replyError(msg, "Failed to render the chart", err)
		return
	}

	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FilePath(chartPath))
	photo.ReplyToMessageID = msg.MessageID
	if _, err := h.api.Send(photo); err != nil {
		log.LogError("failed to send chart", zap.Error(err))
	}
}

func (h *CommandHandler) isOwner(msg *tgbotapi.Message) bool {
	if msg.From != nil && msg.From.ID == h.ownerID {
		return true
	}
	var from int64
	if msg.From != nil {
		from = msg.From.ID
	}
	log.LogWarn("owner-only command rejected",
		zap.String("command", msg.Command()),
		zap.Int64("from", from))
	return false
}

func (h *CommandHandler) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyToMessageID = msg.MessageID
	out.DisableWebPagePreview = true
	if _, err := h.api.Send(out); err != nil {
		log.LogError("failed to send reply",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err))
	}
}

func (h *CommandHandler) replyError(msg *tgbotapi.Message, text string, err error) {
	log.LogError(text, zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	h.reply(msg, text+". Try again later.")
}
