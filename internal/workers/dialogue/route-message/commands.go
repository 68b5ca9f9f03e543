// internal/workers/dialogue/route-message/commands.go
package routemessage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"directory-assistant/internal/models"
)

type commandHandler func(ctx context.Context, in *Input) string

func (h *Handler) commandTable() map[string]commandHandler {
	return map[string]commandHandler{
		"/start":      h.commandStart,
		"/help":       h.commandHelp,
		"/status":     h.commandStatus,
		"/cerca":      h.commandNearby,
		"/categorias": h.commandCategories,
		"/reset":      h.commandReset,
	}
}

// commandName lower-cases the first word and drops a "@botname" suffix.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name := strings.ToLower(fields[0])
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	return name
}

func (h *Handler) handleCommand(ctx context.Context, in *Input) string {
	name := commandName(in.Text)
	h.logger.Info("command received", map[string]interface{}{
		"conversationId": in.ConversationID,
		"command":        name,
	})

	cmd, ok := h.commands[name]
	if !ok {
		return replyUnknownCommand
	}
	return cmd(ctx, in)
}

func (h *Handler) commandStart(_ context.Context, in *Input) string {
	return formatStart(in.UserName)
}

func (h *Handler) commandHelp(context.Context, *Input) string {
	return formatHelp()
}

func (h *Handler) commandStatus(ctx context.Context, _ *Input) string {
	var (
		messages, commands int64
		statsOK            bool
	)
	if h.messages != nil {
		stats, err := h.messages.Stats(ctx)
		if err != nil {
			h.logger.Warn("message stats unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			messages, commands, statsOK = stats.Messages, stats.Commands, true
		}
	}
	return formatStatus(messages, commands, h.history.ActiveConversations(), h.now(), statsOK)
}

func (h *Handler) commandNearby(ctx context.Context, in *Input) string {
	loc := h.config.defaultLocation()
	businesses, err := h.catalog.NearbyBusinesses(ctx, *loc, h.config.NearbyLimit)
	if err != nil {
		h.logger.Error("nearby lookup failed", map[string]interface{}{
			"conversationId": in.ConversationID,
			"error":          err.Error(),
		})
		return replyNearbyFailed
	}
	if len(businesses) == 0 {
		return fmt.Sprintf("❌ No encontré negocios cercanos en un radio de %s.", formatDistance(float64(loc.RadiusMeters)))
	}
	return formatNearby(businesses, loc.RadiusMeters)
}

func (h *Handler) commandCategories(ctx context.Context, in *Input) string {
	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		h.logger.Error("category lookup failed", map[string]interface{}{
			"conversationId": in.ConversationID,
			"error":          err.Error(),
		})
		return replyCategoriesFail
	}
	if len(categories) == 0 {
		return "🏷️ Todavía no hay categorías registradas."
	}
	return formatCategories(categories)
}

func (h *Handler) commandReset(_ context.Context, in *Input) string {
	h.history.Clear(in.ConversationID)
	h.pending.remove(in.ConversationID)
	return replyReset
}

func sortByPrice(prices []models.SupplierPrice) {
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Price < prices[j].Price
	})
}
