package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jbot-sports/goalsentry/internal/models"
)

const cardSeparator = "─────────────────────────────"

func statusEmoji(status models.AlertStatus) string {
	switch status {
	case models.StatusSuccess:
		return "✅"
	case models.StatusFailed:
		return "❌"
	default:
		return "⏳"
	}
}

// formatGoalCard renders the alert card posted on emission and rewritten on
// every edit until the alert resolves.
func formatGoalCard(card models.GoalCard) string {
	half := "First Half"
	if card.Minute >= 45 {
		half = "Second Half"
	}

	var b strings.Builder
	b.WriteString("🎟️ <b>GOAL ALERT</b>\n\n")
	fmt.Fprintf(&b, "<b>Match:</b> %s\n", escapeHTML(card.Match))
	fmt.Fprintf(&b, "⏱️ <b>Time:</b> %s (%d′)\n", half, card.Minute)
	fmt.Fprintf(&b, "🔢 <b>Score:</b> %s\n\n", card.Score)
	fmt.Fprintf(&b, "<b>Probability:</b> %d%% (next ~%d minutes)\n", int(card.Probability*100), card.LookaheadMin)
	fmt.Fprintf(&b, "<b>Pressure Index:</b> %.1f\n\n", card.PressureIdx)
	b.WriteString("<b>Form (Last 10 Minutes):</b>\n")
	fmt.Fprintf(&b, "• Shots: %d\n", card.Shots)
	fmt.Fprintf(&b, "• Shots on Target: %d\n", card.ShotsOnGoal)
	fmt.Fprintf(&b, "• Corners: %d\n\n", card.Corners)
	fmt.Fprintf(&b, "✅ <b>Recommended Bet:</b> %s\n\n", pickOverLine(card.Score, card.Minute))
	fmt.Fprintf(&b, "📌 <b>Status:</b> %s %s", card.Status, statusEmoji(card.Status))
	return b.String()
}

// pickOverLine suggests the over-goals line matching the current score and
// half: early goalless matches get the first-half line, busier scorelines
// step up the total.
func pickOverLine(score string, minute int) string {
	total := 0
	parts := strings.SplitN(score, "-", 2)
	if len(parts) == 2 {
		h, _ := strconv.Atoi(parts[0])
		a, _ := strconv.Atoi(parts[1])
		total = h + a
	}
	if minute < 45 {
		if total == 0 {
			return "Over 0.5 goals (First Half)"
		}
		return "Over 1.5 goals"
	}
	if total <= 1 {
		return "Over 1.5 goals"
	}
	return "Over 2.5 goals"
}

// formatAccaMessage renders the daily accumulator post.
func formatAccaMessage(slips []models.Slip) string {
	blocks := make([]string, 0, len(slips)+2)
	blocks = append(blocks, "🧠 <b>Daily ACCAs</b> (majors preferred, fallback if quiet)")
	for _, slip := range slips {
		blocks = append(blocks, formatSlipBlock(slip))
	}
	blocks = append(blocks, "<i>* Uses Bet365 when available; else best available bookmaker.</i>")
	return strings.Join(blocks, "\n\n")
}

func formatSlipBlock(slip models.Slip) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", escapeHTML(slip.Title))
	fmt.Fprintf(&b, "Stake £%.2f | Odds %.2f | Return £%.2f", slip.Stake, slip.Product, slip.Return())
	if len(slip.Legs) > 0 {
		fmt.Fprintf(&b, " | %s*", escapeHTML(slip.Legs[0].Bookmaker))
	}
	if !slip.InRange {
		b.WriteString(" (closest fit)")
	}
	b.WriteString("\n")
	b.WriteString(cardSeparator)
	for i, leg := range slip.Legs {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. %s — <i>%s</i> (@%.2f)", i+1, escapeHTML(leg.Match), escapeHTML(leg.Label), leg.Odds)
		if !leg.Kickoff.IsZero() {
			fmt.Fprintf(&b, " • %s UTC", leg.Kickoff.UTC().Format("Mon 15:04"))
		}
	}
	return b.String()
}

// escapeHTML escapes the characters Telegram's HTML parse mode treats
// specially.
func escapeHTML(text string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(text)
}
