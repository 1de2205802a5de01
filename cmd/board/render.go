package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/urgency"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

var tierColors = map[urgency.Tier]lipgloss.Color{
	urgency.TierOverdue: lipgloss.Color("#FF6B6B"),
	urgency.TierUrgent:  lipgloss.Color("#FFA94D"),
	urgency.TierWarning: lipgloss.Color("#FFD43B"),
	urgency.TierGood:    lipgloss.Color("#69DB7C"),
}

// decodeExport reads either a bare JSON array of orders or the API's
// {"orders": [...]} list response.
func decodeExport(data []byte) ([]model.Order, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty export")
	}
	var list []model.Order
	if data[0] == '[' {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode order list: %w", err)
		}
		return list, nil
	}
	var envelope struct {
		Orders []model.Order `json:"orders"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode order export: %w", err)
	}
	return envelope.Orders, nil
}

// render draws the urgency board, most urgent first.
func render(orders []model.Order, reg *workflow.Registry, title string, now time.Time, width int) string {
	urgency.Sort(orders)

	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(title)

	var rows []string
	for _, o := range orders {
		tier := urgency.Of(o.FulfillByDate, now)
		badge := lipgloss.NewStyle().
			Bold(true).
			Width(9).
			Foreground(tierColors[tier]).
			Render(strings.ToUpper(string(tier)))
		label := string(o.Status)
		if def, ok := reg.Definition(o.Status); ok {
			label = def.Label
		}
		customer := o.Customer.Name
		if customer == "" {
			customer = "-"
		}
		line := fmt.Sprintf("%-10s %-22s %-22s %-14s %3d%%",
			o.OrderNumber, truncate(customer, 22), truncate(label, 22), urgency.Remaining(o.FulfillByDate, now), o.Progress())
		rows = append(rows, badge+" "+line)
	}
	if len(rows) == 0 {
		rows = append(rows, lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("no orders in view"))
	}

	counts := urgency.Count(orders, now)
	var summary []string
	for _, tier := range urgency.Tiers {
		summary = append(summary, lipgloss.NewStyle().Foreground(tierColors[tier]).Render(fmt.Sprintf("%s %d", tier, counts[tier])))
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(strings.Join(summary, "  "))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(rows, "\n"))

	return lipgloss.JoinVertical(lipgloss.Left, head, box, footer)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
