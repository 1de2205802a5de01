// Package classifier turns raw commerce-platform records into normalized
// orders. The rules are pure functions over text so they can change without
// touching the merge logic in the orders engine.
package classifier

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

// Classifier normalizes feed records.
type Classifier struct {
	validate *validatorv10.Validate
}

// New returns a Classifier with its own validator.
func New() *Classifier {
	return &Classifier{validate: validatorv10.New()}
}

// Result is a normalized order plus how its deadline was chosen.
type Result struct {
	Order        model.Order
	DeadlineRule DeadlineRule
	// CancelledUpstream is reported separately so a re-sync can cancel a
	// known order without trusting the rest of the derived status.
	CancelledUpstream bool
}

// Normalize classifies one feed record. Only a missing order id is an error;
// malformed fields fall back to safe defaults. now is used when the record
// carries no usable creation time.
func (c *Classifier) Normalize(raw model.RawOrder, now time.Time) (Result, error) {
	if err := c.validate.Struct(raw); err != nil {
		return Result{}, fmt.Errorf("validate feed record: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339, strings.TrimSpace(raw.CreatedAt))
	if err != nil {
		createdAt = now
	}
	createdAt = createdAt.UTC()

	tags := SplitTags(raw.Tags)
	items := normalizeItems(raw.LineItems)
	deadline, rule := FulfillBy(createdAt, tags, raw.Note, attributes(raw))

	order := model.Order{
		OrderID:       raw.ID.String(),
		OrderNumber:   orderNumber(raw),
		Customer:      customer(raw),
		TotalAmount:   parseMoney(raw.TotalPrice),
		CreatedAt:     createdAt,
		FulfillByDate: deadline,
		Priority:      DerivePriority(tags),
		Status:        InitialStatus(raw),
		Items:         items,
		Tags:          tags,
		Notes:         strings.TrimSpace(raw.Note),
		LastSyncedAt:  now.UTC(),
	}
	return Result{Order: order, DeadlineRule: rule, CancelledUpstream: order.Status == workflow.StatusCancelled}, nil
}

func normalizeItems(lines []model.RawLineItem) []model.OrderItem {
	items := make([]model.OrderItem, 0, len(lines))
	seen := make(map[string]int, len(lines))
	for idx, li := range lines {
		id := li.ID.String()
		if id == "" {
			id = fmt.Sprintf("line-%d", idx+1)
		}
		if n := seen[id]; n > 0 {
			seen[id] = n + 1
			id = fmt.Sprintf("%s-%d", id, n+1)
		} else {
			seen[id] = 1
		}
		title := strings.TrimSpace(li.Title)
		items = append(items, model.OrderItem{
			ItemID:        id,
			ProductTitle:  title,
			SKU:           strings.TrimSpace(li.SKU),
			VariantTitle:  strings.TrimSpace(li.VariantTitle),
			Price:         parseMoney(li.Price),
			Quantity:      parseQuantity(li.Quantity),
			PaintingStyle: PaintingStyle(title),
			IsAddOn:       IsAddOn(title, li.SKU, li.VariantTitle),
			ItemStatus:    model.ItemUnassigned,
		})
	}
	return items
}

func attributes(raw model.RawOrder) []Attribute {
	var attrs []Attribute
	for _, p := range raw.NoteAttributes {
		attrs = append(attrs, Attribute{Name: p.Name, Value: p.Value.String()})
	}
	for _, li := range raw.LineItems {
		for _, p := range li.Properties {
			attrs = append(attrs, Attribute{Name: p.Name, Value: p.Value.String()})
		}
	}
	return attrs
}

func orderNumber(raw model.RawOrder) string {
	if name := strings.TrimSpace(raw.Name); name != "" {
		return name
	}
	if n := raw.OrderNumber.String(); n != "" {
		return "#" + n
	}
	return raw.ID.String()
}

func customer(raw model.RawOrder) model.Customer {
	var c model.Customer
	if raw.Customer != nil {
		c.Name = strings.TrimSpace(raw.Customer.FirstName + " " + raw.Customer.LastName)
		c.Email = strings.TrimSpace(raw.Customer.Email)
	}
	if email := strings.TrimSpace(raw.Email); email != "" {
		c.Email = email
	}
	if a := raw.ShippingAddress; a != nil {
		c.ShippingAddress = model.Address{
			Name:     a.Name,
			Address1: a.Address1,
			Address2: a.Address2,
			City:     a.City,
			Province: a.Province,
			Zip:      a.Zip,
			Country:  a.Country,
		}
		if c.Name == "" {
			c.Name = strings.TrimSpace(a.Name)
		}
	}
	return c
}

func parseMoney(v model.FlexString) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseQuantity(v model.FlexString) int {
	n, err := strconv.Atoi(v.String())
	if err != nil || n < 1 {
		return 1
	}
	return n
}
