package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexString accepts a JSON string, number or null. The commerce feed is not
// consistent about quoting ids and prices.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// booleans, objects: keep the raw text rather than failing the record
		*f = FlexString(string(data))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// RawProperty is a name/value attribute on an order or line item.
type RawProperty struct {
	Name  string     `json:"name"`
	Value FlexString `json:"value"`
}

// RawCustomer is the customer block of a feed record.
type RawCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// RawAddress is the shipping address block of a feed record.
type RawAddress struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

// RawLineItem is one line of a feed record.
type RawLineItem struct {
	ID           FlexString    `json:"id"`
	Title        string        `json:"title"`
	SKU          string        `json:"sku"`
	VariantTitle string        `json:"variant_title"`
	Price        FlexString    `json:"price"`
	Quantity     FlexString    `json:"quantity"`
	Properties   []RawProperty `json:"properties"`
}

// RawOrder is an order as read from the commerce platform feed. Only the id is
// required; everything else degrades to a default during classification.
type RawOrder struct {
	ID                FlexString    `json:"id" validate:"required"`
	Name              string        `json:"name"`
	OrderNumber       FlexString    `json:"order_number"`
	Email             string        `json:"email"`
	Customer          *RawCustomer  `json:"customer"`
	ShippingAddress   *RawAddress   `json:"shipping_address"`
	TotalPrice        FlexString    `json:"total_price"`
	CreatedAt         string        `json:"created_at"`
	CancelledAt       *string       `json:"cancelled_at"`
	FinancialStatus   string        `json:"financial_status"`
	FulfillmentStatus *string       `json:"fulfillment_status"`
	Tags              string        `json:"tags"`
	Note              string        `json:"note"`
	NoteAttributes    []RawProperty `json:"note_attributes"`
	LineItems         []RawLineItem `json:"line_items"`
}
