package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

var boardNow = time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)

func boardOrders() []model.Order {
	return []model.Order{
		{OrderID: "1", OrderNumber: "#1001", Status: workflow.StatusPendingEdit, FulfillByDate: boardNow.Add(10 * 24 * time.Hour),
			Customer: model.Customer{Name: "Sarah Johnson"}},
		{OrderID: "2", OrderNumber: "#1002", Status: workflow.StatusInProgress, FulfillByDate: boardNow.Add(-time.Hour)},
	}
}

func TestRender(t *testing.T) {
	out := render(boardOrders(), workflow.Default(), "master board", boardNow, 100)

	assert.Contains(t, out, "master board")
	assert.Contains(t, out, "OVERDUE")
	assert.Contains(t, out, "Sarah Johnson")
	assert.Contains(t, out, "overdue 1")
	assert.Contains(t, out, "good 1")
	// most urgent first
	assert.Less(t, strings.Index(out, "#1002"), strings.Index(out, "#1001"))
}

func TestRender_Empty(t *testing.T) {
	out := render(nil, workflow.Default(), "artist board", boardNow, 60)
	assert.Contains(t, out, "no orders in view")
}

func TestDecodeExport(t *testing.T) {
	list, err := decodeExport([]byte(`[{"order_id":"1"}]`))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = decodeExport([]byte(`{"orders":[{"order_id":"1"},{"order_id":"2"}],"count":2}`))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = decodeExport([]byte(` `))
	assert.Error(t, err)
}

func TestRun_RoleView(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
	 {"order_id":"1","order_number":"#1001","status":"pending_edit","fulfill_by_date":"2099-01-01T00:00:00Z"},
	 {"order_id":"2","order_number":"#1002","status":"in_progress","fulfill_by_date":"2099-01-01T00:00:00Z"}]`), 0o600))

	var buf bytes.Buffer
	require.NoError(t, run(path, "editor", "", "allow", 80, &buf))
	assert.Contains(t, buf.String(), "editor board (1 of 2 orders)")
	assert.Contains(t, buf.String(), "#1001")
	assert.NotContains(t, buf.String(), "#1002")

	buf.Reset()
	require.NoError(t, run(path, "intern", "", "deny", 80, &buf))
	assert.Contains(t, buf.String(), "unknown role")
	assert.Contains(t, buf.String(), "(0 of 2 orders)")

	assert.Error(t, run(path, "editor", "", "maybe", 80, &buf))
}
