package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-painting-orderflow/internal/events"
	"github.com/imrishuroy/go-painting-orderflow/internal/metrics"
	"github.com/imrishuroy/go-painting-orderflow/internal/model"
	"github.com/imrishuroy/go-painting-orderflow/internal/orders"
	"github.com/imrishuroy/go-painting-orderflow/internal/urgency"
	"github.com/imrishuroy/go-painting-orderflow/internal/validation"
	"github.com/imrishuroy/go-painting-orderflow/internal/workflow"
)

// orderView is an order plus the values computed on read.
type orderView struct {
	model.Order
	Progress      int               `json:"progress"`
	Urgency       urgency.Tier      `json:"urgency"`
	TimeRemaining string            `json:"time_remaining"`
	AdminURL      string            `json:"admin_url,omitempty"`
	NextStates    []workflow.Status `json:"next_states"`
}

func (h *Handler) view(o model.Order) orderView {
	now := h.cfg.Now()
	v := orderView{
		Order:         o,
		Progress:      o.Progress(),
		Urgency:       urgency.Of(o.FulfillByDate, now),
		TimeRemaining: urgency.Remaining(o.FulfillByDate, now),
		NextStates:    h.cfg.Engine.Registry().NextStates(o.Status),
	}
	if h.cfg.ShopifyStore != "" {
		v.AdminURL = o.AdminURL(h.cfg.ShopifyStore)
	}
	if v.NextStates == nil {
		v.NextStates = []workflow.Status{}
	}
	return v
}

func (h *Handler) listStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"statuses": h.cfg.Engine.Registry().Definitions()})
}

// listOrders returns the caller's role-scoped slice, most urgent first.
func (h *Handler) listOrders(c *gin.Context) {
	includeArchived, _ := strconv.ParseBool(c.Query("include_archived"))
	all := h.cfg.Engine.List(orders.ListOptions{
		IncludeArchived: includeArchived,
		Search:          c.Query("search"),
	})
	visible := h.cfg.Filter.ForActor(all, actorFrom(c))
	urgency.Sort(visible)

	out := make([]orderView, 0, len(visible))
	for _, o := range visible {
		out = append(out, h.view(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "count": len(out)})
}

func (h *Handler) getOrder(c *gin.Context) {
	o, err := h.cfg.Engine.Get(c.Param("id"))
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, h.view(o))
}

func (h *Handler) stats(c *gin.Context) {
	visible := h.cfg.Filter.ForActor(h.cfg.Engine.List(orders.ListOptions{IncludeArchived: true}), actorFrom(c))
	open := make([]model.Order, 0, len(visible))
	for _, o := range visible {
		if !o.Archived {
			open = append(open, o)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":   orders.Summarize(visible),
		"urgency": urgency.Count(open, h.cfg.Now()),
	})
}

func (h *Handler) transition(c *gin.Context) {
	var req validation.TransitionRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	id, actor := c.Param("id"), actorFrom(c).ID
	o, err := h.run(c.Request.Context(), mutation{
		kind: events.KindTransitioned, orderID: id, actor: actor, notes: req.Notes,
		apply: func() (model.Order, error) {
			return h.cfg.Engine.Transition(id, workflow.Status(req.Status), actor, req.Notes)
		},
	})
	if err != nil {
		h.fail(c, "transition", err)
		return
	}
	h.log.Info("order transitioned", "action", "transition", "order_id", o.OrderID, "status", o.Status, "actor", actor)
	h.count(c.Request.Context(), metrics.Transitions, 1, metrics.Dimension{Name: "status", Value: string(o.Status)})
	c.JSON(http.StatusOK, h.view(o))
}

func (h *Handler) assignArtist(c *gin.Context) {
	var req validation.AssignRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	id, itemID, actor := c.Param("id"), c.Param("itemId"), actorFrom(c).ID
	o, err := h.run(c.Request.Context(), mutation{
		kind: events.KindAssigned, orderID: id, actor: actor,
		notes: fmt.Sprintf("assigned item %s to %s", itemID, req.ArtistID),
		apply: func() (model.Order, error) {
			return h.cfg.Engine.AssignArtist(id, itemID, req.ArtistID, actor)
		},
	})
	if err != nil {
		h.fail(c, "assign", err)
		return
	}
	h.count(c.Request.Context(), metrics.ItemsAssigned, 1)
	c.JSON(http.StatusOK, h.view(o))
}

func (h *Handler) assignPaintable(c *gin.Context) {
	var req validation.AssignPaintableRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	id, actor := c.Param("id"), actorFrom(c).ID
	o, err := h.run(c.Request.Context(), mutation{
		kind: events.KindAssigned, orderID: id, actor: actor,
		notes: "assigned paintable items to " + req.ArtistID,
		apply: func() (model.Order, error) {
			return h.cfg.Engine.AssignAllPaintable(id, req.ArtistID, actor)
		},
	})
	if err != nil {
		h.fail(c, "assign_paintable", err)
		return
	}
	c.JSON(http.StatusOK, h.view(o))
}

// addOn toggles the add-on flag, or sets it when the body carries is_add_on.
func (h *Handler) addOn(c *gin.Context) {
	var req validation.AddOnRequest
	if c.Request.ContentLength != 0 {
		if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
			return
		}
	}
	id, itemID, actor := c.Param("id"), c.Param("itemId"), actorFrom(c).ID
	o, err := h.run(c.Request.Context(), mutation{
		kind: events.KindAddOnChanged, orderID: id, actor: actor,
		notes: "add-on override on item " + itemID,
		apply: func() (model.Order, error) {
			if req.IsAddOn == nil {
				return h.cfg.Engine.ToggleAddOn(id, itemID, actor)
			}
			return h.cfg.Engine.SetAddOn(id, itemID, *req.IsAddOn, actor)
		},
	})
	if err != nil {
		h.fail(c, "addon", err)
		return
	}
	c.JSON(http.StatusOK, h.view(o))
}

func (h *Handler) itemStatus(c *gin.Context) {
	var req validation.ItemStatusRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	id, itemID, actor := c.Param("id"), c.Param("itemId"), actorFrom(c).ID
	o, err := h.run(c.Request.Context(), mutation{
		kind: events.KindItemUpdated, orderID: id, actor: actor,
		notes: fmt.Sprintf("item %s %s", itemID, req.Status),
		apply: func() (model.Order, error) {
			return h.cfg.Engine.UpdateItemStatus(id, itemID, model.ItemStatus(req.Status), actor)
		},
	})
	if err != nil {
		h.fail(c, "item_status", err)
		return
	}
	c.JSON(http.StatusOK, h.view(o))
}
