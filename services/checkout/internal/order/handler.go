package order

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/chatorder/pkg/enums/orderstatus"
)

const MaxBodyBytes = 1 << 20

// Handler serves the admin view over placed orders.
type Handler struct {
	logger   apt.Logger
	config   *apt.Config
	tlm      *telemetry.HTTP
	store    Store
	events   *EventPublisher
	activity *ActivityFeed
	now      func() time.Time
}

type HandlerDeps struct {
	Store    Store
	Events   *EventPublisher
	Activity *ActivityFeed
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		logger:   logger,
		config:   config,
		tlm:      telemetry.NewHTTP(),
		store:    hd.Store,
		events:   hd.Events,
		activity: hd.Activity,
		now:      time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/stats", h.GetStats)
		r.Get("/activity", h.ListActivity)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}/status", h.UpdateOrderStatus)
	})
}

type OrderWithItems struct {
	*Order
	Items []*OrderItem `json:"items"`
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	filter := Filter{Status: r.URL.Query().Get("status")}
	if filter.Status != "" && orderstatus.ByName(filter.Status) == nil {
		apt.RespondError(w, http.StatusBadRequest, "Unknown status")
		return
	}

	var ok bool
	if filter.Limit, ok = queryInt(w, r, "limit"); !ok {
		return
	}
	if filter.Offset, ok = queryInt(w, r, "offset"); !ok {
		return
	}

	orders, err := h.store.List(ctx, filter)
	if err != nil {
		log.Error("cannot list orders", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not list orders")
		return
	}

	if orders == nil {
		orders = []*Order{}
	}

	apt.RespondSuccess(w, orders, apt.Link{Rel: apt.RelSelf, Href: "/orders"})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	o, err := h.store.Get(ctx, id)
	if err != nil {
		log.Error("error loading order", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not load order")
		return
	}
	if o == nil {
		apt.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	items, err := h.store.ListItems(ctx, id)
	if err != nil {
		log.Error("error loading order items", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not load order items")
		return
	}
	if items == nil {
		items = []*OrderItem{}
	}

	links := apt.RESTfulLinksFor(o)
	apt.RespondSuccess(w, OrderWithItems{Order: o, Items: items}, links...)
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus moves an order to any known status. The last write wins.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateOrderStatus")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	var req StatusUpdateRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}

	status := orderstatus.ByName(req.Status)
	if status == nil {
		log.Debug("unknown order status", "status", req.Status)
		apt.RespondError(w, http.StatusBadRequest, "Unknown status")
		return
	}

	o, err := h.store.Get(ctx, id)
	if err != nil {
		log.Error("error loading order", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not load order")
		return
	}
	if o == nil {
		apt.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	previous := o.Status
	if err := h.store.UpdateStatus(ctx, id, status.Code()); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			apt.RespondError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error("cannot update order status", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not update order status")
		return
	}
	o.SetStatus(*status)

	h.events.StatusChanged(ctx, o, previous)

	links := apt.RESTfulLinksFor(o)
	apt.RespondSuccess(w, o, links...)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetStats")
	defer finish()

	log := h.log(r)

	stats, err := h.store.Stats(r.Context(), StartOfDay(h.now()))
	if err != nil {
		log.Error("cannot compute order stats", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not compute order stats")
		return
	}

	for _, s := range orderstatus.All {
		if _, ok := stats.ByStatus[s.Code()]; !ok {
			if stats.ByStatus == nil {
				stats.ByStatus = make(map[string]int64)
			}
			stats.ByStatus[s.Code()] = 0
		}
	}

	apt.RespondSuccess(w, stats)
}

func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListActivity")
	defer finish()

	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}

	entries := []Activity{}
	if h.activity != nil {
		entries = h.activity.Recent(limit)
	}

	apt.RespondSuccess(w, entries, apt.Link{Rel: apt.RelSelf, Href: "/orders/activity"})
}

// Helpers

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		log.Debug("missing id parameter")
		apt.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}

func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		apt.RespondError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return 0, false
	}
	return n, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, log apt.Logger, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}

	return true
}
