package checkout

import (
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/appetiteclub/chatorder/services/checkout/internal/menu"
	"github.com/appetiteclub/chatorder/services/checkout/internal/pricing"
)

// CatalogHandler serves the read side of the menu: items with grouped
// add-ons, price quotes for a configuration and the active payment methods.
type CatalogHandler struct {
	logger   apt.Logger
	config   *apt.Config
	tlm      *telemetry.HTTP
	catalog  menu.Catalog
	payments menu.PaymentMethods
}

func NewCatalogHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *CatalogHandler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &CatalogHandler{
		logger:   logger,
		config:   config,
		tlm:      telemetry.NewHTTP(),
		catalog:  hd.Catalog,
		payments: hd.Payments,
	}
}

func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Route("/menu/items", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Get("/{id}", h.GetItem)
		r.Post("/{id}/quote", h.Quote)
	})
	r.Get("/payment-methods", h.ListPaymentMethods)
}

// MenuItemView adds the price shown to customers and the add-ons grouped by
// category.
type MenuItemView struct {
	*menu.MenuItem
	Price       decimal.Decimal   `json:"price"`
	AddOnGroups []menu.AddOnGroup `json:"add_on_groups"`
}

func newMenuItemView(item *menu.MenuItem) MenuItemView {
	groups := menu.GroupAddOns(item.AddOns)
	if groups == nil {
		groups = []menu.AddOnGroup{}
	}
	return MenuItemView{
		MenuItem:    item,
		Price:       item.EffectivePrice(),
		AddOnGroups: groups,
	}
}

// ListItems handles GET /menu/items. Optional filters: category and
// available=true.
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CatalogHandler.ListItems")
	defer finish()

	log := h.log(r)

	items, err := h.catalog.ListItems(r.Context())
	if err != nil {
		log.Error("cannot list menu items", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not list menu items")
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	onlyAvailable := r.URL.Query().Get("available") == "true"

	views := make([]MenuItemView, 0, len(items))
	for _, item := range items {
		if category != "" && !strings.EqualFold(item.Category, category) {
			continue
		}
		if onlyAvailable && !item.Available {
			continue
		}
		views = append(views, newMenuItemView(item))
	}

	apt.RespondSuccess(w, views, apt.Link{Rel: apt.RelSelf, Href: "/menu/items"})
}

// GetItem handles GET /menu/items/{id}
func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CatalogHandler.GetItem")
	defer finish()

	log := h.log(r)

	item, ok := h.item(w, r, log)
	if !ok {
		return
	}

	links := apt.RESTfulLinksFor(item)
	apt.RespondSuccess(w, newMenuItemView(item), links...)
}

type QuoteRequest struct {
	VariationID *uuid.UUID     `json:"variation_id,omitempty"`
	AddOns      []AddOnRequest `json:"add_ons,omitempty"`
	Quantity    int            `json:"quantity"`
}

// Quote is the price of a configuration before it is added to a cart.
type Quote struct {
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Variation  *menu.Variation `json:"variation,omitempty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	Total      decimal.Decimal `json:"total"`
}

// Quote handles POST /menu/items/{id}/quote
func (h *CatalogHandler) Quote(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CatalogHandler.Quote")
	defer finish()

	log := h.log(r)

	item, ok := h.item(w, r, log)
	if !ok {
		return
	}

	var req QuoteRequest
	if !decodeOptionalJSON(w, r, log, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		apt.RespondError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	sel, err := buildSelection(item, LineAddRequest{
		MenuItemID:  item.ID,
		VariationID: req.VariationID,
		AddOns:      req.AddOns,
		Quantity:    req.Quantity,
	})
	if err != nil {
		respondSelectionError(w, log, err)
		return
	}

	unit := sel.UnitPrice()
	apt.RespondSuccess(w, Quote{
		MenuItemID: item.ID,
		Variation:  sel.Variation(),
		UnitPrice:  unit,
		Quantity:   req.Quantity,
		Total:      pricing.LineTotal(unit, req.Quantity),
	})
}

// ListPaymentMethods handles GET /payment-methods
func (h *CatalogHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CatalogHandler.ListPaymentMethods")
	defer finish()

	log := h.log(r)

	methods, err := h.payments.ListActive(r.Context())
	if err != nil {
		log.Error("cannot list payment methods", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not list payment methods")
		return
	}
	if methods == nil {
		methods = []menu.PaymentMethod{}
	}

	apt.RespondSuccess(w, methods, apt.Link{Rel: apt.RelSelf, Href: "/payment-methods"})
}

func (h *CatalogHandler) item(w http.ResponseWriter, r *http.Request, log apt.Logger) (*menu.MenuItem, bool) {
	id, ok := parseUUIDParam(w, r, log, "id")
	if !ok {
		return nil, false
	}

	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		log.Error("cannot load menu item", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not load menu item")
		return nil, false
	}
	if item == nil {
		apt.RespondError(w, http.StatusNotFound, "Menu item not found")
		return nil, false
	}

	return item, true
}

func (h *CatalogHandler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}
