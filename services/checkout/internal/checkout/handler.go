package checkout

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/chatorder/services/checkout/internal/cart"
	"github.com/appetiteclub/chatorder/services/checkout/internal/clipboard"
	"github.com/appetiteclub/chatorder/services/checkout/internal/handoff"
	"github.com/appetiteclub/chatorder/services/checkout/internal/menu"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger   apt.Logger
	config   *apt.Config
	tlm      *telemetry.HTTP
	sessions *Manager
	catalog  menu.Catalog
	payments menu.PaymentMethods
}

type HandlerDeps struct {
	Sessions *Manager
	Catalog  menu.Catalog
	Payments menu.PaymentMethods
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		logger:   logger,
		config:   config,
		tlm:      telemetry.NewHTTP(),
		sessions: hd.Sessions,
		catalog:  hd.Catalog,
		payments: hd.Payments,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/checkout/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)

			r.Post("/lines", h.AddLine)
			r.Delete("/lines", h.ClearLines)
			r.Put("/lines/{lineID}", h.UpdateLine)
			r.Delete("/lines/{lineID}", h.RemoveLine)

			r.Put("/details", h.UpdateDetails)
			r.Put("/payment", h.SelectPayment)

			r.Post("/proceed", h.Proceed)
			r.Post("/back", h.Back)
			r.Post("/place-order", h.PlaceOrder)
		})
	})
}

// Sessions

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateSession")
	defer finish()

	s := h.sessions.Create()
	h.log(r).Debug("checkout session created", "session_id", s.ID().String())

	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, s.View())
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetSession")
	defer finish()

	s, ok := h.session(w, r, h.log(r))
	if !ok {
		return
	}

	apt.RespondSuccess(w, s.View())
}

// Cart lines

type AddOnRequest struct {
	ID       uuid.UUID `json:"id"`
	Quantity int       `json:"quantity"`
}

type LineAddRequest struct {
	MenuItemID  uuid.UUID      `json:"menu_item_id"`
	VariationID *uuid.UUID     `json:"variation_id,omitempty"`
	AddOns      []AddOnRequest `json:"add_ons,omitempty"`
	Quantity    int            `json:"quantity"`
}

type LineUpdateRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddLine")
	defer finish()

	log := h.log(r)

	s, ok := h.session(w, r, log)
	if !ok {
		return
	}

	var req LineAddRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}

	if req.MenuItemID == uuid.Nil {
		apt.RespondError(w, http.StatusBadRequest, "menu_item_id is required")
		return
	}

	item, err := h.catalog.GetItem(r.Context(), req.MenuItemID)
	if err != nil {
		log.Error("cannot load menu item", "error", err, "menu_item_id", req.MenuItemID.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not load menu item")
		return
	}
	if item == nil {
		apt.RespondError(w, http.StatusNotFound, "Menu item not found")
		return
	}

	sel, err := buildSelection(item, req)
	if err != nil {
		h.respondSessionError(w, log, err)
		return
	}

	if _, err := s.AddSelection(sel, req.Quantity); err != nil {
		h.respondSessionError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, s.View())
}

func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateLine")
	defer finish()

	log := h.log(r)

	s, ok := h.session(w, r, log)
	if !ok {
		return
	}
	lineID, ok := parseUUIDParam(w, r, log, "lineID")
	if !ok {
		return
	}

	var req LineUpdateRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}

	if err := s.SetLineQuantity(lineID, req.Quantity); err != nil {
		h.respondSessionError(w, log, err)
		return
	}

	apt.RespondSuccess(w, s.View())
}

func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemoveLine")
	defer finish()

	log := h.log(r)

	s, ok := h.session(w, r, log)
	if !ok {
		return
	}
	lineID, ok := parseUUIDParam(w, r, log, "lineID")
	if !ok {
		return
	}

	if err := s.RemoveLine(lineID); err != nil {
		h.respondSessionError(w, log, err)
		return
	}

	apt.RespondSuccess(w, s.View())
}

func (h *Handler) ClearLines(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ClearLines")
	defer finish()

	log := h.log(r)

	s, ok := h.session(w, r, log)
	if !ok {
		return
	}

	if err := s.ClearCart(); err != nil {
		h.respondSessionError(w, log, err)
		return
	}

	apt.RespondSuccess(w, s.View())
}

// Form

type PaymentRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateDetails")
	defer finish()

	log := h.log(r)

	s, ok := h.session(w, r, log)
	if !ok {
		return
	}

	d := NewDetails()
	if !decodeJSON(w, r, log, &d) {
		return
	}

	if d.PickupWindow != "" && !ValidPickupWindow(d.PickupWindow) {
		apt.RespondError(w, http.StatusBadRequest, "Unknown pickup window")
		return
	}

	if err := s.UpdateDetails(d); err != nil {
		h.respondSessionError(w, log, err)
		return
	}

	apt.RespondSuccess(w, s.View())
}

func (h *Handler) SelectPayment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SelectPayment")
	defer finish()

	log := h.log(r)

	s, ok := h.session(w, r, log)
	if !ok {
		return
	}

	var req PaymentRequest
	if !decodeJSON(w, r, log, &req) {
		return
	}

	pm, err := h.payments.Get(r.Context(), req.PaymentMethodID)
	if err != nil {
		log.Error("cannot load payment method", "error", err, "payment_method_id", req.PaymentMethodID)
		apt.RespondError(w, http.StatusInternalServerError, "Could not load payment method")
		return
	}
	if pm == nil || !pm.Active {
		apt.RespondError(w, http.StatusNotFound, "Payment method not found")
		return
	}

	if err := s.SelectPayment(*pm); err != nil {
		h.respondSessionError(w, log, err)
		return
	}

	apt.RespondSuccess(w, s.View())
}

// Navigation

// Proceed is a no-op while the details are incomplete; the view reports
// can_proceed either way.
func (h *Handler) Proceed(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Proceed")
	defer finish()

	s, ok := h.session(w, r, h.log(r))
	if !ok {
		return
	}

	s.Proceed()
	apt.RespondSuccess(w, s.View())
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Back")
	defer finish()

	s, ok := h.session(w, r, h.log(r))
	if !ok {
		return
	}

	s.Back()
	apt.RespondSuccess(w, s.View())
}

// PlaceOrderRequest lets the client state its clipboard capabilities and,
// optionally, override the platform detected from the User-Agent.
type PlaceOrderRequest struct {
	Platform  string                `json:"platform,omitempty"`
	Clipboard clipboard.Environment `json:"clipboard"`
}

// PlaceOrder submits the session. Mobile clients get the confirmation
// payload. Desktop browsers are redirected to Messenger after their cookies
// and storage are cleared; clients asking for JSON get the links instead.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PlaceOrder")
	defer finish()

	log := h.log(r)

	s, ok := h.session(w, r, log)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if !decodeOptionalJSON(w, r, log, &req) {
		return
	}

	platform := handoff.DetectPlatform(r.UserAgent())
	if req.Platform != "" {
		p, ok := handoff.ParsePlatform(req.Platform)
		if !ok {
			apt.RespondError(w, http.StatusBadRequest, "Unknown platform")
			return
		}
		platform = p
	}

	env := req.Clipboard
	env.SecureContext = secureRequest(r)

	res, err := s.PlaceOrder(r.Context(), platform, env)
	if err != nil {
		h.respondSessionError(w, log, err)
		return
	}

	if platform == handoff.PlatformMobile {
		apt.RespondSuccess(w, res)
		return
	}

	h.sessions.End(s.ID())

	if wantsJSON(r) {
		handoff.ClearBrowserState(w, r)
		apt.RespondSuccess(w, res)
		return
	}
	handoff.Navigate(w, r, res.Links.Web)
}

// Helpers

func (h *Handler) session(w http.ResponseWriter, r *http.Request, log apt.Logger) (*Session, bool) {
	id, ok := parseUUIDParam(w, r, log, "id")
	if !ok {
		return nil, false
	}
	s, err := h.sessions.Get(id)
	if err != nil {
		apt.RespondError(w, http.StatusNotFound, "Checkout session not found")
		return nil, false
	}
	return s, true
}

func (h *Handler) respondSessionError(w http.ResponseWriter, log apt.Logger, err error) {
	switch {
	case errors.Is(err, ErrSubmissionInFlight):
		apt.RespondError(w, http.StatusConflict, "Order submission already in progress")
	case errors.Is(err, ErrInvalidTransition):
		apt.RespondError(w, http.StatusConflict, "Action not allowed in the current checkout step")
	case errors.Is(err, ErrEmptyCart):
		apt.RespondError(w, http.StatusUnprocessableEntity, "Cart is empty")
	case errors.Is(err, cart.ErrLineNotFound):
		apt.RespondError(w, http.StatusNotFound, "Cart line not found")
	default:
		respondSelectionError(w, log, err)
	}
}

func respondSelectionError(w http.ResponseWriter, log apt.Logger, err error) {
	switch {
	case errors.Is(err, cart.ErrItemUnavailable):
		apt.RespondError(w, http.StatusConflict, "Menu item is not available")
	case errors.Is(err, cart.ErrUnknownVariation),
		errors.Is(err, cart.ErrUnknownAddOn),
		errors.Is(err, cart.ErrInvalidQuantity):
		apt.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("checkout session error", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not update checkout session")
	}
}

func buildSelection(item *menu.MenuItem, req LineAddRequest) (*cart.Selection, error) {
	sel, err := cart.NewSelection(item)
	if err != nil {
		return nil, err
	}
	if req.VariationID != nil {
		if err := sel.SetVariation(*req.VariationID); err != nil {
			return nil, err
		}
	}
	for _, a := range req.AddOns {
		if err := sel.SetAddOnQuantity(a.ID, a.Quantity); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

func secureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger, name string) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, name)
	if idStr == "" {
		log.Debug("missing id parameter", "param", name)
		apt.RespondError(w, http.StatusBadRequest, "Missing "+name+" parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "param", name, "value", idStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, log apt.Logger, dst any) bool {
	return decodeBody(w, r, log, dst, false)
}

// decodeOptionalJSON accepts an empty body and leaves dst untouched.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, log apt.Logger, dst any) bool {
	return decodeBody(w, r, log, dst, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, log apt.Logger, dst any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if optional && len(strings.TrimSpace(string(body))) == 0 {
		return true
	}

	if err := json.Unmarshal(body, dst); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}

	return true
}
