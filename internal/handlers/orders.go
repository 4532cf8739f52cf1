package handlers

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"rental-console/internal/auth"
	"rental-console/internal/booking"
	"rental-console/internal/gateway"
	"rental-console/internal/models"

	"go.uber.org/zap"
)

const (
	orderItemsLoadFailed = "Failed to load items for ordering"
	ordersLoadFailed     = "Failed to load your orders"
	mustLoginForOrders   = "Please login to see your orders."
	orderLoadFailed      = "Failed to load this order"
	orderNotFound        = "Order not found"
)

// QuoteViewModel is the live price preview for one item.
type QuoteViewModel struct {
	ItemID     string
	Days       int
	TotalPrice float64
}

// OrderItem is a catalogue entry with its order form state.
type OrderItem struct {
	ItemCard
	StartDate string
	EndDate   string
	Quote     QuoteViewModel
	Selected  bool
}

// OrdersViewModel is the data passed to the ordering catalogue.
type OrdersViewModel struct {
	Page
	Items []OrderItem
}

// OrderRow is one of the user's orders joined to its item.
type OrderRow struct {
	models.RentalOrder
	Item *models.RentalItem
}

// ItemName falls back to "Unknown item" when the item no longer exists.
func (o OrderRow) ItemName() string {
	if o.Item == nil || o.Item.Name == "" {
		return "Unknown item"
	}
	return o.Item.Name
}

// OrderDetailViewModel is the data passed to a single order page.
type OrderDetailViewModel struct {
	Page
	Order *OrderRow
}

// YourOrdersViewModel is the data passed to the user's order list.
type YourOrdersViewModel struct {
	Page
	Orders []OrderRow
}

// Orders renders every item with an order form.
func (h *Handlers) Orders(w http.ResponseWriter, r *http.Request) {
	vm := OrdersViewModel{Page: newPage(r, "Orders")}
	h.ordersPage(w, r, http.StatusOK, vm, r.URL.Query().Get("item"), "", "")
}

func (h *Handlers) ordersPage(w http.ResponseWriter, r *http.Request, status int, vm OrdersViewModel, selected, start, end string) {
	sess := GetSessionFromContext(r)
	items, err := h.backend.ListItems(r.Context(), sess.BearerToken)
	if err != nil {
		if h.sessionRejected(w, r, err) {
			return
		}
		h.logger(r).Error("list items for ordering", zap.Error(err))
		if vm.Error == "" {
			vm.Error = orderItemsLoadFailed
		}
	}
	for _, c := range cards(sess, items) {
		oi := OrderItem{ItemCard: c, Quote: QuoteViewModel{ItemID: c.ID}}
		if c.ID == selected {
			oi.Selected = true
			oi.StartDate, oi.EndDate = start, end
			q := booking.Calculate(start, end, c.PricePerDay)
			oi.Quote.Days, oi.Quote.TotalPrice = q.Days, q.TotalPrice
		}
		vm.Items = append(vm.Items, oi)
	}
	h.renderStatus(w, r, status, "orders.html", vm)
}

// Quote returns the days and total for the current form inputs. It is
// requested on every date change.
func (h *Handlers) Quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	price := parseFloat(q.Get("price_per_day"))
	if price < 0 {
		price = 0
	}
	quote := booking.Calculate(q.Get("start_date"), q.Get("end_date"), price)
	h.renderPartial(w, r, "quote", QuoteViewModel{
		ItemID:     q.Get("item_id"),
		Days:       quote.Days,
		TotalPrice: quote.TotalPrice,
	})
}

// CreateOrder submits a booking. The rate is re-read from the backend so a
// tampered form cannot change the total.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r)
	vm := OrdersViewModel{Page: newPage(r, "Orders")}
	if err := r.ParseForm(); err != nil {
		vm.Error = "Invalid form submission"
		h.ordersPage(w, r, http.StatusBadRequest, vm, "", "", "")
		return
	}
	itemID := strings.TrimSpace(r.FormValue("item_id"))
	start := r.FormValue("start_date")
	end := r.FormValue("end_date")

	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		vm.Error = booking.ErrDatesRequired.Error()
		h.ordersPage(w, r, http.StatusBadRequest, vm, itemID, start, end)
		return
	}

	item, err := h.backend.GetItem(r.Context(), sess.BearerToken, itemID)
	if err != nil {
		h.logger(r).Error("get item for order", zap.String("item_id", itemID), zap.Error(err))
		vm.Error = booking.FailureMessage(err)
		h.ordersPage(w, r, http.StatusBadGateway, vm, itemID, start, end)
		return
	}

	order, err := h.bookings.Submit(r.Context(), sess, *item, start, end)
	if err != nil {
		vm.Error = booking.FailureMessage(err)
		h.ordersPage(w, r, orderFailureStatus(err), vm, itemID, start, end)
		return
	}

	h.logger(r).Info("order placed", zap.String("order_id", order.ID), zap.String("item_id", item.ID))
	http.Redirect(w, r, "/your-orders", http.StatusSeeOther)
}

func orderFailureStatus(err error) int {
	var apiErr *gateway.APIError
	switch {
	case errors.Is(err, booking.ErrDatesRequired):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrSubmissionInProgress):
		return http.StatusConflict
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	default:
		return http.StatusBadGateway
	}
}

// YourOrders renders the session user's orders joined to the item list.
func (h *Handlers) YourOrders(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r)
	vm := YourOrdersViewModel{Page: newPage(r, "Your orders")}
	if sess.UserID == "" {
		vm.Error = mustLoginForOrders
		h.render(w, r, "your_orders.html", vm)
		return
	}

	var (
		wg               sync.WaitGroup
		orders           []models.RentalOrder
		items            []models.RentalItem
		ordersErr, itErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		orders, ordersErr = h.backend.ListOrdersByUser(r.Context(), sess.BearerToken, sess.UserID)
	}()
	go func() {
		defer wg.Done()
		items, itErr = h.backend.ListItems(r.Context(), sess.BearerToken)
	}()
	wg.Wait()

	if err := errors.Join(ordersErr, itErr); err != nil {
		if h.sessionRejected(w, r, err) {
			return
		}
		h.logger(r).Error("load your orders", zap.Error(err))
		vm.Error = ordersLoadFailed
		h.render(w, r, "your_orders.html", vm)
		return
	}

	byID := make(map[string]*models.RentalItem, len(items))
	for i := range items {
		if items[i].ID != "" {
			byID[items[i].ID] = &items[i]
		}
	}
	for _, o := range orders {
		vm.Orders = append(vm.Orders, OrderRow{RentalOrder: o, Item: byID[o.ItemID]})
	}
	h.render(w, r, "your_orders.html", vm)
}

// OrderDetail renders one order. Only the customer who placed it and admins
// may view it.
func (h *Handlers) OrderDetail(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r)
	vm := OrderDetailViewModel{Page: newPage(r, "Order")}

	order, err := h.backend.GetOrder(r.Context(), sess.BearerToken, r.PathValue("id"))
	if err != nil {
		if h.sessionRejected(w, r, err) {
			return
		}
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			vm.Error = orderNotFound
			h.renderStatus(w, r, http.StatusNotFound, "order.html", vm)
			return
		}
		h.logger(r).Error("get order", zap.String("order_id", r.PathValue("id")), zap.Error(err))
		vm.Error = orderLoadFailed
		h.renderStatus(w, r, http.StatusBadGateway, "order.html", vm)
		return
	}

	owner := order.UserID != "" && order.UserID == sess.UserID
	if !owner && !auth.IsAdmin(sess.RoleName) {
		h.forbidden(w, r)
		return
	}

	row := OrderRow{RentalOrder: *order}
	if item, err := h.backend.GetItem(r.Context(), sess.BearerToken, order.ItemID); err == nil {
		row.Item = item
	} else {
		h.logger(r).Warn("get item for order", zap.String("item_id", order.ItemID), zap.Error(err))
	}
	vm.Order = &row
	h.render(w, r, "order.html", vm)
}
