package gateway

import (
	"context"
	"net/http"

	"rental-console/internal/models"
)

// CreateOrder submits a booking. It is called once per submission.
func (c *Client) CreateOrder(ctx context.Context, token string, req models.BookingRequest) (*models.RentalOrder, error) {
	var out wireOrder
	if err := c.doJSON(ctx, "CreateOrder", http.MethodPost, "/v1/hars/rental-orders/create", token, req, &out); err != nil {
		return nil, err
	}
	order := out.toModel()
	if order.ItemID == "" {
		order.ItemID = req.ItemID
		order.StartDate = req.StartDate
		order.EndDate = req.EndDate
		order.TotalPrice = req.TotalPrice
	}
	return &order, nil
}

// GetOrder fetches one order by id.
func (c *Client) GetOrder(ctx context.Context, token, id string) (*models.RentalOrder, error) {
	var out wireOrder
	if err := c.doJSON(ctx, "GetOrder", http.MethodGet, "/v1/hars/rental-orders"+pathID(id), token, nil, &out); err != nil {
		return nil, err
	}
	order := out.toModel()
	return &order, nil
}

// ListOrdersByUser returns every order placed by userID, oldest first as the
// backend sends them.
func (c *Client) ListOrdersByUser(ctx context.Context, token, userID string) ([]models.RentalOrder, error) {
	var out []wireOrder
	if err := c.doJSON(ctx, "ListOrdersByUser", http.MethodGet, "/v1/hars/rental-orders/user"+pathID(userID), token, nil, &out); err != nil {
		return nil, err
	}
	orders := make([]models.RentalOrder, 0, len(out))
	for _, o := range out {
		orders = append(orders, o.toModel())
	}
	return orders, nil
}
