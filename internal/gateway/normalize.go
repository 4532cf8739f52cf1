package gateway

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"rental-console/internal/models"
)

// flexID accepts ids sent as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// flexFloat accepts prices sent as numbers or numeric strings.
type flexFloat struct {
	set   bool
	value float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		f.set, f.value = true, v
		return nil
	}
	if err := json.Unmarshal(b, &f.value); err != nil {
		return err
	}
	f.set = true
	return nil
}

func firstID(ids ...flexID) string {
	for _, id := range ids {
		if id != "" {
			return string(id)
		}
	}
	return ""
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

type wireItem struct {
	ID              flexID    `json:"item_id"`
	AltID           flexID    `json:"id"`
	Name            string    `json:"item_name"`
	Description     string    `json:"description"`
	ItemDescription string    `json:"item_description"`
	Category        string    `json:"item_category"`
	Address         string    `json:"address"`
	ItemLocation    string    `json:"item_location"`
	Amount          flexFloat `json:"amount"`
	ItemPrice       flexFloat `json:"item_price"`
	Available       *int      `json:"available"`
	ImageNames      string    `json:"image_names"`
	ItemImages      []string  `json:"item_images"`
	UserID          flexID    `json:"user_id"`
	UserIDCamel     flexID    `json:"userId"`
}

func (w wireItem) toModel() models.RentalItem {
	item := models.RentalItem{
		ID:          firstID(w.ID, w.AltID),
		Name:        w.Name,
		Description: firstString(w.Description, w.ItemDescription),
		Category:    w.Category,
		Location:    firstString(w.Address, w.ItemLocation),
		OwnerUserID: firstID(w.UserID, w.UserIDCamel),
	}
	switch {
	case w.Amount.set:
		item.PricePerDay = w.Amount.value
	case w.ItemPrice.set:
		item.PricePerDay = w.ItemPrice.value
	}
	if item.PricePerDay < 0 {
		item.PricePerDay = 0
	}
	if w.Available != nil && *w.Available > 0 {
		item.AvailableCount = *w.Available
	}
	if imgs := splitImageNames(w.ImageNames); len(imgs) > 0 {
		item.Images = imgs
	} else if len(w.ItemImages) > 0 {
		item.Images = w.ItemImages
	}
	return item
}

func splitImageNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// itemPayload is the outbound shape for create and update.
type itemPayload struct {
	ID          string  `json:"item_id,omitempty"`
	Name        string  `json:"item_name"`
	Description string  `json:"description"`
	Category    string  `json:"item_category,omitempty"`
	Address     string  `json:"address"`
	Amount      float64 `json:"amount"`
	Available   int     `json:"available"`
	ImageNames  string  `json:"image_names,omitempty"`
	UserID      string  `json:"user_id,omitempty"`
}

func newItemPayload(item models.RentalItem) itemPayload {
	return itemPayload{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Category:    item.Category,
		Address:     item.Location,
		Amount:      item.PricePerDay,
		Available:   max(item.AvailableCount, 0),
		ImageNames:  strings.Join(item.Images, ","),
		UserID:      item.OwnerUserID,
	}
}

type wireRole struct {
	ID          flexID `json:"role_id"`
	Name        string `json:"role_name"`
	Level       *int   `json:"role_level"`
	Description string `json:"description"`
}

func (w wireRole) toModel() models.Role {
	return models.Role{ID: string(w.ID), Name: w.Name, Level: w.Level, Description: w.Description}
}

type rolePayload struct {
	ID          string `json:"role_id,omitempty"`
	Name        string `json:"role_name"`
	Level       *int   `json:"role_level,omitempty"`
	Description string `json:"description,omitempty"`
}

func newRolePayload(r models.Role) rolePayload {
	return rolePayload{ID: r.ID, Name: r.Name, Level: r.Level, Description: r.Description}
}

type wireUser struct {
	UserID      flexID    `json:"user_id"`
	UserIDCamel flexID    `json:"userId"`
	ID          flexID    `json:"id"`
	UserIDLower flexID    `json:"userid"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	Company     string    `json:"company"`
	GSTNumber   string    `json:"gst_number"`
	Username    string    `json:"username"`
	Roles       *wireRole `json:"roles"`
}

func (w wireUser) toModel() models.User {
	u := models.User{
		ID:        firstID(w.UserID, w.UserIDCamel, w.ID, w.UserIDLower),
		Email:     w.Email,
		FullName:  firstString(w.FullName, w.Name),
		Phone:     w.Phone,
		Address:   w.Address,
		Company:   w.Company,
		GSTNumber: w.GSTNumber,
		Username:  w.Username,
	}
	if w.Roles != nil {
		r := w.Roles.toModel()
		u.Role = &r
	}
	return u
}

type signupPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address,omitempty"`
	Company  string `json:"company,omitempty"`
	Roles    struct {
		RoleID string `json:"role_id"`
	} `json:"roles"`
}

type wireOrder struct {
	OrderID       flexID    `json:"orderId"`
	OrderIDSnake  flexID    `json:"order_id"`
	UserID        flexID    `json:"userId"`
	UserIDSnake   flexID    `json:"user_id"`
	ItemID        flexID    `json:"itemId"`
	ItemIDSnake   flexID    `json:"item_id"`
	StartDate     string    `json:"startDate"`
	EndDate       string    `json:"endDate"`
	TotalPrice    flexFloat `json:"totalPrice"`
	PaymentStatus string    `json:"paymentStatus"`
	BookingStatus string    `json:"bookingStatus"`
}

func (w wireOrder) toModel() models.RentalOrder {
	return models.RentalOrder{
		ID:            firstID(w.OrderID, w.OrderIDSnake),
		UserID:        firstID(w.UserID, w.UserIDSnake),
		ItemID:        firstID(w.ItemID, w.ItemIDSnake),
		StartDate:     w.StartDate,
		EndDate:       w.EndDate,
		TotalPrice:    w.TotalPrice.value,
		PaymentStatus: w.PaymentStatus,
		BookingStatus: w.BookingStatus,
	}
}
