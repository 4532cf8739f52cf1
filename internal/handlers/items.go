package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"rental-console/internal/auth"
	"rental-console/internal/gateway"
	"rental-console/internal/models"

	"go.uber.org/zap"
)

const (
	mustLoginForItems = "You must be logged in to view your items"
	itemsLoadFailed   = "Failed to load rental items"
	itemSaveFailed    = "Failed to save item"
	itemDeleteFailed  = "Failed to delete item"
	imagesNotUploaded = "Item saved, but the images could not be uploaded."

	maxUploadMemory = 32 << 20
)

// ItemCard is an item as shown in a listing.
type ItemCard struct {
	models.RentalItem
	CanEdit bool
}

// AvailabilityLabel reads "Unavailable" for sold-out items and "Count: N" otherwise.
func (c ItemCard) AvailabilityLabel() string {
	if !c.Available() {
		return "Unavailable"
	}
	return "Count: " + itoa(c.AvailableCount)
}

// ItemsViewModel is the data passed to the item listing.
type ItemsViewModel struct {
	Page
	Scope   string
	OwnerID string
	Items   []ItemCard
}

// ItemFormViewModel is the data passed to the item create/edit form.
type ItemFormViewModel struct {
	Page
	ItemID string
	Form   ItemFormInput
	Images []string
	IsEdit bool
}

func cards(sess *models.Session, items []models.RentalItem) []ItemCard {
	out := make([]ItemCard, 0, len(items))
	for _, it := range items {
		out = append(out, ItemCard{RentalItem: it, CanEdit: auth.CanEditItem(sess, it)})
	}
	return out
}

// excludeOwner drops the items owned by userID. An empty userID keeps all.
func excludeOwner(items []models.RentalItem, userID string) []models.RentalItem {
	if userID == "" {
		return items
	}
	out := make([]models.RentalItem, 0, len(items))
	for _, it := range items {
		if it.OwnerUserID != userID {
			out = append(out, it)
		}
	}
	return out
}

// ListItems renders the session user's items, or with scope=all every
// other user's items.
func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r)
	vm := ItemsViewModel{Page: newPage(r, "Rental items"), Scope: "mine"}
	if r.URL.Query().Get("scope") == "all" {
		vm.Scope = "all"
	}
	h.itemNotices(r, &vm.Page)

	var (
		items []models.RentalItem
		err   error
	)
	switch {
	case vm.Scope == "all":
		items, err = h.backend.ListItems(r.Context(), sess.BearerToken)
		items = excludeOwner(items, sess.UserID)
	case sess.UserID == "":
		vm.Error = mustLoginForItems
		h.render(w, r, "items.html", vm)
		return
	default:
		vm.OwnerID = sess.UserID
		items, err = h.backend.ListItemsByOwner(r.Context(), sess.BearerToken, sess.UserID)
	}
	if err != nil {
		h.logger(r).Error("list items", zap.String("scope", vm.Scope), zap.Error(err))
		vm.Error = itemsLoadFailed
	}
	vm.Items = cards(sess, items)
	h.render(w, r, "items.html", vm)
}

// ListUserItems renders the items of the user named in the route.
func (h *Handlers) ListUserItems(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r)
	owner := r.PathValue("userId")
	vm := ItemsViewModel{Page: newPage(r, "Rental items"), Scope: "user", OwnerID: owner}

	items, err := h.backend.ListItemsByOwner(r.Context(), sess.BearerToken, owner)
	if err != nil {
		h.logger(r).Error("list user items", zap.String("owner", owner), zap.Error(err))
		vm.Error = itemsLoadFailed
	}
	vm.Items = cards(sess, items)
	h.render(w, r, "items.html", vm)
}

func (h *Handlers) itemNotices(r *http.Request, p *Page) {
	switch {
	case r.URL.Query().Get("warning") == "images":
		p.Notice = imagesNotUploaded
	case r.URL.Query().Get("deleted") == "0":
		p.Error = itemDeleteFailed
	}
}

// NewItemForm renders an empty item form.
func (h *Handlers) NewItemForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "item_form.html", ItemFormViewModel{Page: newPage(r, "New item")})
}

// loadEditableItem fetches the item in the route and applies the EditItem
// gate. It writes the response and returns nil when the caller must stop.
func (h *Handlers) loadEditableItem(w http.ResponseWriter, r *http.Request) *models.RentalItem {
	sess := GetSessionFromContext(r)
	id := r.PathValue("id")
	item, err := h.backend.GetItem(r.Context(), sess.BearerToken, id)
	if err != nil {
		h.logger(r).Error("get item", zap.String("item_id", id), zap.Error(err))
		http.Error(w, gateway.MessageOf(err, "Item not found"), http.StatusNotFound)
		return nil
	}
	if !auth.Allow(sess, auth.EditItem, item.OwnerUserID) {
		h.forbidden(w, r)
		return nil
	}
	return item
}

// EditItemForm renders the form for an item the session user owns.
func (h *Handlers) EditItemForm(w http.ResponseWriter, r *http.Request) {
	item := h.loadEditableItem(w, r)
	if item == nil {
		return
	}
	h.render(w, r, "item_form.html", ItemFormViewModel{
		Page:   newPage(r, "Edit item"),
		ItemID: item.ID,
		Form:   itemFormFrom(*item),
		Images: item.Images,
		IsEdit: true,
	})
}

// CreateItem handles POST /items.
func (h *Handlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	h.saveItem(w, r, nil)
}

// UpdateItem handles POST /items/{id}.
func (h *Handlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	existing := h.loadEditableItem(w, r)
	if existing == nil {
		return
	}
	h.saveItem(w, r, existing)
}

func parseItemRequest(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxUploadMemory)
	}
	return r.ParseForm()
}

func (h *Handlers) saveItem(w http.ResponseWriter, r *http.Request, existing *models.RentalItem) {
	sess := GetSessionFromContext(r)
	vm := ItemFormViewModel{Page: newPage(r, "New item")}
	if existing != nil {
		vm.Title, vm.ItemID, vm.IsEdit, vm.Images = "Edit item", existing.ID, true, existing.Images
	}
	if err := parseItemRequest(r); err != nil {
		vm.Error = "Invalid form submission"
		h.renderStatus(w, r, http.StatusBadRequest, "item_form.html", vm)
		return
	}
	vm.Form = ItemFormInput{
		Name:        strings.TrimSpace(r.FormValue("item_name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Category:    strings.TrimSpace(r.FormValue("item_category")),
		Location:    strings.TrimSpace(r.FormValue("address")),
		PricePerDay: parseFloat(r.FormValue("amount")),
		Available:   parseInt(r.FormValue("available")),
	}
	if err := h.validate.Struct(vm.Form); err != nil {
		vm.Error = "Name is required; price and count must be zero or more"
		h.renderStatus(w, r, http.StatusBadRequest, "item_form.html", vm)
		return
	}

	var (
		saved *models.RentalItem
		err   error
	)
	if existing != nil {
		saved, err = h.backend.UpdateItem(r.Context(), sess.BearerToken, vm.Form.item(existing.ID, existing.OwnerUserID, existing.Images))
	} else {
		saved, err = h.backend.CreateItem(r.Context(), sess.BearerToken, vm.Form.item("", sess.UserID, nil))
	}
	if err != nil {
		h.logger(r).Error("save item", zap.String("item_id", vm.ItemID), zap.Error(err))
		vm.Error = gateway.MessageOf(err, itemSaveFailed)
		h.renderStatus(w, r, http.StatusBadGateway, "item_form.html", vm)
		return
	}

	target := "/items?scope=mine"
	if err := h.uploadImages(r, sess, saved.ID); err != nil {
		h.logger(r).Warn("image upload failed after item save", zap.String("item_id", saved.ID), zap.Error(err))
		target += "&warning=images"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

var errNoItemID = errors.New("saved item has no id")

func (h *Handlers) uploadImages(r *http.Request, sess *models.Session, itemID string) error {
	if r.MultipartForm == nil {
		return nil
	}
	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		return nil
	}
	if itemID == "" {
		return errNoItemID
	}

	files := make([]gateway.ImageFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		files = append(files, imageFile(fh, f))
	}
	_, err := h.backend.UploadImages(r.Context(), sess.BearerToken, itemID, files)
	return err
}

func imageFile(fh *multipart.FileHeader, f multipart.File) gateway.ImageFile {
	return gateway.ImageFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}
}

// DeleteItem handles POST /items/{id}/delete for the item's owner.
func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	item := h.loadEditableItem(w, r)
	if item == nil {
		return
	}
	sess := GetSessionFromContext(r)
	if err := h.backend.DeleteItem(r.Context(), sess.BearerToken, item.ID); err != nil {
		h.logger(r).Error("delete item", zap.String("item_id", item.ID), zap.Error(err))
		http.Redirect(w, r, "/items?scope=mine&deleted=0", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/items?scope=mine", http.StatusSeeOther)
}
