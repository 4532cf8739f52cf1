package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"rental-console/internal/models"
)

// ImageFile is one file destined for the images form field.
type ImageFile struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

func (c *Client) ListItems(ctx context.Context, token string) ([]models.RentalItem, error) {
	return c.listItems(ctx, "ListItems", "/v1/hars/rental/items/all", token)
}

// ListItemsByOwner returns the items whose owner is userID.
func (c *Client) ListItemsByOwner(ctx context.Context, token, userID string) ([]models.RentalItem, error) {
	return c.listItems(ctx, "ListItemsByOwner", "/v1/hars/rental/items/user"+pathID(userID), token)
}

func (c *Client) listItems(ctx context.Context, op, path, token string) ([]models.RentalItem, error) {
	var out []wireItem
	if err := c.doJSON(ctx, op, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	items := make([]models.RentalItem, 0, len(out))
	for _, w := range out {
		items = append(items, w.toModel())
	}
	return items, nil
}

func (c *Client) GetItem(ctx context.Context, token, id string) (*models.RentalItem, error) {
	var out wireItem
	if err := c.doJSON(ctx, "GetItem", http.MethodGet, "/v1/hars/rental/items"+pathID(id), token, nil, &out); err != nil {
		return nil, err
	}
	item := out.toModel()
	return &item, nil
}

func (c *Client) CreateItem(ctx context.Context, token string, item models.RentalItem) (*models.RentalItem, error) {
	item.ID = ""
	return c.writeItem(ctx, "CreateItem", http.MethodPost, "/v1/hars/rental/items/create", token, item)
}

func (c *Client) UpdateItem(ctx context.Context, token string, item models.RentalItem) (*models.RentalItem, error) {
	return c.writeItem(ctx, "UpdateItem", http.MethodPut, "/v1/hars/rental/items"+pathID(item.ID), token, item)
}

func (c *Client) writeItem(ctx context.Context, op, method, path, token string, item models.RentalItem) (*models.RentalItem, error) {
	var out wireItem
	if err := c.doJSON(ctx, op, method, path, token, newItemPayload(item), &out); err != nil {
		return nil, err
	}
	saved := out.toModel()
	if saved.ID == "" && saved.Name == "" {
		saved = item
	}
	return &saved, nil
}

func (c *Client) DeleteItem(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, "DeleteItem", http.MethodDelete, "/v1/hars/rental/items"+pathID(id), token, nil, nil)
}

// UploadImages sends files as one multipart form. It returns the image URLs
// when the backend answers with a JSON array, and nil when it answers with a
// plain message.
func (c *Client) UploadImages(ctx context.Context, token, itemID string, files []ImageFile) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, f.Filename))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create image part: %w", err)
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return nil, fmt.Errorf("copy image %s: %w", f.Filename, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	var raw []byte
	err := c.do(ctx, request{
		op:          "UploadImages",
		method:      http.MethodPost,
		path:        "/v1/hars/rental/items" + pathID(itemID) + "/upload-images",
		token:       token,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &raw)
	if err != nil {
		return nil, err
	}

	var urls []string
	if json.Unmarshal(raw, &urls) != nil {
		return nil, nil
	}
	return urls, nil
}
