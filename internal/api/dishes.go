package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// NewDish описывает блюдо, добавляемое через админ-панель.
type NewDish struct {
	Name        string
	Price       string
	Description string
	Category    string

	ImageName string
	Image     io.Reader
}

// AddDish отправляет блюдо как multipart/form-data, изображение необязательно.
func (c *Client) AddDish(ctx context.Context, userID string, d NewDish) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"name", d.Name},
		{"price", d.Price},
		{"description", d.Description},
		{"category", d.Category},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("add dish: write field %s: %w", f.name, err)
		}
	}

	if d.Image != nil && d.ImageName != "" {
		part, err := w.CreateFormFile("image", d.ImageName)
		if err != nil {
			return fmt.Errorf("add dish: create image part: %w", err)
		}
		if _, err := io.Copy(part, d.Image); err != nil {
			return fmt.Errorf("add dish: copy image: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("add dish: close multipart: %w", err)
	}

	return c.doStatus(ctx, request{
		op:          "add dish",
		method:      http.MethodPost,
		path:        "/dishes",
		userID:      userID,
		body:        &buf,
		contentType: w.FormDataContentType(),
	})
}
