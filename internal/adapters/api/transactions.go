package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/bnema/walletsync/internal/domain"
)

type transactionsResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
}

type uploadResponse struct {
	Imported int `json:"imported"`
}

func (c *Client) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	var resp transactionsResponse
	if err := c.callJSON(ctx, classMetadata, "GET", "/transactions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// UploadTransactions sends a ledger export as multipart form data. The body
// is buffered up front so the request can be replayed after a 401 refresh.
func (c *Client) UploadTransactions(ctx context.Context, filename string, r io.Reader) (int, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return 0, fmt.Errorf("create upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return 0, fmt.Errorf("buffer upload body: %w", err)
	}
	if err := form.Close(); err != nil {
		return 0, fmt.Errorf("finalize upload form: %w", err)
	}

	var resp uploadResponse
	err = c.call(ctx, classUpload, "POST", "/transactions/upload", buf.Bytes(), form.FormDataContentType(), true, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Imported, nil
}
