package management

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
)

// AuthFile is one credential the proxy loaded from its auth directory.
type AuthFile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	Label         string `json:"label,omitempty"`
	Status        string `json:"status"`
	StatusMessage string `json:"status_message,omitempty"`
	Disabled      bool   `json:"disabled"`
	Unavailable   bool   `json:"unavailable"`
	RuntimeOnly   bool   `json:"runtime_only"`
	Source        string `json:"source,omitempty"`
	Path          string `json:"path,omitempty"`
	Size          int64  `json:"size,omitempty"`
	ModTime       string `json:"modtime,omitempty"`
	Email         string `json:"email,omitempty"`
	AccountType   string `json:"account_type,omitempty"`
	Account       string `json:"account,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
	LastRefresh   string `json:"last_refresh,omitempty"`
	SuccessCount  int64  `json:"success_count,omitempty"`
	FailureCount  int64  `json:"failure_count,omitempty"`
}

// AuthFiles lists the credentials the proxy has loaded.
func (c *Client) AuthFiles(ctx context.Context) ([]AuthFile, error) {
	resp, err := c.get(ctx, "auth-files")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read management response: %w", err)
	}
	return unwrapList[AuthFile](data, "files")
}

// UploadAuthFile pushes a credential file to the proxy for the given
// provider.
func (c *Client) UploadAuthFile(ctx context.Context, path, provider string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read credential file: %w", err)
	}
	filename := filepath.Base(path)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("provider", provider); err != nil {
		return fmt.Errorf("could not build upload form: %w", err)
	}
	if err := form.WriteField("filename", filename); err != nil {
		return fmt.Errorf("could not build upload form: %w", err)
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", "application/json")
	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("could not build upload form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("could not build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("could not build upload form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "auth-files", form.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	return checkResponse(resp)
}

// DeleteAuthFile removes one credential by file name.
func (c *Client) DeleteAuthFile(ctx context.Context, name string) error {
	return c.delete(ctx, "auth-files?name="+url.QueryEscape(name))
}

// DeleteAllAuthFiles removes every credential the proxy holds.
func (c *Client) DeleteAllAuthFiles(ctx context.Context) error {
	return c.delete(ctx, "auth-files?all=true")
}

// SetAuthFileDisabled toggles a credential without deleting it.
func (c *Client) SetAuthFileDisabled(ctx context.Context, id string, disabled bool) error {
	return c.putValue(ctx, "auth-files/"+url.PathEscape(id)+"/disabled", disabled)
}

// DownloadAuthFile fetches the raw content of one credential.
func (c *Client) DownloadAuthFile(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.get(ctx, "auth-files/download?id="+url.QueryEscape(id))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read credential content: %w", err)
	}
	return data, nil
}
