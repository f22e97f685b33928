package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerUserAgent     = "User-Agent"
	headerRequestID     = "X-Request-ID"
	contentTypeJSON     = "application/json"
	defaultUserAgent    = "docs-go/1.0"

	maxErrorBody = 1 << 20
)

// request describes a single API call relative to the base URL.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field    string
	filename string
	data     []byte
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	reqURL := c.baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	// bytes.Reader bodies get a GetBody func so the pipeline can replay them.
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerUserAgent, c.userAgent)
	req.Header.Set(headerRequestID, c.ids.New())
	if r.contentType != "" {
		req.Header.Set(headerContentType, r.contentType)
	}
	return req, nil
}

// send executes r through the pipeline. Error statuses are converted to
// *APIError and the body closed; otherwise the caller owns resp.Body.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err != nil {
			return nil, fmt.Errorf("failed to read error response: %w", err)
		}
		return nil, parseError(resp.StatusCode, body)
	}
	return resp, nil
}

// do executes r and decodes a JSON response into result, if non-nil.
func (c *Client) do(ctx context.Context, r request, result any) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// doRequest performs a request with an optional JSON body.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body, result any) error {
	r := request{method: method, path: path, query: query}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		r.body = data
		r.contentType = contentTypeJSON
	}
	return c.do(ctx, r, result)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	return c.doRequest(ctx, http.MethodGet, path, query, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.doRequest(ctx, http.MethodPost, path, nil, body, result)
}

func (c *Client) put(ctx context.Context, path string, body, result any) error {
	return c.doRequest(ctx, http.MethodPut, path, nil, body, result)
}

func (c *Client) delete(ctx context.Context, path string, query url.Values) error {
	return c.doRequest(ctx, http.MethodDelete, path, query, nil, nil)
}

// postForm performs a multipart/form-data POST.
func (c *Client) postForm(ctx context.Context, path string, fields []formField, files []formFile, result any) error {
	body, contentType, err := encodeMultipart(fields, files)
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodPost, path: path, body: body, contentType: contentType}, result)
}

// download streams a binary response into w and returns the filename
// suggested by the server's Content-Disposition header.
func (c *Client) download(ctx context.Context, r request, w io.Writer) (string, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("failed to read download: %w", err)
	}
	return attachmentName(resp.Header.Get("Content-Disposition")), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart builds a form body in memory so that it can be replayed.
// File parts carry the content type sniffed from their data.
func encodeMultipart(fields []formField, files []formFile) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.field), quoteEscaper.Replace(f.filename)))
		h.Set(headerContentType, mimetype.Detect(f.data).String())
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating form part %s: %w", f.field, err)
		}
		if _, err := part.Write(f.data); err != nil {
			return nil, "", fmt.Errorf("writing form part %s: %w", f.field, err)
		}
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("writing form field %s: %w", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
