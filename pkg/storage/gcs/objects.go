package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when the backend reports a missing source
// object. Callers distinguish it from transient I/O failures.
var ErrObjectNotFound = errors.New("gcs: object not found")

// ObjectInfo describes one stored object as returned by listing.
type ObjectInfo struct {
	Name    string
	Updated time.Time
}

// WriteObject uploads body to the named object, replacing any existing content.
func (c *Client) WriteObject(ctx context.Context, bucket, object, contentType string, body io.Reader) error {
	if err := c.checkObjectArgs(&bucket, object); err != nil {
		return err
	}

	u := fmt.Sprintf(
		"%s/upload/storage/v1/b/%s/o?uploadType=media&name=%s",
		storageHost,
		url.PathEscape(bucket),
		url.QueryEscape(object),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.doAuthorized(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError("upload", object, resp)
	}
	return nil
}

// CopyObject server-side copies srcObject to dstObject. The source is left in
// place; callers wanting move semantics delete it after the copy is confirmed.
func (c *Client) CopyObject(ctx context.Context, bucket, srcObject, dstObject string) error {
	if err := c.checkObjectArgs(&bucket, srcObject); err != nil {
		return err
	}
	if dstObject == "" {
		return errors.New("destination object is required")
	}

	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s/copyTo/b/%s/o/%s",
		storageHost,
		url.PathEscape(bucket),
		url.PathEscape(srcObject),
		url.PathEscape(bucket),
		url.PathEscape(dstObject),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.doAuthorized(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("copy %s: %w", srcObject, ErrObjectNotFound)
	default:
		return statusError("copy", srcObject, resp)
	}
}

// DeleteObject removes the named object. A missing object is not an error.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	if err := c.checkObjectArgs(&bucket, object); err != nil {
		return err
	}

	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		storageHost,
		url.PathEscape(bucket),
		url.PathEscape(object),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.doAuthorized(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return statusError("delete", object, resp)
	}
}

// ObjectExists reports whether the named object is present.
func (c *Client) ObjectExists(ctx context.Context, bucket, object string) (bool, error) {
	if err := c.checkObjectArgs(&bucket, object); err != nil {
		return false, err
	}

	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		storageHost,
		url.PathEscape(bucket),
		url.PathEscape(object),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.doAuthorized(ctx, req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, statusError("stat", object, resp)
	}
}

// ListObjects returns every object under the given key prefix.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	if c == nil || c.tokenSource == nil {
		return nil, errors.New("gcs client not initialized")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}

	var out []ObjectInfo
	pageToken := ""
	for {
		u := fmt.Sprintf(
			"%s/storage/v1/b/%s/o?prefix=%s&fields=items(name,updated),nextPageToken",
			storageHost,
			url.PathEscape(bucket),
			url.QueryEscape(prefix),
		)
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.doAuthorized(ctx, req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			err := statusError("list", prefix, resp)
			_ = resp.Body.Close()
			return nil, err
		}

		var page struct {
			Items []struct {
				Name    string    `json:"name"`
				Updated time.Time `json:"updated"`
			} `json:"items"`
			NextPageToken string `json:"nextPageToken"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		_ = resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("decoding list response: %w", decodeErr)
		}

		for _, item := range page.Items {
			out = append(out, ObjectInfo{Name: item.Name, Updated: item.Updated})
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) checkObjectArgs(bucket *string, object string) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if *bucket == "" {
		*bucket = c.defaultBucket
	}
	if *bucket == "" {
		return errors.New("bucket is required")
	}
	if object == "" {
		return errors.New("object is required")
	}
	return nil
}

func (c *Client) doAuthorized(ctx context.Context, req *http.Request) (*http.Response, error) {
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

func statusError(op, object string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if len(b) > 0 {
		return fmt.Errorf("gcs %s %s: %s: %s", op, object, resp.Status, strings.TrimSpace(string(b)))
	}
	return fmt.Errorf("gcs %s %s: %s", op, object, resp.Status)
}
