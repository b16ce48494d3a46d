package fabric

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Data keys used by list endpoints.
const (
	dataKeyValue = "value"
	dataKeyData  = "data"
)

// Paginate follows continuation tokens from endpoint and returns the
// concatenated elements of the dataKey array of every page.
//
// A malformed page fails the whole call with a *FormatError. A transport
// failure ends the listing with the elements gathered so far and a nil
// error, so a failed first page yields an empty result. Only a canceled
// or expired ctx is returned as an error.
func (c *Client) Paginate(ctx context.Context, endpoint string, params url.Values, dataKey string) ([]json.RawMessage, error) {
	var token string
	all := []json.RawMessage{}

	for page := 1; ; page++ {
		if page > c.cfg.MaxPages {
			return nil, &FormatError{Endpoint: endpoint, Reason: fmt.Sprintf("more than %d pages", c.cfg.MaxPages)}
		}

		resp, err := c.Do(ctx, Request{Method: http.MethodGet, Endpoint: withContinuation(endpoint, token), Params: params})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			c.logger.WarnContext(ctx, "pagination stopped early, returning partial results",
				"endpoint", endpoint,
				"page", page,
				"items", len(all),
				"error", err,
			)
			return all, nil
		}

		if !gjson.ValidBytes(resp.Body) || !gjson.ParseBytes(resp.Body).IsObject() {
			return nil, &FormatError{Endpoint: endpoint, Reason: "response is not a JSON object", Body: truncate(string(resp.Body), maxErrorBody)}
		}
		data := gjson.GetBytes(resp.Body, gjsonEscape(dataKey))
		if !data.IsArray() {
			return nil, &FormatError{Endpoint: endpoint, Reason: fmt.Sprintf("missing %q array", dataKey), Body: truncate(string(resp.Body), maxErrorBody)}
		}
		data.ForEach(func(_, v gjson.Result) bool {
			all = append(all, json.RawMessage(v.Raw))
			return true
		})

		next := gjson.GetBytes(resp.Body, "continuationToken").String()
		if next == "" {
			return all, nil
		}
		if next == token {
			return nil, &FormatError{Endpoint: endpoint, Reason: "continuation token repeated"}
		}
		token = next
	}
}

// paginateInto paginates and decodes every element into T.
func paginateInto[T any](ctx context.Context, c *Client, endpoint string, params url.Values, dataKey string) ([]T, error) {
	raw, err := c.Paginate(ctx, endpoint, params, dataKey)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, &FormatError{Endpoint: endpoint, Reason: fmt.Sprintf("decoding element: %v", err), Body: truncate(string(r), maxErrorBody)}
		}
		out = append(out, v)
	}
	return out, nil
}

// withContinuation appends the URL-encoded token to endpoint.
func withContinuation(endpoint, token string) string {
	if token == "" {
		return endpoint
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "continuationToken=" + url.QueryEscape(token)
}

// gjsonEscape escapes characters gjson treats as path syntax.
func gjsonEscape(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	return r.Replace(key)
}
