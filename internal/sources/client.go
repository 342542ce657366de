package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"silverpulse/internal/dataprocessing"
	apperrors "silverpulse/internal/errors"
)

func newClient(userAgent string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.9")
}

// execute sends the request and returns the body of a 2xx response
func execute(ctx context.Context, req *resty.Request, method, url string) ([]byte, error) {
	resp, err := req.SetContext(ctx).Execute(method, url)
	if err != nil {
		return nil, apperrors.NewTransportError(fmt.Sprintf("%s %s failed", method, url), err)
	}
	if resp.IsError() {
		return nil, apperrors.NewTransportError(fmt.Sprintf("%s %s returned %d", method, url, resp.StatusCode()), nil).
			WithContext("status", resp.StatusCode())
	}
	return resp.Body(), nil
}

func decodeJSON(body []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.NewDecodeError("response is not a JSON object", err)
	}
	return payload, nil
}

// lookupFold finds key in m ignoring case
func lookupFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// lookupPath walks nested objects by case-insensitive keys
func lookupPath(m map[string]any, keys ...string) (any, bool) {
	var cur any = m
	for _, key := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = lookupFold(obj, key); !ok {
			return nil, false
		}
	}
	return cur, true
}

// toFloat accepts JSON numbers, numeric strings and {"raw": n} wrappers
func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		return dataprocessing.ParseNumber(val)
	case map[string]any:
		if raw, ok := lookupFold(val, "raw"); ok {
			return toFloat(raw)
		}
	}
	return 0, false
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
