package backends

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-product-gateway/internal/errors"
	"github.com/tidwall/gjson"
)

// RESTClient creates products with POST {baseURL}/create.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ Creator = (*RESTClient)(nil)

func NewRESTClient(baseURL string, httpClient *http.Client) *RESTClient {
	return &RESTClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *RESTClient) Create(ctx context.Context, product Product) (*CreateResult, error) {
	body, status, err := doJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/create", product)
	if err != nil {
		return nil, fmt.Errorf("rest create: %w: %w", apperrors.ErrBackendUnavailable, err)
	}

	res := gjson.ParseBytes(body)
	if !isSuccess(status) {
		msg := firstString(res, "erro", "error", "message")
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, fmt.Errorf("rest create: %w: status %d: %s", apperrors.ErrBackendResponse, status, msg)
	}
	if !res.IsObject() {
		return nil, fmt.Errorf("rest create: %w: body is not a JSON object", apperrors.ErrBackendResponse)
	}

	return &CreateResult{
		Message:   firstString(res, "mensagem", "message"),
		StorageID: firstString(res, "mongodb_id", "storage_id", "id"),
	}, nil
}

// firstString returns the first non-empty value among paths.
func firstString(res gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := res.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
