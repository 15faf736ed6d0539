package backends

import (
	"context"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-product-gateway/internal/errors"
	"github.com/tidwall/gjson"
)

const deleteMutation = `mutation DeleteProduto($id: Int!) { deleteProduto(id: $id) }`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GraphQLClient deletes products through the deleteProduto mutation.
type GraphQLClient struct {
	url        string
	httpClient *http.Client
}

var _ Deleter = (*GraphQLClient)(nil)

func NewGraphQLClient(url string, httpClient *http.Client) *GraphQLClient {
	return &GraphQLClient{url: url, httpClient: httpClient}
}

func (c *GraphQLClient) Delete(ctx context.Context, id int) (*MutationResult, error) {
	body, status, err := doJSON(ctx, c.httpClient, http.MethodPost, c.url, graphQLRequest{
		Query:     deleteMutation,
		Variables: map[string]any{"id": id},
	})
	if err != nil {
		return nil, fmt.Errorf("graphql delete: %w: %w", apperrors.ErrBackendUnavailable, err)
	}

	res := gjson.ParseBytes(body)
	if msg := res.Get("errors.0.message"); msg.Exists() {
		return nil, fmt.Errorf("graphql delete: %w: %s", apperrors.ErrBackendResponse, msg.String())
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("graphql delete: %w: status %d", apperrors.ErrBackendResponse, status)
	}
	data := res.Get("data.deleteProduto")
	if !data.Exists() {
		return nil, fmt.Errorf("graphql delete: %w: missing data.deleteProduto", apperrors.ErrBackendResponse)
	}
	return &MutationResult{Message: data.String()}, nil
}
