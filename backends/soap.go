package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-product-gateway/internal/errors"
)

const (
	soapNamespace = "spyne.examples.readproduto"
	readAllResult = "read_allResult"

	readAllEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:tns="` + soapNamespace + `">
  <soapenv:Body>
    <tns:read_all/>
  </soapenv:Body>
</soapenv:Envelope>`
)

// SOAPClient lists products with the SOAP 1.1 read_all operation. The service
// answers with a JSON array serialised as a string inside read_allResult.
type SOAPClient struct {
	url        string
	httpClient *http.Client
}

var _ Lister = (*SOAPClient)(nil)

func NewSOAPClient(url string, httpClient *http.Client) *SOAPClient {
	return &SOAPClient{url: url, httpClient: httpClient}
}

func (c *SOAPClient) ListAll(ctx context.Context) ([]Product, error) {
	body, status, err := do(ctx, c.httpClient, http.MethodPost, c.url, "text/xml; charset=utf-8",
		strings.NewReader(readAllEnvelope), map[string]string{"SOAPAction": `"read_all"`})
	if err != nil {
		return nil, fmt.Errorf("soap read_all: %w: %w", apperrors.ErrBackendUnavailable, err)
	}

	result, fault, err := scanEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("soap read_all: %w: %w", apperrors.ErrBackendResponse, err)
	}
	if fault != "" {
		return nil, fmt.Errorf("soap read_all: %w: fault: %s", apperrors.ErrBackendResponse, fault)
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("soap read_all: %w: status %d", apperrors.ErrBackendResponse, status)
	}

	products := []Product{}
	if strings.TrimSpace(result) == "" {
		return products, nil
	}
	if err := json.Unmarshal([]byte(result), &products); err != nil {
		return nil, fmt.Errorf("soap read_all: %w: decode result: %w", apperrors.ErrBackendResponse, err)
	}
	return products, nil
}

// scanEnvelope walks the envelope by local name, ignoring namespace prefixes, and
// returns the text of read_allResult or of a faultstring.
func scanEnvelope(body []byte) (result string, fault string, err error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", "", fmt.Errorf("no %s element in response", readAllResult)
		}
		if err != nil {
			return "", "", err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case readAllResult:
			var text string
			if err := dec.DecodeElement(&text, &start); err != nil {
				return "", "", err
			}
			return text, "", nil
		case "faultstring":
			var text string
			if err := dec.DecodeElement(&text, &start); err != nil {
				return "", "", err
			}
			return "", text, nil
		}
	}
}
