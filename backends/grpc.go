package backends

import (
	"context"
	"fmt"
	"math"

	apperrors "github.com/jrsteele09/go-product-gateway/internal/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protowire"
)

// GRPCClient updates products through the unary UpdateProduto(Produto) returns (Resposta) call.
// Messages are encoded by hand with protowire, so no generated stubs are needed.
type GRPCClient struct {
	conn   *grpc.ClientConn
	method string
}

var _ Updater = (*GRPCClient)(nil)

// NewGRPCClient creates a lazily connecting client. Extra options are appended after
// the insecure transport and codec defaults.
func NewGRPCClient(target, method string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wireCodec{})),
	}, opts...)
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client %s: %w", target, err)
	}
	return &GRPCClient{conn: conn, method: method}, nil
}

func (c *GRPCClient) Update(ctx context.Context, id int, product Product) (*MutationResult, error) {
	product.ID = id
	if userID, ok := UserIDFromContext(ctx); ok {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-user-id", userID)
	}

	req := produtoMessage(product)
	var resp respostaMessage
	if err := c.conn.Invoke(ctx, c.method, &req, &resp); err != nil {
		return nil, fmt.Errorf("grpc update: %w: %w", apperrors.ErrBackendUnavailable, err)
	}
	return &MutationResult{Message: resp.Mensagem}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// wireMessage is implemented by the hand-encoded messages below.
type wireMessage interface {
	marshalWire() []byte
	unmarshalWire(b []byte) error
}

// wireCodec speaks the protobuf wire format for wireMessage values.
type wireCodec struct{}

var _ encoding.Codec = wireCodec{}

func (wireCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("wire codec: cannot marshal %T", v)
	}
	return m.marshalWire(), nil
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("wire codec: cannot unmarshal into %T", v)
	}
	return m.unmarshalWire(data)
}

func (wireCodec) Name() string {
	return "proto"
}

// produtoMessage is Produto{id=1 int32, name=2 string, price=3 double, stock=4 int32}.
type produtoMessage Product

func (p *produtoMessage) marshalWire() []byte {
	var b []byte
	if p.ID != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(p.ID)))
	}
	if p.Name != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, p.Name)
	}
	if p.Price != 0 {
		b = protowire.AppendTag(b, 3, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(p.Price))
	}
	if p.Stock != 0 {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(p.Stock)))
	}
	return b
}

func (p *produtoMessage) unmarshalWire(b []byte) error {
	*p = produtoMessage{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.ID = int(int32(v))
			return n, protowire.ParseError(n)
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			p.Name = v
			return n, protowire.ParseError(n)
		case num == 3 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			p.Price = math.Float64frombits(v)
			return n, protowire.ParseError(n)
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.Stock = int(int32(v))
			return n, protowire.ParseError(n)
		}
		return skipField(num, typ, b)
	})
}

// respostaMessage is Resposta{mensagem=1 string}.
type respostaMessage struct {
	Mensagem string
}

func (r *respostaMessage) marshalWire() []byte {
	var b []byte
	if r.Mensagem != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, r.Mensagem)
	}
	return b
}

func (r *respostaMessage) unmarshalWire(b []byte) error {
	*r = respostaMessage{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(b)
			r.Mensagem = v
			return n, protowire.ParseError(n)
		}
		return skipField(num, typ, b)
	})
}

// consumeFields walks every field in b, handing the value bytes to fn.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if m < 0 {
			return err
		}
		b = b[m:]
	}
	return nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	return n, protowire.ParseError(n)
}
