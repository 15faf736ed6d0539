package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jrsteele09/go-product-gateway/backends"
	"github.com/jrsteele09/go-product-gateway/internal/metrics"
	"github.com/jrsteele09/go-product-gateway/oauth2"
	"github.com/jrsteele09/go-product-gateway/sessions"
	"github.com/jrsteele09/go-product-gateway/token"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 10 * time.Second

// Dispatcher gates actions on the caller's session and forwards them to a backend.
type Dispatcher struct {
	registry *sessions.Registry
	tokens   *token.Manager
	backends backends.Set
	timeout  time.Duration
	logger   zerolog.Logger
}

type Option func(*Dispatcher)

// WithTimeout bounds every backend call.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

func New(registry *sessions.Registry, tokens *token.Manager, set backends.Set, options ...Option) (*Dispatcher, error) {
	if registry == nil {
		return nil, pkgerrors.New("[dispatch.New] registry is required")
	}
	if tokens == nil {
		return nil, pkgerrors.New("[dispatch.New] tokens is required")
	}
	if set.Creator == nil || set.Lister == nil || set.Updater == nil || set.Deleter == nil {
		return nil, pkgerrors.New("[dispatch.New] all four backends are required")
	}

	d := &Dispatcher{
		registry: registry,
		tokens:   tokens,
		backends: set,
		timeout:  defaultTimeout,
		logger:   log.With().Str("component", "dispatch").Logger(),
	}
	for _, opt := range options {
		opt(d)
	}
	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}
	return d, nil
}

// Dispatch runs one action for conn. It never returns an error: every outcome,
// including a backend failure or a panic in an adapter, is a Response.
func (d *Dispatcher) Dispatch(ctx context.Context, conn sessions.Conn, req Request) (resp Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Str("action", req.Action).Msg("recovered from panic")
			resp = failure(req.Action, oauth2.ErrServerError, "internal error")
		}
		metrics.ActionsTotal.WithLabelValues(metricLabel(req.Action), outcome(resp)).Inc()
		metrics.ActionDuration.WithLabelValues(metricLabel(req.Action)).Observe(time.Since(start).Seconds())
	}()

	action, ok := ParseAction(req.Action)
	if !ok {
		return failure(req.Action, oauth2.ErrInvalidRequest, fmt.Sprintf("unknown action %q", req.Action))
	}

	session, ok := d.registry.GetSession(conn)
	if !ok || !session.Authenticated {
		return failure(req.Action, oauth2.ErrAccessDenied, "connection is not authenticated")
	}

	claims, err := d.tokens.Verify(session.AccessToken, token.TypeAccess)
	if err != nil {
		description := "access token rejected"
		var rejected *token.RejectedError
		if errors.As(err, &rejected) {
			description = fmt.Sprintf("access token rejected: %s", rejected.Reason)
		}
		return failure(req.Action, oauth2.ErrInvalidToken, description)
	}

	required := action.RequiredScope()
	if !claims.HasScope(required) {
		denied := failure(req.Action, oauth2.ErrInsufficientScope, fmt.Sprintf("%s requires scope %s", action, required))
		denied.RequiredScope = required
		return denied
	}

	ctx, cancel := context.WithTimeout(backends.WithUserID(ctx, claims.Subject), d.timeout)
	defer cancel()

	logger := d.logger.With().Str("connection_id", conn.ID()).Str("user_id", claims.Subject).Str("action", action.String()).Logger()
	resp = d.forward(ctx, action, req)
	if !resp.Success {
		logger.Warn().Str("error", resp.Error).Msg("action failed")
	} else {
		logger.Debug().Dur("elapsed", time.Since(start)).Msg("action completed")
	}
	return resp
}

func (d *Dispatcher) forward(ctx context.Context, action Action, req Request) Response {
	name := action.String()
	switch action {
	case ActionCreateREST:
		product, err := decodeProduct(req.Data)
		if err != nil {
			return failure(name, oauth2.ErrInvalidRequest, err.Error())
		}
		res, err := d.backends.Creator.Create(ctx, product)
		if err != nil {
			return backendFailure(name, timeoutAware(ctx, err))
		}
		return success(name, res)

	case ActionListSOAP:
		products, err := d.backends.Lister.ListAll(ctx)
		if err != nil {
			return backendFailure(name, timeoutAware(ctx, err))
		}
		return success(name, products)

	case ActionUpdateGRPC:
		product, err := decodeProduct(req.Data)
		if err != nil {
			return failure(name, oauth2.ErrInvalidRequest, err.Error())
		}
		res, err := d.backends.Updater.Update(ctx, product.ID, product)
		if err != nil {
			return backendFailure(name, timeoutAware(ctx, err))
		}
		return success(name, res)

	case ActionDeleteGraphQL:
		id, err := decodeID(req.Data)
		if err != nil {
			return failure(name, oauth2.ErrInvalidRequest, err.Error())
		}
		res, err := d.backends.Deleter.Delete(ctx, id)
		if err != nil {
			return backendFailure(name, timeoutAware(ctx, err))
		}
		return success(name, res)
	}
	return failure(name, oauth2.ErrInvalidRequest, "unknown action")
}

// timeoutAware replaces a deadline error with a stable message.
func timeoutAware(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("backend timed out: %w", context.DeadlineExceeded)
	}
	return err
}

func metricLabel(action string) string {
	if _, ok := ParseAction(action); ok {
		return action
	}
	return "unknown"
}

func outcome(resp Response) string {
	switch {
	case resp.Success:
		return metrics.OutcomeSuccess
	case resp.Error == string(oauth2.ErrInvalidRequest),
		resp.Error == string(oauth2.ErrAccessDenied),
		resp.Error == string(oauth2.ErrInvalidToken),
		resp.Error == string(oauth2.ErrInsufficientScope):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
