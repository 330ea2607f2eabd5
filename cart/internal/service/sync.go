package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hoangtv/storefront/cart/internal/common/otel"
	"github.com/hoangtv/storefront/cart/pkg/request"
	"github.com/hoangtv/storefront/cart/pkg/response"
	"github.com/hoangtv/storefront/internal/cart/aggregate"
	inErrors "github.com/hoangtv/storefront/internal/errors"
	"github.com/hoangtv/storefront/internal/log"
	inOtel "github.com/hoangtv/storefront/internal/otel"
)

// Gateway is the remote cart API surface the sync service drives.
type Gateway interface {
	Get(c context.Context, token string) (response.Cart, error)
	Add(c context.Context, token string, param request.AddItem) (response.Cart, error)
	Update(c context.Context, token string, lineId string, param request.UpdateItem) (response.Cart, error)
	Remove(c context.Context, token string, lineId string) (response.Cart, error)
	Clear(c context.Context, token string) error
}

// ClearNotifier is invoked after a successful cart clear so dependent
// checkout state (coupons, shipping discount, selection) is torn down with it.
type ClearNotifier func(c context.Context, userId string) error

type MutationState string

const (
	StateIdle    MutationState = "idle"
	StatePending MutationState = "pending"
)

// session is one user's view of the remote cart: the cached aggregate, the
// mutation sequence and the last verified credential. Sessions never share
// state; a mutation by one user cannot touch another user's aggregate.
type session struct {
	agg      *aggregate.CartAggregate
	seq      uint64
	inFlight int
	token    string
}

// CartSyncService keeps each user's local cart aggregate in sync with the
// remote cart. Every mutation takes a sequence ticket before its round trip;
// the response is committed into the user's aggregate only if its ticket is
// still the newest issued for that user, so a slow response can never
// overwrite a newer one.
type CartSyncService struct {
	gateway Gateway
	notify  ClearNotifier

	mu       sync.Mutex
	sessions map[string]*session
}

func NewCartSyncService(gateway Gateway, notify ClearNotifier) *CartSyncService {
	return &CartSyncService{
		gateway:  gateway,
		notify:   notify,
		sessions: map[string]*session{},
	}
}

// session returns the per-user state, creating it on first touch. Callers
// must hold s.mu.
func (s *CartSyncService) session(userId string) *session {
	sess, ok := s.sessions[userId]
	if !ok {
		sess = &session{agg: aggregate.New(nil)}
		s.sessions[userId] = sess
	}
	return sess
}

func (s *CartSyncService) Aggregate(userId string) *aggregate.CartAggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session(userId).agg
}

func (s *CartSyncService) State(userId string) MutationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session(userId).inFlight > 0 {
		return StatePending
	}
	return StateIdle
}

func (s *CartSyncService) take(userId string, token string) (*session, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(userId)
	sess.seq++
	sess.inFlight++
	if token != "" {
		sess.token = token
	}
	return sess, sess.seq
}

// commit replaces the user's aggregate with the authoritative server cart,
// unless a newer mutation was issued for that user while this one was in
// flight.
func (s *CartSyncService) commit(
	c context.Context,
	sess *session,
	ticket uint64,
	cart response.Cart,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.inFlight--
	if ticket != sess.seq {
		logger := zerolog.Ctx(c).
			With().
			Str(log.KeyTag, "CartSyncService commit").
			Uint64(log.KeySequence, ticket).
			Logger()
		logger.Warn().Msg("discarding stale cart response")
		return inErrors.ErrStaleResponse
	}
	sess.agg.Replace(cart.CartItems)
	return nil
}

func (s *CartSyncService) fail(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.inFlight--
}

func (s *CartSyncService) FetchCart(
	c context.Context,
	token string,
	userId string,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartSyncService FetchCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartSyncService FetchCart").
		Str(log.KeyUserID, userId).
		Logger()

	sess, ticket := s.take(userId, token)
	logger = logger.With().Uint64(log.KeySequence, ticket).Logger()

	logger.Info().Msg("fetching cart")
	cart, err := s.gateway.Get(c, token)
	if err != nil {
		s.fail(sess)
		err = fmt.Errorf("failed fetching cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("fetched cart")

	if err := s.commit(c, sess, ticket, cart); err != nil {
		inOtel.RecordError(err, span)
		return cart, err
	}
	return cart, nil
}

func (s *CartSyncService) AddToCart(
	c context.Context,
	token string,
	userId string,
	param request.AddItem,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartSyncService AddToCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartSyncService AddToCart").
		Str(log.KeyUserID, userId).
		Str("productId", param.ProductId).
		Int32("quantity", param.Quantity).
		Logger()

	if param.Quantity < 1 {
		err := fmt.Errorf("failed adding to cart with error=%w", inErrors.ErrInvalidQuantity)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	sess, ticket := s.take(userId, token)
	logger = logger.With().Uint64(log.KeySequence, ticket).Logger()

	logger.Info().Msg("adding item to remote cart")
	cart, err := s.gateway.Add(c, token, param)
	if err != nil {
		s.fail(sess)
		err = fmt.Errorf("failed adding to cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("added item to remote cart")

	if err := s.commit(c, sess, ticket, cart); err != nil {
		inOtel.RecordError(err, span)
		return cart, err
	}
	return cart, nil
}

func (s *CartSyncService) UpdateCartItem(
	c context.Context,
	token string,
	userId string,
	lineId string,
	param request.UpdateItem,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartSyncService UpdateCartItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartSyncService UpdateCartItem").
		Str(log.KeyUserID, userId).
		Str(log.KeyCartLineID, lineId).
		Logger()

	if param.Quantity != nil && *param.Quantity < 1 {
		err := fmt.Errorf(
			"failed updating cartLineId=%s with error=%w",
			lineId,
			inErrors.ErrInvalidQuantity,
		)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	sess, ticket := s.take(userId, token)
	logger = logger.With().Uint64(log.KeySequence, ticket).Logger()

	logger.Info().Msg("updating item in remote cart")
	cart, err := s.gateway.Update(c, token, lineId, param)
	if err != nil {
		s.fail(sess)
		err = fmt.Errorf("failed updating cartLineId=%s with error=%w", lineId, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("updated item in remote cart")

	if err := s.commit(c, sess, ticket, cart); err != nil {
		inOtel.RecordError(err, span)
		return cart, err
	}
	return cart, nil
}

func (s *CartSyncService) RemoveFromCart(
	c context.Context,
	token string,
	userId string,
	lineId string,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartSyncService RemoveFromCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartSyncService RemoveFromCart").
		Str(log.KeyUserID, userId).
		Str(log.KeyCartLineID, lineId).
		Logger()

	sess, ticket := s.take(userId, token)
	logger = logger.With().Uint64(log.KeySequence, ticket).Logger()

	logger.Info().Msg("removing item from remote cart")
	cart, err := s.gateway.Remove(c, token, lineId)
	if err != nil {
		s.fail(sess)
		err = fmt.Errorf("failed removing cartLineId=%s with error=%w", lineId, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("removed item from remote cart")

	if err := s.commit(c, sess, ticket, cart); err != nil {
		inOtel.RecordError(err, span)
		return cart, err
	}
	return cart, nil
}

// ClearCart empties the remote cart and, once the empty cart is committed,
// notifies the checkout side so coupons, shipping discount and selection are
// cleared with it. Teardown failure is logged, not surfaced: the cart itself
// cleared successfully and stale checkout state is still filtered at read
// time.
func (s *CartSyncService) ClearCart(c context.Context, token string, userId string) error {
	c, span := otel.Tracer.Start(c, "CartSyncService ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartSyncService ClearCart").
		Str(log.KeyUserID, userId).
		Logger()

	sess, ticket := s.take(userId, token)
	logger = logger.With().Uint64(log.KeySequence, ticket).Logger()

	logger.Info().Msg("clearing remote cart")
	err := s.gateway.Clear(c, token)
	if err != nil {
		s.fail(sess)
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("cleared remote cart")

	if err := s.commit(c, sess, ticket, response.Cart{}); err != nil {
		inOtel.RecordError(err, span)
		return err
	}

	if s.notify != nil {
		logger = logger.With().Str(log.KeyProcess, "publishing cart clear").Logger()
		logger.Info().Msg("publishing cart clear")
		if err := s.notify(c, userId); err != nil {
			err = fmt.Errorf("failed publishing cart clear with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		} else {
			logger.Info().Msg("published cart clear")
		}
	}

	return nil
}

// Refresh re-fetches every active session's cart with its own cached
// credential. It is the reconciliation path for the cart_update push frame,
// the only mechanism for picking up mutations made outside this process.
func (s *CartSyncService) Refresh(c context.Context) error {
	c, span := otel.Tracer.Start(c, "CartSyncService Refresh")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartSyncService Refresh").
		Logger()

	s.mu.Lock()
	tokens := make(map[string]string, len(s.sessions))
	for userId, sess := range s.sessions {
		if sess.token != "" {
			tokens[userId] = sess.token
		}
	}
	s.mu.Unlock()
	if len(tokens) == 0 {
		logger.Debug().Msg("no sessions to refresh yet")
		return nil
	}

	logger.Info().Msgf("refreshing %d sessions", len(tokens))
	c = logger.WithContext(c)
	var joined error
	for userId, token := range tokens {
		if _, err := s.FetchCart(c, token, userId); err != nil &&
			!errors.Is(err, inErrors.ErrStaleResponse) {
			joined = errors.Join(joined, err)
		}
	}
	return joined
}
