// Package service coordinates the per-request decision pipeline: identity
// check, ownership authorization, payload validation, concurrency
// admission, and finally the persistence call. Each operation runs the
// checks in that order and stops at the first disqualifying condition;
// only the validator aggregates before returning.
package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/authz"
	"github.com/okian/tally/internal/domain/etag"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/validate"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// Service implements the API operations over a persistence store.
type Service struct {
	store repository.Store
	log   logger.Logger
	now   func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source, used by tests that need a fixed
// "now" for defaulted timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("service")
	}
	return s
}

// ListQuery carries the optional sort of a list operation. Values outside
// the allow-list fall back to the defaults instead of erroring.
type ListQuery struct {
	Sort  string
	Order string
}

// List returns the results visible to caller with the collection
// fingerprint. Admins see everything, other callers only their own rows.
// An empty collection is reported as not found, not as an empty success;
// that is deliberate upstream behavior this service preserves.
func (s *Service) List(ctx context.Context, caller model.Caller, q ListQuery, preconditions []string) ([]model.Result, string, error) {
	if !caller.Authenticated() {
		return nil, "", errUnauthenticated()
	}

	var (
		results []model.Result
		err     error
	)
	if caller.IsAdmin() {
		results, err = s.store.FindAllSorted(ctx, q.Sort, q.Order)
	} else {
		results, err = s.store.FindOwnedBySorted(ctx, caller.Email, q.Sort, q.Order)
	}
	if err != nil {
		return nil, "", fmt.Errorf("list results: %w", err)
	}
	if len(results) == 0 {
		return nil, "", errNotFound("Results not found.")
	}

	tag, err := etag.Of(model.WireAll(results))
	if err != nil {
		return nil, "", fmt.Errorf("fingerprint collection: %w", err)
	}
	if etag.Match(tag, preconditions) {
		metrics.RecordConditionalHit()
		return nil, tag, ErrNotModified
	}
	return results, tag, nil
}

// Get returns a single result by id with its fingerprint.
func (s *Service) Get(ctx context.Context, caller model.Caller, id int64, preconditions []string) (model.Result, string, error) {
	if !caller.Authenticated() {
		return model.Result{}, "", errUnauthenticated()
	}
	result, err := s.findResult(ctx, id)
	if err != nil {
		return model.Result{}, "", err
	}
	if err := fromAuthz(authz.Authorize(caller, result.User.Email)); err != nil {
		return model.Result{}, "", err
	}

	tag, err := etag.Of(result.Wire())
	if err != nil {
		return model.Result{}, "", fmt.Errorf("fingerprint result: %w", err)
	}
	if etag.Match(tag, preconditions) {
		metrics.RecordConditionalHit()
		return model.Result{}, tag, ErrNotModified
	}
	return result, tag, nil
}

// Create stores a new result owned by the payload's user (defaulting to
// the caller) and returns it with its id assigned.
func (s *Service) Create(ctx context.Context, caller model.Caller, payload map[string]any) (model.Result, error) {
	if !caller.Authenticated() {
		return model.Result{}, errUnauthenticated()
	}
	ownerEmail := authz.OwnerForCreate(caller, payload)
	if err := fromAuthz(authz.Authorize(caller, ownerEmail)); err != nil {
		return model.Result{}, err
	}
	if violations := validate.Check(false, payload); len(violations) > 0 {
		metrics.RecordValidationFailure()
		return model.Result{}, errValidation(violations)
	}
	owner, err := s.findOwner(ctx, ownerEmail)
	if err != nil {
		return model.Result{}, err
	}

	result := s.capture(payload, owner, model.Result{})
	if err := s.store.Save(ctx, &result); err != nil {
		return model.Result{}, fmt.Errorf("save result: %w", err)
	}
	metrics.SetResultCount(s.store.CountResults(ctx))
	s.log.Info(ctx, "result created",
		logger.Int("id", int(result.ID)),
		logger.String("owner", owner.Email))
	return result, nil
}

// Replace overwrites an existing result. The caller must present the
// fingerprint of the state it last read; a missing or stale token rejects
// the write before anything is applied. On success the fingerprint of the
// new state is returned for read-modify-write chaining.
func (s *Service) Replace(ctx context.Context, caller model.Caller, id int64, payload map[string]any, precondition string) (model.Result, string, error) {
	if !caller.Authenticated() {
		return model.Result{}, "", errUnauthenticated()
	}
	current, err := s.findResult(ctx, id)
	if err != nil {
		return model.Result{}, "", err
	}
	// Authorize against the record's current owner before looking at the
	// payload at all.
	if err := fromAuthz(authz.Authorize(caller, current.User.Email)); err != nil {
		return model.Result{}, "", err
	}
	if violations := validate.Check(true, payload); len(violations) > 0 {
		metrics.RecordValidationFailure()
		return model.Result{}, "", errValidation(violations)
	}
	// A non-admin may not hand the record to someone else either.
	ownerEmail, _ := payload[model.AttrUser].(string)
	if err := fromAuthz(authz.Authorize(caller, ownerEmail)); err != nil {
		return model.Result{}, "", err
	}
	owner, err := s.findOwner(ctx, ownerEmail)
	if err != nil {
		return model.Result{}, "", err
	}

	storedTag, err := etag.Of(current.Wire())
	if err != nil {
		return model.Result{}, "", fmt.Errorf("fingerprint result: %w", err)
	}
	if !etag.Admit(storedTag, precondition) {
		metrics.RecordPreconditionFailure()
		return model.Result{}, "", errPreconditionFailed()
	}

	next := s.capture(payload, owner, current)
	if err := s.store.Save(ctx, &next); err != nil {
		return model.Result{}, "", fmt.Errorf("save result: %w", err)
	}
	newTag, err := etag.Of(next.Wire())
	if err != nil {
		return model.Result{}, "", fmt.Errorf("fingerprint result: %w", err)
	}
	s.log.Info(ctx, "result replaced",
		logger.Int("id", int(next.ID)),
		logger.String("owner", owner.Email))
	return next, newTag, nil
}

// Delete removes a result.
func (s *Service) Delete(ctx context.Context, caller model.Caller, id int64) error {
	if !caller.Authenticated() {
		return errUnauthenticated()
	}
	result, err := s.findResult(ctx, id)
	if err != nil {
		return err
	}
	if err := fromAuthz(authz.Authorize(caller, result.User.Email)); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove result: %w", err)
	}
	metrics.SetResultCount(s.store.CountResults(ctx))
	s.log.Info(ctx, "result deleted", logger.Int("id", int(id)))
	return nil
}

// Capabilities reports the methods allowed for a path shape. Pure; no
// authorization or persistence involved.
func (s *Service) Capabilities(hasID bool) []string {
	if hasID {
		return []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodOptions}
	}
	return []string{http.MethodGet, http.MethodPost, http.MethodOptions}
}

// UserCapabilities reports the methods allowed on the read-only user
// resource.
func (s *Service) UserCapabilities(bool) []string {
	return []string{http.MethodGet, http.MethodOptions}
}

// ListUsers returns every user sorted ascending by an allow-listed field.
func (s *Service) ListUsers(ctx context.Context, caller model.Caller, sortField string, preconditions []string) ([]model.User, string, error) {
	if !caller.Authenticated() {
		return nil, "", errUnauthenticated()
	}
	users, err := s.store.FindUsersSorted(ctx, sortField)
	if err != nil {
		return nil, "", fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		return nil, "", errNotFound("Users not found.")
	}
	tag, err := etag.Of(model.WireUsers(users))
	if err != nil {
		return nil, "", fmt.Errorf("fingerprint collection: %w", err)
	}
	if etag.Match(tag, preconditions) {
		metrics.RecordConditionalHit()
		return nil, tag, ErrNotModified
	}
	return users, tag, nil
}

// GetUser returns a single user by id.
func (s *Service) GetUser(ctx context.Context, caller model.Caller, id int64, preconditions []string) (model.User, string, error) {
	if !caller.Authenticated() {
		return model.User{}, "", errUnauthenticated()
	}
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		if errorsIsNotFound(err) {
			return model.User{}, "", errNotFound("User with id #%d not found", id)
		}
		return model.User{}, "", fmt.Errorf("find user: %w", err)
	}
	tag, err := etag.Of(user.Wire())
	if err != nil {
		return model.User{}, "", fmt.Errorf("fingerprint user: %w", err)
	}
	if etag.Match(tag, preconditions) {
		metrics.RecordConditionalHit()
		return model.User{}, tag, ErrNotModified
	}
	return user, tag, nil
}

// UserResults returns the results owned by the user with the given id,
// gated by the same ownership rule as List.
func (s *Service) UserResults(ctx context.Context, caller model.Caller, userID int64, q ListQuery, preconditions []string) ([]model.Result, string, error) {
	if !caller.Authenticated() {
		return nil, "", errUnauthenticated()
	}
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		if errorsIsNotFound(err) {
			return nil, "", errNotFound("User with id #%d not found", userID)
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}
	if err := fromAuthz(authz.Authorize(caller, user.Email)); err != nil {
		return nil, "", err
	}
	results, err := s.store.FindOwnedBySorted(ctx, user.Email, q.Sort, q.Order)
	if err != nil {
		return nil, "", fmt.Errorf("list user results: %w", err)
	}
	if len(results) == 0 {
		return nil, "", errNotFound("Results not found.")
	}
	tag, err := etag.Of(model.WireAll(results))
	if err != nil {
		return nil, "", fmt.Errorf("fingerprint collection: %w", err)
	}
	if etag.Match(tag, preconditions) {
		metrics.RecordConditionalHit()
		return nil, tag, ErrNotModified
	}
	return results, tag, nil
}

// capture builds the next state of a result from a validated payload: an
// explicit merge producing a new value, never in-place mutation of the
// stored one. Time defaults to now when absent.
func (s *Service) capture(payload map[string]any, owner model.User, base model.Result) model.Result {
	next := base
	next.Score = validate.Score(payload)
	if t, err := validate.Time(payload[model.AttrTime]); err == nil {
		next.Time = t
	} else {
		next.Time = s.now()
	}
	next.User = owner
	return next
}

func (s *Service) findResult(ctx context.Context, id int64) (model.Result, error) {
	result, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errorsIsNotFound(err) {
			return model.Result{}, errNotFound("Result with id #%d not found", id)
		}
		return model.Result{}, fmt.Errorf("find result: %w", err)
	}
	return result, nil
}

func (s *Service) findOwner(ctx context.Context, email string) (model.User, error) {
	owner, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errorsIsNotFound(err) {
			return model.User{}, errNotFound("User %s not found in db", email)
		}
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return owner, nil
}
