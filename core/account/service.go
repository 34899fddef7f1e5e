package account

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"sort"

	"github.com/pkg/errors"

	"github.com/edecs/elearn/core"
	"github.com/edecs/elearn/core/identity"
	"github.com/edecs/elearn/storage/tree"
)

// Service is the admin directory manager: it orchestrates account creation
// and removal across the identity provider, the role record and the two
// presence indexes, and owns the role/grant mutations driven by the admin
// surface.
type Service struct {
	roles    *Store
	db       tree.Store
	provider core.IdentityProvider
	mail     core.EmailService
	logger   core.Logger
	conf     *core.Config
}

func NewService(
	db tree.Store,
	roles *Store,
	provider core.IdentityProvider,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		roles:    roles,
		db:       db,
		provider: provider,
		mail:     mailSvc,
		logger:   logger,
		conf:     conf,
	}
}

func (svc *Service) Roles() *Store { return svc.roles }

func adminPath(key string) string { return tree.Join("admins", key) }
func userPath(key string) string  { return tree.Join("users", key) }

// CreateAccount provisions a new account: principal at the identity
// provider, then the role record, the user membership and (for admins) the
// admin membership, written sequentially with no rollback. A write failure
// after the first success returns a *PartialProvisionError.
func (svc *Service) CreateAccount(ctx context.Context, na NewAccount) error {
	if !core.IsValidEmail(na.Email) {
		return core.NewValidationError(core.ErrInvalidEmail, core.FieldError{Field: "email", Error: core.ErrInvalidEmail.Error()})
	}

	principal, err := svc.provider.CreatePrincipal(ctx, na.Email, na.Password)
	if err != nil {
		return errors.Wrap(err, "creating principal")
	}

	key := identity.Key(na.Email)
	role := RoleUser
	if na.Admin {
		role = RoleAdmin
	}

	committed := make([]string, 0, 3)

	if err = svc.roles.Create(ctx, key, Record{Email: na.Email, Role: role, Courses: []string{}}); err != nil {
		// nothing of ours committed yet; the provider principal exists though
		return errors.Wrap(err, "writing role record")
	}
	committed = append(committed, rolePath(key))

	if err = svc.db.Write(ctx, userPath(key), Membership{Email: na.Email, Role: role}); err != nil {
		return svc.partial("create", key, committed, err)
	}
	committed = append(committed, userPath(key))

	if na.Admin {
		if err = svc.db.Write(ctx, adminPath(key), Membership{Email: na.Email}); err != nil {
			return svc.partial("create", key, committed, err)
		}
		committed = append(committed, adminPath(key))
	}

	svc.logger.Info(fmt.Sprintf("account %q provisioned (uid=%s, role=%s)", key, principal.UID, role))
	svc.sendWelcomeEmail(na.Email)
	return nil
}

// ChangeRole overwrites the role field only. The admin/user membership
// indexes are written once at creation time and never revoked by a role
// change; the resulting drift is deliberate.
func (svc *Service) ChangeRole(ctx context.Context, email, role string) error {
	if !ValidRole(role) {
		return core.NewValidationError(ErrUnknownRole, core.FieldError{Field: "role", Error: ErrUnknownRole.Error()})
	}
	return svc.roles.SetRole(ctx, identity.Key(email), role)
}

// DisableAccount sets the role to disabled. The identity provider can still
// authenticate the principal; this only removes course-access eligibility
// at the application layer.
func (svc *Service) DisableAccount(ctx context.Context, email string) error {
	return svc.ChangeRole(ctx, email, RoleDisabled)
}

// RemoveAccount tombstones the identity across the admin index, the user
// index and the role record: three independent null-writes with the same
// partial-failure exposure as creation.
func (svc *Service) RemoveAccount(ctx context.Context, email string) error {
	key := identity.Key(email)
	committed := make([]string, 0, 3)

	if err := svc.db.Write(ctx, adminPath(key), nil); err != nil {
		return errors.Wrap(err, "removing admin membership")
	}
	committed = append(committed, adminPath(key))

	if err := svc.db.Write(ctx, userPath(key), nil); err != nil {
		return svc.partial("remove", key, committed, err)
	}
	committed = append(committed, userPath(key))

	if err := svc.roles.Remove(ctx, key); err != nil {
		return svc.partial("remove", key, committed, err)
	}
	return nil
}

// RequestPasswordReset delegates to the identity provider. The email is
// trimmed (and only trimmed) before validation, matching the admin surface.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = core.CleanString(email)
	if !core.IsValidEmail(email) {
		return core.ErrInvalidEmail
	}
	return svc.provider.SendPasswordReset(ctx, email)
}

// SetCourseGrant recomputes the full grant set from the mirrored record and
// overwrites it. A cold mirror (a process that never subscribed, or a key it
// has not seen yet) reads the record from the store instead, so existing
// grants survive. This read-modify-write is not atomic against concurrent
// grant changes for the same identity: last writer wins.
func (svc *Service) SetCourseGrant(ctx context.Context, email, courseID string, granted bool) error {
	key := identity.Key(email)

	var prior []string
	if rec, ok := svc.roles.Mirror(key); ok {
		prior = rec.Courses
	} else {
		rec, err := svc.roles.Get(ctx, key)
		if err != nil && errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "reading role record")
		}
		prior = rec.Courses
	}

	grants := make([]string, 0, len(prior)+1)
	for _, id := range prior {
		if id != courseID {
			grants = append(grants, id)
		}
	}
	if granted {
		grants = append(grants, courseID)
	}
	return svc.roles.SetCourseGrants(ctx, key, grants)
}

// WatchAdmins pushes the sorted identity keys of the admin presence index
// on every remote change.
func (svc *Service) WatchAdmins(fn func(keys []string)) (tree.Unsubscribe, error) {
	return svc.watchIndex("admins", fn)
}

// WatchUsers pushes the sorted identity keys of the user presence index on
// every remote change.
func (svc *Service) WatchUsers(fn func(keys []string)) (tree.Unsubscribe, error) {
	return svc.watchIndex("users", fn)
}

func (svc *Service) watchIndex(path string, fn func(keys []string)) (tree.Unsubscribe, error) {
	return svc.db.Subscribe(path, func(raw json.RawMessage) {
		entries := make(map[string]Membership)
		unmarshalPush(raw, &entries)

		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fn(keys)
	})
}

func (svc *Service) partial(op, key string, committed []string, err error) error {
	pErr := &PartialProvisionError{Op: op, Key: key, Committed: committed, Err: err}
	svc.logger.Error(fmt.Sprintf("account %s left partially applied", op), pErr)
	return pErr
}

func (svc *Service) sendWelcomeEmail(email string) {
	svc.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: email}},
		Subject: "Your account is ready",
		Body: fmt.Sprintf(
			"An account has been created for you on %s.\r\n"+
				"Sign in with this email address to see your courses.", svc.conf.AppName),
	})
}
