package fixture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"e2ectl/internal/config"
	"e2ectl/internal/platform"
	"e2ectl/pkg/logging"
)

const subsystem = "fixture"

// rollbackTimeout bounds each rollback delete. Rollbacks run on their own
// context because the run context may already be cancelled when a
// provisioning step fails partway through.
const rollbackTimeout = 30 * time.Second

// ErrNoFixture is returned when an operation is attempted on a nil or
// never-provisioned fixture. This is a caller error, not a platform failure.
var ErrNoFixture = errors.New("no fixture provisioned")

// ControlClient is the subset of the control plane client the manager needs.
// It is satisfied by *controlplane.Client and by test fakes.
type ControlClient interface {
	LoginAdmin(ctx context.Context, email, password string) (string, error)
	LoginUser(ctx context.Context, email, password string) (string, error)
	CreateUser(ctx context.Context, adminToken, name, email, password string) (string, error)
	DeleteUser(ctx context.Context, adminToken, userID string) (string, error)
	CreateThing(ctx context.Context, userToken, name, key string) (string, error)
	DeleteThing(ctx context.Context, userToken, thingID string) (string, error)
	GetThingToken(ctx context.Context, userToken, thingID string) (string, error)
}

// TestFixture is the ephemeral (user, thing) pair and associated tokens
// created for one run. Identity fields are immutable after creation; only
// the teardown latch changes afterwards.
type TestFixture struct {
	UserID     string
	ThingID    string
	AdminToken string
	UserToken  string
	ThingToken string

	// spec is kept so teardown can obtain fresh tokens: the ones above may
	// have expired by the time cleanup runs.
	spec config.IdentitySpec

	mu       sync.Mutex
	torndown bool
}

// FromRecord reconstructs a fixture from a durable recovery record so that
// an out-of-band cleanup pass can tear down what a crashed run left behind.
// Tokens are absent; teardown never relies on them anyway. The record's
// per-run email takes precedence over the configured base email.
func FromRecord(rec Record, spec config.IdentitySpec) *TestFixture {
	if rec.UserEmail != "" {
		spec.UserEmail = rec.UserEmail
	}
	return &TestFixture{
		UserID:  rec.UserID,
		ThingID: rec.ThingID,
		spec:    spec,
	}
}

// Manager owns the create/delete protocol for test fixtures. It guarantees
// that Provision never leaves a half-created fixture behind and that
// Teardown is idempotent from the caller's perspective.
type Manager struct {
	client        ControlClient
	adminEmail    string
	adminPassword string
	store         *RecordStore // nil disables the durable recovery record
}

// NewManager creates a fixture manager. store may be nil to disable the
// durable recovery record.
func NewManager(client ControlClient, adminEmail, adminPassword string, store *RecordStore) *Manager {
	return &Manager{
		client:        client,
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
		store:         store,
	}
}

// Provision creates the full fixture: user, user token, thing, thing token,
// in that order (each step depends on the previous token). If any step
// fails, every resource created so far is rolled back before the error is
// returned, so the caller never has to clean up a partial fixture.
//
// The configured email is uniquified per run so repeated or concurrent runs
// never collide on the platform's email uniqueness constraint.
func (m *Manager) Provision(ctx context.Context, spec config.IdentitySpec) (*TestFixture, error) {
	spec.UserEmail = uniqueEmail(spec.UserEmail)

	adminToken, err := m.client.LoginAdmin(ctx, m.adminEmail, m.adminPassword)
	if err != nil {
		return nil, fmt.Errorf("admin login: %w", err)
	}

	userID, err := m.client.CreateUser(ctx, adminToken, spec.UserName, spec.UserEmail, spec.UserPassword)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	logging.Info(subsystem, "created user %s", userID)

	userToken, err := m.client.LoginUser(ctx, spec.UserEmail, spec.UserPassword)
	if err != nil {
		m.rollbackUser(adminToken, userID)
		return nil, fmt.Errorf("user login: %w", err)
	}

	thingID, err := m.client.CreateThing(ctx, userToken, spec.ThingName, spec.ThingKey)
	if err != nil {
		m.rollbackUser(adminToken, userID)
		return nil, fmt.Errorf("create thing: %w", err)
	}
	logging.Info(subsystem, "created thing %s", thingID)

	thingToken, err := m.client.GetThingToken(ctx, userToken, thingID)
	if err != nil {
		m.rollbackThing(userToken, thingID)
		m.rollbackUser(adminToken, userID)
		return nil, fmt.Errorf("thing token: %w", err)
	}

	fix := &TestFixture{
		UserID:     userID,
		ThingID:    thingID,
		AdminToken: adminToken,
		UserToken:  userToken,
		ThingToken: thingToken,
		spec:       spec,
	}

	if m.store != nil {
		if err := m.store.Save(Record{UserID: userID, ThingID: thingID, UserEmail: spec.UserEmail}); err != nil {
			// The fixture is fully usable without the record; losing it only
			// weakens crash recovery. Keep going.
			logging.Warn(subsystem, "could not persist recovery record: %v", err)
		}
	}

	return fix, nil
}

// uniqueEmail tags the local part of the base email with a fresh id, e.g.
// "jean@bon.com" becomes "jean-6f1a2b3c@bon.com".
func uniqueEmail(base string) string {
	suffix := uuid.NewString()[:8]
	local, domain, found := strings.Cut(base, "@")
	if !found {
		return base + "-" + suffix
	}
	return local + "-" + suffix + "@" + domain
}

// rollbackUser deletes a user created during a failed provisioning attempt.
// It runs on a fresh bounded context so the delete still goes out when the
// step failed because the run context was cancelled. Rollback failures are
// logged, not returned: the original provisioning error is the one the
// caller needs to see.
func (m *Manager) rollbackUser(adminToken, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
	defer cancel()
	if _, err := m.client.DeleteUser(ctx, adminToken, userID); err != nil {
		logging.Error(subsystem, err, "rollback: could not delete user %s", userID)
		return
	}
	logging.Info(subsystem, "rollback: deleted user %s", userID)
}

// rollbackThing deletes a thing created during a failed provisioning attempt.
func (m *Manager) rollbackThing(userToken, thingID string) {
	ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
	defer cancel()
	if _, err := m.client.DeleteThing(ctx, userToken, thingID); err != nil {
		logging.Error(subsystem, err, "rollback: could not delete thing %s", thingID)
		return
	}
	logging.Info(subsystem, "rollback: deleted thing %s", thingID)
}

// Teardown deletes the fixture's thing, then its user. It authorizes the
// deletes with freshly obtained tokens rather than the possibly-stale ones
// inside the fixture. Repeat calls on the same fixture are no-ops, and a
// not-found answer from either delete is treated as already-gone: cleanup
// may legitimately run twice (normal path plus interrupt path).
func (m *Manager) Teardown(ctx context.Context, fix *TestFixture) error {
	if fix == nil {
		return ErrNoFixture
	}

	fix.mu.Lock()
	defer fix.mu.Unlock()
	if fix.torndown {
		logging.Debug(subsystem, "teardown already completed for user %s, thing %s", fix.UserID, fix.ThingID)
		return nil
	}

	adminToken, err := m.client.LoginAdmin(ctx, m.adminEmail, m.adminPassword)
	if err != nil {
		return fmt.Errorf("teardown admin login: %w", err)
	}

	if fix.ThingID != "" {
		userToken, err := m.client.LoginUser(ctx, fix.spec.UserEmail, fix.spec.UserPassword)
		if err != nil {
			return fmt.Errorf("teardown user login: %w", err)
		}
		if _, err := m.client.DeleteThing(ctx, userToken, fix.ThingID); err != nil {
			if !platform.IsNotFound(err) {
				return fmt.Errorf("delete thing %s: %w", fix.ThingID, err)
			}
			logging.Debug(subsystem, "thing %s already gone", fix.ThingID)
		} else {
			logging.Info(subsystem, "deleted thing %s", fix.ThingID)
		}
	}

	if fix.UserID != "" {
		if _, err := m.client.DeleteUser(ctx, adminToken, fix.UserID); err != nil {
			if !platform.IsNotFound(err) {
				return fmt.Errorf("delete user %s: %w", fix.UserID, err)
			}
			logging.Debug(subsystem, "user %s already gone", fix.UserID)
		} else {
			logging.Info(subsystem, "deleted user %s", fix.UserID)
		}
	}

	fix.torndown = true

	if m.store != nil {
		if err := m.store.Remove(); err != nil {
			logging.Warn(subsystem, "could not remove recovery record: %v", err)
		}
	}

	return nil
}
