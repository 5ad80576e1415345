// Package fixture manages the lifecycle of the ephemeral identities a run
// exercises the platform with.
//
// A fixture is one (user, thing) pair plus the three tokens needed to drive
// the platform's channels. The Manager owns the create/delete protocol
// against the control plane and enforces two guarantees the orchestrator
// builds on:
//
//   - Provision is all-or-nothing: a failure at any step rolls back every
//     resource created so far before the error is returned.
//   - Teardown is idempotent: repeat calls are no-ops, and a not-found
//     answer from the platform counts as already-deleted. Cleanup runs on
//     both the normal path and the interrupt path, so it must tolerate
//     running twice.
//
// Deletion order is the reverse of creation (thing before user) because a
// thing belongs to a user. Teardown authorizes with freshly obtained
// tokens; the fixture's own tokens may be stale by cleanup time.
//
// The package also persists a small recovery record ({user_id, thing_id})
// while a fixture is live, letting `e2ectl clean` recover from a run that
// died before tearing down.
package fixture
