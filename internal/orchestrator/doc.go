// Package orchestrator drives a complete end-to-end exercise of the
// platform: provision a fixture, stream telemetry while watching the live
// feed, then tear everything down again.
//
// # Run States
//
// A run moves through a fixed sequence of states:
//
//	Idle → Provisioning → StreamingPublishing → Draining → CleaningUp → Done
//
// Interrupted is reachable from any non-terminal state. Once a fixture
// exists, an interrupt joins the same Draining → CleaningUp path as a
// normal run, so cleanup happens exactly once no matter how the run ends.
//
// # Failure Policy
//
// Errors are classified by what they say about the platform:
//
//   - Transient transport errors during the publish burst are reported as
//     warnings and the burst continues.
//   - Protocol errors abort the burst early; the platform contract is
//     broken and further samples prove nothing.
//   - Drain timeouts and teardown failures become warnings on the outcome.
//     They never mask the primary result of the run.
//
// # Usage Example
//
//	orch := orchestrator.New(orchestrator.Config{
//	    Fixtures:  fixtureManager,
//	    Publisher: publisher,
//	    Feed:      orchestrator.NewFeedSubscriber(subscriber),
//	    Identity:  cfg.Identity,
//	    Run:       cfg.Run,
//	})
//	outcome, err := orch.Run(ctx)
//
// The returned Outcome carries the fixture ids, the published and received
// counts and every warning raised along the way, even when err is non-nil.
package orchestrator
