// Package manager drives backend plugins through their lifecycle and
// coordinates inference against them. It is structured into small files by
// concern:
//
//   - manager.go: core Manager type, readiness and repository views.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: internal state types (State, Instance, Snapshot).
//   - errors.go: error types and helpers (IsTooBusy, IsModelNotFound, ...).
//   - admission.go: per-instance queueing and execution admission.
//   - ensure.go: Load, which resolves a model and calls Initialize.
//   - infer.go: Infer, which runs exactly one request through Execute.
//   - unload.go: Unload and Close, which drain and call Finalize.
//   - status_report.go: Status/Snapshot reporting helpers.
//   - metrics.go: Prometheus collectors for loads and inferences.
//   - events.go, eventpub_*.go: lifecycle event publishing.
//
// A plugin instance never sees concurrent Execute calls and never sees
// Execute after Finalize. Requests are not batched: each Execute carries a
// single request.
package manager
