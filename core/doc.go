// Package core provides the foundational domain types shared by every layer of
// expertpanel:
//
//   - Message (role-tagged, ordered conversation entries)
//   - the error taxonomy surfaced at the system boundary (InputError,
//     ConfigurationError, ProviderError, UnknownRoleError)
//
// The package intentionally has no dependencies on models, providers or the
// orchestration graph so that all of them can depend on it without cycles.
package core
