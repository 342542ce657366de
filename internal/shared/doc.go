// Package shared holds helpers used across packages that belong to no single
// layer. Its testutil subpackage provides a capturing slog handler and report
// grid fixtures for tests.
package shared
