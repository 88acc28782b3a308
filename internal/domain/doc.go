// Package domain contains the core entities of the generation engine:
// goals, the processing state lifecycle record, and the transient work
// items jobs are split into. It is independent of any infrastructure or
// delivery mechanism.
package domain
