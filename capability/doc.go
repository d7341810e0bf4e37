// Package capability defines the closed set of operations sandboxed code
// can reach.
//
// The capability package implements the registry that maps capability names
// to factories. The registry is populated once at process start and never
// changes afterwards: a code fragment can only reach what the registry
// exposes, regardless of what names it asks for. Resolving an unknown name
// fails with NotFoundError.
//
// Factories construct a fresh capability instance per invocation, bound to
// the invocation's project and region. Construction never performs network
// I/O; only the instance's methods may.
//
// Usage:
//
//	reg := capability.NewRegistry(logger, capability.NewCredential(""))
//	factory, err := reg.Resolve("compute")
//	instance, err := factory.New(ctx, capability.Env{ProjectID: "p1", Region: "us-central1"})
//	zones, err := instance.Call(ctx, "listZones", nil)
package capability
