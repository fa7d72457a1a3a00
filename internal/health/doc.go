// Package health holds the liveness and readiness probes.
//
// Readiness is a list of named checks: storage reachability, the bundled
// fixtures and the shutdown gate. Once the gate is set during drain every
// readiness request fails so the load balancer stops routing before the
// public listener shuts down.
package health
