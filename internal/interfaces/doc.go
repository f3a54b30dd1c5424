// Package interfaces holds compile-time checks that the concrete stores and
// collaborators built in entrypoint satisfy the interfaces their consumers
// declare.
//
// Consumers own their interfaces: controllers declare what they read in
// internal/http/stores.go, and each domain service declares its Store next to
// the service. A missing method shows up here as a build failure.
package interfaces
