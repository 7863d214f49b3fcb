// Package cli implements the interactive RunMate terminal client: a REPL
// over the session store and domain services, with route-guarded navigation
// mirroring the application's screen map.
package cli
