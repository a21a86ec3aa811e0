// Package main hosts the pgsmod CLI entrypoint and command graph.
//
// The root command rewrites a PGS subtitle stream so that it fits a
// centre-cropped video frame. The target size comes from explicit flags, an
// ffmpeg crop filter, or crop detection run against the source video.
// Subcommands inspect streams, run crop detection on its own, and scaffold
// configuration.
//
// Keep this package lean: the codec, inventory and transform live under
// internal/, and commands here only resolve inputs, wire logging and render
// results.
package main
