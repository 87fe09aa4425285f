// Command sermonmux muxes recorded sermon videos with original and translated
// audio, applies segment-driven volume automation to the translations, and
// uploads the results.
//
// Subcommands:
//
//	process          transcode (and optionally upload) one recording
//	upload-existing  upload files produced by an earlier run
//	serve            run the HTTP control API
//	auth             create the upload token with the copy/paste OAuth flow
//	artifacts list   show the artifact registry
//	segments check   parse and explain a segment string
//	doctor           check dependencies, directories, and credentials
//	config init      write a sample configuration
//	config validate  load and validate the configuration
package main
