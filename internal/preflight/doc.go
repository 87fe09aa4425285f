// Package preflight provides readiness checks for the tools, directories
// and credentials sermonmux depends on.
//
// These checks run in two contexts:
//   - The process and upload-existing commands call RunAll before starting a
//     run so a missing engine or unwritable output directory fails fast.
//   - The CLI "sermonmux doctor" command renders every result as a table.
//
// Upload checks only run when uploads are requested.
package preflight
