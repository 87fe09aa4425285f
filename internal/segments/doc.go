// Package segments models the translation-primary time windows that drive
// volume automation.
//
// A Set is built once from user input (usually the textual form
// "60-300,450-600") and is immutable afterwards. Overlapping windows are
// accepted; membership is the logical OR of all windows.
package segments
