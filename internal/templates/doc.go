// Package templates holds the built-in upload title and description
// templates for each meeting type and language, and renders them with the
// run's date and location.
package templates
