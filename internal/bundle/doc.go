// Package bundle orchestrates a build. It turns a config.Model into a Plan
// (entry point, expanded data files, import closure, warnings) and then
// executes the plan into a staged output tree that is promoted only when
// every step succeeded.
package bundle
