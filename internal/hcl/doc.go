// Package hcl provides the HCL implementation of config.Loader. It parses
// descriptor files, evaluates them against variables and the environment,
// and translates the decoded schema into the format-agnostic config.Model.
package hcl
