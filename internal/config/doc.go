// Package config defines the format-agnostic model of a bundle descriptor
// and the Loader interface that turns descriptor files into it.
//
// The `config.Model` is the single input of the `bundle` package. Concrete
// loaders, such as the HCL one, live in separate packages.
package config
