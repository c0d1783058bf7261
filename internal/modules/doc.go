// Package modules contains the application's features.
//
// Each subdirectory implements module.Module and is listed in
// internal/app/modules.go. The server calls Register on every module before
// any Boot, so a module may depend on services another one provides.
package modules
