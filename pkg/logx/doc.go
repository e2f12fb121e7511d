// Package logx is a thin structured-logging layer over zerolog.
//
// It exists so components can hold a Logger value whose sinks and level
// can be swapped at runtime (config hot reload) without re-plumbing
// loggers through the whole app. The zero Logger is a safe no-op.
package logx
