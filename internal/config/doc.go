// Package config loads the pipeline configuration file. The engine's
// configuration surface is deliberately small: worker count, the global
// retry budget, per-critic budget/blocking/enabled settings, the
// snapshot sink, and the seed fields a run starts from. Stage semantics
// live in code, never in configuration.
package config
