// Package app wires a docgraphgo application instance together: an
// isolated logger, the stage registry populated from built-in modules,
// the pipeline configuration, and the run lifecycle around the engine.
package app
