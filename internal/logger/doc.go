// Package logger wraps zap for the release pipeline:
//   - a global sugared logger writing console-formatted lines to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV) so every stage
//     logs with the run and stage fields it was handed,
//   - level parsing and a level-overriding zap option.
package logger
