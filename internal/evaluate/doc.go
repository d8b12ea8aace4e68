// Package evaluate applies picgaz's acceptance policy to a single file.
//
// A file is accepted when it exists, decodes as an image, and its shorter
// side reaches the plan's min_border_px. Accepted files come back with a
// fully populated manifest entry; rejected files carry a typed Reason. The
// Evaluator never returns an error for a per-file problem and never lets a
// decoder panic escape.
package evaluate
