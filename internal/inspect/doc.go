// Package inspect answers the questions the acceptance policy asks of a
// file: is it a decodable image, which format is it, and how large is it in
// pixels.
package inspect
