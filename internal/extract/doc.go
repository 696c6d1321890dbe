// Package extract turns uploaded PDF and PowerPoint files into normalized
// per-page text.
package extract
