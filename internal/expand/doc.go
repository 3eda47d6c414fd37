// Package expand lengthens short news abstracts into spoken-style prose.
//
// Expansion is a black-box transform: title and abstract go in, longer text
// comes out. Callers that must not fail wrap an Expander with WithFallback,
// which returns the original abstract whenever expansion errors or produces
// nothing.
package expand
