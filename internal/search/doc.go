// Package search answers user phrases from the local library.
//
// Service.Search looks up songs whose title or artist contains the phrase
// (falling back to any single word), classifies them as exact, partial or
// fuzzy matches and ranks them. When the library has nothing convincing it
// imports the phrase synchronously and searches again, sharing one attempt
// budget across every retry path. Exhausting the budget without rows ends in
// StateMaxRetriesExceeded, which is a result rather than an error.
package search
