// Package storefront fetches app titles from the storefront's public
// metadata endpoint. It is the name source for the resolver's fuzzy search
// path when no manual override exists.
package storefront
