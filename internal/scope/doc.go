// Package scope decides which URLs belong to a site.
//
// A site is identified by its registrable domain (eTLD+1), computed with the
// public suffix list, so "www.tatacliq.com" and "tatacliq.com" share one
// scope. The site key is the registrable domain without its public suffix
// ("tatacliq") and is used to pick per-site pattern tables.
//
// All functions fail soft: malformed input yields an empty string or false.
package scope
