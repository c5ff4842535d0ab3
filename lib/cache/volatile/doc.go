// Package volatile implements the in-memory cache tier. It is the fastest
// tier and the first consulted on reads; its contents are lost on process
// restart. Entries expire lazily: an expired entry is dropped the first
// time a Get observes it, so the tier needs no background sweeper.
package volatile
