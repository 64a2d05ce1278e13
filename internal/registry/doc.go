// Package registry keeps the set of LED controllers discovered during this
// process and notifies observers when it changes.
//
// Devices are keyed by the address their announcement came from. The first
// announcement for an address creates the entry; later announcements return
// it unchanged. A device name only changes through UpdateName, which the
// control client calls after a successful configuration reload.
//
// Nothing is persisted. Entries live until Clear is called, which happens
// when the user explicitly restarts discovery.
package registry
