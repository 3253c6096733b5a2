// Package daemon wires overlayd together. It builds the notification center
// for a UI host and connects the producers (session bus services, the
// now-playing adapter, internal notices) and observers (sound cues, the
// journal) to it, then keeps configuration and layouts reloaded.
package daemon
