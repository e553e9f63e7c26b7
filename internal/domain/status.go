package domain

// MediaStatus is the last-known capture state a session advertised.
// Mic follows the original contract: true means muted.
type MediaStatus struct {
	Video bool
	Mic   bool
}
