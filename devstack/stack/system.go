package stack

const SystemKind Kind = "System"

// System represents the networks under test and everything deployed on them.
type System interface {
	Common

	Network(id NetworkID) Network
	Networks() []NetworkID

	// NetworkID looks up the NetworkID (system name) by chain ID
	NetworkID(chainID uint64) NetworkID
}

// ExtensibleSystem is an extension-interface to add new components to the system.
// Regular tests should not be modifying the system.
// Test gates may use this to remediate any shortcomings of an existing system.
type ExtensibleSystem interface {
	System
	AddNetwork(v ExtensibleNetwork)
}
