package engine

// StructuralError reports a defect in the graph's shape: empty node set,
// missing entry/terminal kind, an edge referencing an undeclared node, or an
// unresolved dependency set (cycle or dangling dependency). It aborts the
// whole run before or during scheduling.
type StructuralError struct {
	Message string
	// ReceivedTypes is populated when the entry/terminal kind check fails.
	ReceivedTypes []string
	HasEntry      bool
	HasTerminal   bool
	// Unresolved lists the node ids stuck in pending when no progress was
	// possible.
	Unresolved []string
}

func (e *StructuralError) Error() string {
	return e.Message
}

// CredentialNodeInfo describes one node failing the pre-flight credential
// check, for display purposes.
type CredentialNodeInfo struct {
	Type               string   `json:"type"`
	DisplayName        string   `json:"display_name"`
	MissingCredentials []string `json:"missing_credentials"`
}

// CredentialError is the all-or-nothing pre-flight abort: at least one
// declared node is missing a secret. No node has executed.
type CredentialError struct {
	Message string
	// MissingByNode maps node id to its missing credential identifiers.
	MissingByNode map[string][]string
	// NodeInfo carries human display names per offending node.
	NodeInfo map[string]CredentialNodeInfo
	// PerNodeMessages are preformatted "Node 'id' (Name): Missing X" lines.
	PerNodeMessages []string
	// AllMissing is the de-duplicated, sorted global list.
	AllMissing []string
}

func (e *CredentialError) Error() string {
	return e.Message
}
