package engine

import (
	"fmt"
	"sort"
	"strings"
)

// preflightCredentials checks every declared node's required secrets before
// anything executes. All-or-nothing: a single missing credential anywhere
// aborts the whole run with a payload naming every offending node. Per-node
// validation re-checks credentials at execution time as defense in depth.
func (e *Engine) preflightCredentials(req Request) error {
	missingByNode := make(map[string][]string)

	nodeIDs := make([]string, 0, len(req.Nodes))
	for id := range req.Nodes {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	for _, nodeID := range nodeIDs {
		spec := req.Nodes[nodeID]
		typeName := spec.TypeName()
		if typeName == "" {
			continue // caught during scheduling
		}
		node := e.registry.Create(typeName)
		if node == nil {
			continue // caught during scheduling
		}
		if missing := MissingCredentials(node, e.secrets, spec.Parameters); len(missing) > 0 {
			missingByNode[nodeID] = missing
		}
	}

	if len(missingByNode) == 0 {
		return nil
	}

	credErr := &CredentialError{
		MissingByNode: missingByNode,
		NodeInfo:      make(map[string]CredentialNodeInfo, len(missingByNode)),
	}

	offending := make([]string, 0, len(missingByNode))
	for nodeID := range missingByNode {
		offending = append(offending, nodeID)
	}
	sort.Strings(offending)

	allMissing := make(map[string]bool)
	for _, nodeID := range offending {
		missing := missingByNode[nodeID]
		typeName := req.Nodes[nodeID].TypeName()

		displayName := typeName
		if schema, ok := e.registry.Schema(typeName); ok && schema.Name != "" {
			displayName = schema.Name
		}

		credErr.NodeInfo[nodeID] = CredentialNodeInfo{
			Type:               typeName,
			DisplayName:        displayName,
			MissingCredentials: missing,
		}
		credErr.PerNodeMessages = append(credErr.PerNodeMessages,
			fmt.Sprintf("Node '%s' (%s): Missing %s", nodeID, displayName, strings.Join(missing, ", ")))
		for _, name := range missing {
			allMissing[name] = true
		}
	}

	for name := range allMissing {
		credErr.AllMissing = append(credErr.AllMissing, name)
	}
	sort.Strings(credErr.AllMissing)

	credErr.Message = fmt.Sprintf(
		"Missing required credentials for workflow execution. Please set the following credentials in Settings > Credentials: %s",
		strings.Join(credErr.AllMissing, ", "))

	e.log.Warn("credential pre-flight failed",
		"nodes", offending,
		"missing", credErr.AllMissing,
	)
	return credErr
}
