package domain

// Metadata keys with a meaning shared across adapters.
// The metadata map is intentionally open: these are conventions, not a schema.
const (
	// KeyGatewayType holds the gateway sub-type on Gateway nodes.
	KeyGatewayType = "gatewayType"
	// KeyAssignee names the user or role responsible for a task.
	KeyAssignee = "assignee"
	// KeyPriority holds the task priority (low, medium, high).
	KeyPriority = "priority"
	// KeyDocumentation holds free-form documentation text.
	KeyDocumentation = "documentation"
	// KeyService names the service a task is bound to.
	KeyService = "service"
	// KeyAutomated flags a task as automated.
	KeyAutomated = "automated"
)
