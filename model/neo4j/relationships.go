package portal_neo4j

// Relationship Types
const (
	// RelHasLink connects a system to the access links it hosts
	RelHasLink = "HAS_LINK"

	// RelOwns connects an account to its access links
	RelOwns = "OWNS"

	// RelWithRole connects a workstation link to its catalog role
	RelWithRole = "WITH_ROLE"

	// RelRunsOn connects a job to the system it executes against
	RelRunsOn = "RUNS_ON"

	// RelExecutes connects a job to the script it runs
	RelExecutes = "EXECUTES"
)
