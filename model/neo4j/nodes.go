package portal_neo4j

// Node Labels
const (
	// LabelSystem represents a managed instrument or workstation
	LabelSystem = "System"

	// LabelAccount represents an identity record in the directory
	LabelAccount = "Account"

	// LabelRole represents a catalog workstation role
	LabelRole = "Role"

	// LabelComputerLink represents a computer-kind access link
	LabelComputerLink = "ComputerLink"

	// LabelWorkstationLink represents a workstation-kind access link
	LabelWorkstationLink = "WorkstationLink"

	// LabelRequest represents a change request in the ledger
	LabelRequest = "Request"

	// LabelScript represents a stored maintenance script
	LabelScript = "Script"

	// LabelJob represents a queued script execution on a system
	LabelJob = "Job"

	// LabelPlatformUser represents a portal operator account
	LabelPlatformUser = "PlatformUser"
)
