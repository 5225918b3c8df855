package models

// Logical module names used in events, rules and relationships.
const (
	ModuleAudit          = "audit"
	ModuleAuditFinding   = "audit-finding"
	ModuleCAPA           = "capa"
	ModuleNonConformance = "non-conformance"
	ModuleComplaint      = "complaint"
	ModuleTraining       = "training"
)

// Physical table names in the record store.
const (
	TableCAPAActions         = "capa_actions"
	TableNonConformances     = "non_conformances"
	TableAudits              = "audits"
	TableComplaints          = "complaints"
	TableTrainingSessions    = "training_sessions"
	TableModuleRelationships = "module_relationships"
	TableWorkflowTasks       = "workflow_tasks"
)

var moduleTables = map[string]string{
	ModuleCAPA:           TableCAPAActions,
	ModuleNonConformance: TableNonConformances,
	ModuleAudit:          TableAudits,
	ModuleComplaint:      TableComplaints,
	ModuleTraining:       TableTrainingSessions,
}

// TableFor maps a logical module name to its record-store table.
func TableFor(module string) (string, bool) {
	table, ok := moduleTables[module]

	return table, ok
}
