package report

// BiasTable collects bias and failure records for a simulation run.
type BiasTable struct {
	Records  []BiasRecord
	Failures []FailureRecord
}

// NewBiasTable creates a BiasTable ready for recording.
func NewBiasTable() *BiasTable {
	return &BiasTable{
		Records:  make([]BiasRecord, 0),
		Failures: make([]FailureRecord, 0),
	}
}

// Append adds bias records to the table.
func (t *BiasTable) Append(records ...BiasRecord) {
	t.Records = append(t.Records, records...)
}

// AppendFailure adds a failure record to the table.
func (t *BiasTable) AppendFailure(record FailureRecord) {
	t.Failures = append(t.Failures, record)
}
