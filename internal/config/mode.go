package config

// Mode is the single action an invocation performs.
type Mode int

const (
	ModeUsage Mode = iota
	ModeList
	ModeBenchmark
	ModeCrossValidate
	ModeTestVectorCheck
	ModeTestVectorCreate
	ModeLongRun
	ModeUnitTests
	ModeIntegrationTests
	ModeIntegrationLength
	ModeIntegrationLabels
	ModeIntegrationConcurrency
	ModeIntegrationCancelation
	ModeHistory
)

var modeNames = map[Mode]string{
	ModeUsage:                  "usage",
	ModeList:                   "list",
	ModeBenchmark:              "benchmark",
	ModeCrossValidate:          "test",
	ModeTestVectorCheck:        "test-vector-check",
	ModeTestVectorCreate:       "test-vector-create",
	ModeLongRun:                "long-run",
	ModeUnitTests:              "unit-tests",
	ModeIntegrationTests:       "integration-tests",
	ModeIntegrationLength:      "integration-test-length",
	ModeIntegrationLabels:      "integration-test-labels",
	ModeIntegrationConcurrency: "integration-test-concurrency",
	ModeIntegrationCancelation: "integration-test-cancelation",
	ModeHistory:                "history",
}

// String returns the flag name that selects the mode.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Records reports whether runs of this mode are written to the run store.
func (m Mode) Records() bool {
	switch m {
	case ModeUsage, ModeList, ModeHistory, ModeTestVectorCreate:
		return false
	default:
		return true
	}
}
