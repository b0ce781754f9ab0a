package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	Hardware(summary HardwareSummary)
	SweepStarted(summary SweepSummary)
	CellStarted(cell CellContext)
	EncodingProgress(progress ProgressSnapshot)
	ValidationComplete(summary ValidationSummary)
	CellComplete(outcome CellOutcome)
	Warning(message string)
	Error(err ReporterError)
	SweepComplete(summary SweepOutcome)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Hardware(HardwareSummary)             {}
func (NullReporter) SweepStarted(SweepSummary)            {}
func (NullReporter) CellStarted(CellContext)              {}
func (NullReporter) EncodingProgress(ProgressSnapshot)    {}
func (NullReporter) ValidationComplete(ValidationSummary) {}
func (NullReporter) CellComplete(CellOutcome)             {}
func (NullReporter) Warning(string)                       {}
func (NullReporter) Error(ReporterError)                  {}
func (NullReporter) SweepComplete(SweepOutcome)           {}
func (NullReporter) Verbose(string)                       {}
