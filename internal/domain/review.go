package domain

// Severity grades one criterion outcome.
type Severity string

const (
	SeverityPass Severity = "pass"
	SeverityWarn Severity = "warn"
	SeverityFail Severity = "fail"
)

// CriterionID identifies one of the eight review criteria.
type CriterionID string

const (
	CriterionEdgePlausibility    CriterionID = "C1"
	CriterionOverfittingRisk     CriterionID = "C2"
	CriterionSampleAdequacy      CriterionID = "C3"
	CriterionRegimeDependency    CriterionID = "C4"
	CriterionExitCalibration     CriterionID = "C5"
	CriterionRiskConcentration   CriterionID = "C6"
	CriterionExecutionRealism    CriterionID = "C7"
	CriterionInvalidationQuality CriterionID = "C8"
)

// AllCriteria returns the eight criteria in evaluation order.
func AllCriteria() []CriterionID {
	return []CriterionID{
		CriterionEdgePlausibility,
		CriterionOverfittingRisk,
		CriterionSampleAdequacy,
		CriterionRegimeDependency,
		CriterionExitCalibration,
		CriterionRiskConcentration,
		CriterionExecutionRealism,
		CriterionInvalidationQuality,
	}
}

// Title returns the display name of the criterion.
func (c CriterionID) Title() string {
	switch c {
	case CriterionEdgePlausibility:
		return "Edge Plausibility"
	case CriterionOverfittingRisk:
		return "Overfitting Risk"
	case CriterionSampleAdequacy:
		return "Sample Adequacy"
	case CriterionRegimeDependency:
		return "Regime Dependency"
	case CriterionExitCalibration:
		return "Exit Calibration"
	case CriterionRiskConcentration:
		return "Risk Concentration"
	case CriterionExecutionRealism:
		return "Execution Realism"
	case CriterionInvalidationQuality:
		return "Invalidation Quality"
	}
	return string(c)
}

// Finding is one criterion's evaluation result for one draft.
type Finding struct {
	CriterionID CriterionID
	Severity    Severity
	Score       int // 0-100
	Message     string
	Weight      int // fixed per criterion, weights sum to 100
}

// Verdict is the terminal classification of one draft.
type Verdict string

const (
	VerdictPass   Verdict = "PASS"
	VerdictRevise Verdict = "REVISE"
	VerdictReject Verdict = "REJECT"
)

// InstructionKind tags a revision instruction. The verdict engine emits
// kinds; the revision applier dispatches on them through a lookup table.
// Rendered text is presentation only and never used for dispatch.
type InstructionKind string

const (
	InstructionReduceEntryConditions  InstructionKind = "REDUCE_ENTRY_CONDITIONS"
	InstructionAddVolumeFilter        InstructionKind = "ADD_VOLUME_FILTER"
	InstructionRoundPreciseThresholds InstructionKind = "ROUND_PRECISE_THRESHOLDS"
	InstructionExpandThesis           InstructionKind = "EXPAND_THESIS"
	InstructionAddRegimeValidation    InstructionKind = "ADD_REGIME_VALIDATION"
	InstructionRecalibrateExits       InstructionKind = "RECALIBRATE_EXITS"
	InstructionReduceRisk             InstructionKind = "REDUCE_RISK"
	InstructionAlignEntryFamily       InstructionKind = "ALIGN_ENTRY_FAMILY"
	InstructionAddInvalidation        InstructionKind = "ADD_INVALIDATION_SIGNALS"
)

// Text returns the human-readable instruction line for the report.
func (k InstructionKind) Text() string {
	switch k {
	case InstructionReduceEntryConditions:
		return "Reduce entry conditions"
	case InstructionAddVolumeFilter:
		return "Add volume filter"
	case InstructionRoundPreciseThresholds:
		return "Round precise thresholds"
	case InstructionExpandThesis:
		return "Expand thesis with mechanism detail"
	case InstructionAddRegimeValidation:
		return "Add regime-split step to validation plan"
	case InstructionRecalibrateExits:
		return "Recalibrate stop loss and take profit"
	case InstructionReduceRisk:
		return "Reduce per-trade risk and position count"
	case InstructionAlignEntryFamily:
		return "Align entry family with exportable set"
	case InstructionAddInvalidation:
		return "Add invalidation signals"
	}
	return string(k)
}

// ReviewResult is the terminal output for one draft.
type ReviewResult struct {
	DraftID         string
	Verdict         Verdict
	ConfidenceScore int // 0-100, weighted average of findings
	Findings        []Finding

	// Instruction kinds drive revision; texts mirror them for the report.
	InstructionKinds     []InstructionKind
	RevisionInstructions []string

	ExportEligible bool
}

// Clone returns a deep copy of the result.
func (r *ReviewResult) Clone() *ReviewResult {
	c := *r
	c.Findings = append([]Finding(nil), r.Findings...)
	c.InstructionKinds = append([]InstructionKind(nil), r.InstructionKinds...)
	c.RevisionInstructions = append([]string(nil), r.RevisionInstructions...)
	return &c
}
