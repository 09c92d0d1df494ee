package agents

import (
	"fmt"
	"strings"
)

// RegulatoryResult and InternalResult come from curated reference tables
// rather than an upstream API, so they are always SourceStatic.
type RegulatoryResult struct {
	Base
	ApprovalProbability string `json:"approval_probability"`
	TargetApproval      string `json:"target_approval"`
}

type InternalResult struct {
	Base
	TotalInvestment  string `json:"total_investment"`
	TimelineToLaunch string `json:"timeline_to_launch"`
}

func (s *Suite) Regulatory(drug, indication string) *RegulatoryResult {
	res := &RegulatoryResult{
		Base: Base{
			Agent:      "regulatory",
			Section:    "Regulatory Pathway",
			DataSource: SourceStatic,
			Confidence: 0.85,
			Summary:    "Standard NDA pathway with anticipated 10-12 month review. High probability of approval based on strong clinical data and regulatory precedents.",
			Tables: []Table{
				{
					Title:   "Regulatory Timeline",
					Columns: []string{"Milestone", "Target Date", "Status", "Risk"},
					Rows: [][]string{
						{"IND Filing", "Q2 2022", "Complete", "Low"},
						{"Phase III Completion", "Q4 2023", "Complete", "Low"},
						{"NDA Submission", "Q1 2024", "Planned", "Low"},
						{"FDA Review", "Q1-Q4 2024", "Pending", "Medium"},
						{"Approval Decision", "Q4 2024", "Pending", "Medium"},
					},
				},
				{
					Title:   "Regulatory Precedents",
					Columns: []string{"Drug", "Indication", "Approval Time", "Pathway", "Year"},
					Rows: [][]string{
						{"Precedent A", "Similar", "10 months", "Standard NDA", "2021"},
						{"Precedent B", "Similar", "12 months", "Priority Review", "2022"},
						{"Precedent C", "Related", "14 months", "Standard NDA", "2020"},
					},
				},
			},
			Citations: []string{
				"FDA Guidance - Oncology Drug Development (2022)",
				"Regulatory Intelligence Report - Similar Approvals (2023)",
				"Pre-NDA Meeting Minutes - FDA Feedback (2023)",
			},
			QualityNotes: "Based on FDA guidance documents and recent approval precedents in similar indications",
		},
		ApprovalProbability: "82%",
		TargetApproval:      "Q4 2024",
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Regulatory Analysis for %s in %s:\n\n", drug, indication)
	fmt.Fprintf(&b, "The strategy for %s follows a standard NDA pathway with potential for Priority Review based on the clinical benefit shown in Phase III. ", drug)
	b.WriteString("Three similar drugs were approved between 2020 and 2022 with review times of 10 to 14 months, supporting an anticipated 10-12 month review.\n\n")
	b.WriteString("Key requirements:\n")
	b.WriteString("- Complete CMC package with manufacturing validation\n")
	b.WriteString("- Comprehensive nonclinical toxicology data\n")
	b.WriteString("- Risk Evaluation and Mitigation Strategy (REMS) for safety monitoring\n")
	b.WriteString("- Post-marketing commitment for long-term safety follow-up\n\n")
	b.WriteString("Parallel submissions to EMA and PMDA are planned, with anticipated approvals the following year.")
	res.Narrative = b.String()
	return res
}

func (s *Suite) Internal(drug, indication string) *InternalResult {
	res := &InternalResult{
		Base: Base{
			Agent:      "internal",
			Section:    "Internal Capabilities & Resources",
			DataSource: SourceStatic,
			Confidence: 0.84,
			Summary:    "Manufacturing and supply chain ready for launch with $50M investment over 12 months. Low-medium risk profile with strong mitigation strategies.",
			Tables: []Table{
				{
					Title:   "Manufacturing Capacity",
					Columns: []string{"Facility", "Location", "Capacity", "Utilization", "Investment Needed"},
					Rows: [][]string{
						{"Site A - API", "USA", "500kg/year", "60%", "$5M"},
						{"Site B - Formulation", "Ireland", "2M units/year", "45%", "$8M"},
						{"Site C - Fill/Finish", "Switzerland", "2M units/year", "50%", "$6M"},
						{"Site D - Packaging", "USA", "3M units/year", "40%", "$2M"},
					},
				},
				{
					Title:   "Supply Chain",
					Columns: []string{"Component", "Suppliers", "Lead Time", "Risk Level"},
					Rows: [][]string{
						{"Active Ingredient", "2 qualified", "6 months", "Medium"},
						{"Excipients", "3 qualified", "2 months", "Low"},
						{"Primary Packaging", "2 qualified", "3 months", "Low"},
						{"Secondary Packaging", "Multiple", "1 month", "Low"},
					},
				},
				{
					Title:   "Investment Breakdown",
					Columns: []string{"Category", "Amount ($M)", "Timeline"},
					Rows: [][]string{
						{"Manufacturing Scale-up", "21", "12 months"},
						{"Supply Chain", "8", "6 months"},
						{"Quality Systems", "6", "9 months"},
						{"Launch Inventory", "12", "6 months"},
						{"Contingency", "3", "Ongoing"},
					},
				},
			},
			Citations: []string{
				"Manufacturing Capacity Assessment - Operations Team (2023)",
				"Supply Chain Risk Analysis - Procurement (2023)",
				"Capital Investment Plan - Finance (2023)",
			},
			QualityNotes: "Based on detailed facility assessments and supplier audits",
		},
		TotalInvestment:  "$50M",
		TimelineToLaunch: "12 months",
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Internal Analysis for %s in %s:\n\n", drug, indication)
	b.WriteString("The manufacturing network spans four facilities across the USA, Ireland and Switzerland. ")
	b.WriteString("API production runs at 60% utilization against projected peak demand, and formulation and fill/finish run below 50%.\n\n")
	b.WriteString("Supply chain: dual sourcing is in place for the API and primary packaging. API lead time of 6 months is covered by a 6-month strategic buffer.\n\n")
	b.WriteString("Resources: $50M over 12 months, including $12M of launch inventory and $6M of quality system upgrades. ")
	b.WriteString("Manufacturing validation (12 months) is the critical path. Overall risk: LOW-MEDIUM.")
	res.Narrative = b.String()
	return res
}
