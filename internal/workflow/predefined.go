package workflow

import (
	"time"

	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/domain"
)

// Names of the built-in packages
const (
	PackageNewListing    = "new_listing_package"
	PackageLeadNurturing = "lead_nurturing_package"
)

// Stable IDs for the built-in packages so repeated calls and multiple
// instances agree on them.
var (
	newListingPackageID    = uuid.MustParse("7b1e9a52-3f0c-4d2e-9a41-8c5d1e6f2a03")
	leadNurturingPackageID = uuid.MustParse("c4a8d9e1-6b27-4f5a-8e3d-91f0b2c7d514")
)

// PredefinedPackages returns the built-in, non-persisted workflow
// packages keyed by name. They bootstrap new tenants and let tests run
// packages without store state. Each call returns fresh copies.
func PredefinedPackages() map[string]*domain.WorkflowPackage {
	newListing, _ := domain.NewWorkflowPackage(
		newListingPackageID,
		PackageNewListing,
		"Everything needed to take a new listing to market: comparative market analysis, listing content, and a final agent review.",
		"listing",
		[]domain.WorkflowStep{
			{
				Name:              "generate_cma",
				Type:              domain.TaskTypeCMAGeneration,
				Description:       "Generate a comparative market analysis and suggested price",
				EstimatedDuration: 300 * time.Second,
				Inputs:            []string{"property_details", "market_conditions", "comparable_properties"},
				Outputs:           []string{"cma_report", "suggested_price"},
			},
			{
				Name:              "generate_listing_content",
				Type:              domain.TaskTypeContentGeneration,
				Description:       "Write the listing description and social media posts",
				EstimatedDuration: 600 * time.Second,
				Inputs:            []string{"property_details", "cma_report"},
				Outputs:           []string{"listing_description", "social_media_posts"},
				DependsOn:         []string{"generate_cma"},
			},
			{
				Name:              "agent_review",
				Type:              domain.TaskTypeHumanReview,
				Description:       "Agent reviews generated pricing and content before publication",
				EstimatedDuration: 1800 * time.Second,
				Inputs:            []string{"cma_report", "listing_description"},
				Outputs:           []string{"review_approved"},
				DependsOn:         []string{"generate_listing_content"},
			},
		},
	)

	leadNurturing, _ := domain.NewWorkflowPackage(
		leadNurturingPackageID,
		PackageLeadNurturing,
		"Score incoming leads and draft personalized follow-up content for the highest-value ones.",
		"leads",
		[]domain.WorkflowStep{
			{
				Name:              "score_leads",
				Type:              domain.TaskTypeLeadScoring,
				Description:       "Rank leads by engagement and fit",
				EstimatedDuration: 300 * time.Second,
				Inputs:            []string{"leads"},
				Outputs:           []string{"scored_leads"},
			},
			{
				Name:              "draft_followups",
				Type:              domain.TaskTypeContentGeneration,
				Description:       "Draft follow-up messages for top-scored leads",
				EstimatedDuration: 600 * time.Second,
				Inputs:            []string{"scored_leads"},
				Outputs:           []string{"followup_messages"},
				DependsOn:         []string{"score_leads"},
			},
		},
	)

	return map[string]*domain.WorkflowPackage{
		PackageNewListing:    newListing,
		PackageLeadNurturing: leadNurturing,
	}
}
